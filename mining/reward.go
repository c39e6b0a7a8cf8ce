// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"net"
	"strings"
	"sync"
	"time"
)

// RewardAmount is the standard master-to-peer payout, in 1/1000 units
// (3.000 coins).
const RewardAmount = 3000

// RewardSender solicits a reward address from one peer (the `x`
// opcode) and sends it its payout. Implemented by the protocol engine,
// which owns the UDP socket.
type RewardSender interface {
	SolicitReward(ip net.IP) error
	PayReward(ip net.IP, amount uint32) error
}

// PeerSource reports the currently reachable non-master peers and
// their stored user-agents, used by the reward scheduler to pick
// rotation targets and gate payout amounts.
type PeerSource interface {
	LivingPeers() []net.IP
	UserAgent(ip net.IP) (string, bool)
}

// RewardScheduler rotates through living peers, soliciting and paying
// out a reward once per RewardInterval. It is only active on the
// master node; the protocol engine's housekeeping tick drives it.
type RewardScheduler struct {
	mu sync.Mutex

	peers    PeerSource
	sender   RewardSender
	interval time.Duration
	version  string // version token a peer's user-agent must contain for a nonzero payout

	rewardIndex int
	target      net.IP
	targetSetAt time.Time
	paid        bool
}

// NewRewardScheduler constructs a scheduler. version is the current
// protocol/user-agent version token; a peer whose user-agent omits it
// receives a zero-value payout instead of RewardAmount.
func NewRewardScheduler(peers PeerSource, sender RewardSender, interval time.Duration, version string) *RewardScheduler {
	return &RewardScheduler{peers: peers, sender: sender, interval: interval, version: version, rewardIndex: -1}
}

// Tick advances the scheduler by one housekeeping step. It should be
// called roughly once per second; internally it only rotates targets
// every interval and only resends a solicitation once per call while a
// target is outstanding and unpaid.
func (s *RewardScheduler) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if s.target == nil || now.Sub(s.targetSetAt) >= s.interval {
		s.advanceLocked(now)
	}
	if s.target != nil && !s.paid {
		if err := s.sender.SolicitReward(s.target); err != nil {
			log.Debugf("mining: reward solicit to %s failed: %v", s.target, err)
		}
	}
}

func (s *RewardScheduler) advanceLocked(now time.Time) {
	living := s.peers.LivingPeers()
	if len(living) == 0 {
		s.target = nil
		return
	}
	s.rewardIndex = (s.rewardIndex + 1) % len(living)
	s.target = living[s.rewardIndex]
	s.targetSetAt = now
	s.paid = false
}

// HandleRewardAddress processes a peer's volunteered reward address
// (the ` ` opcode). If ip is the current rotation target and has not
// already been paid, a payout is issued: RewardAmount if the peer's
// stored user-agent contains the scheduler's version token, zero
// otherwise.
func (s *RewardScheduler) HandleRewardAddress(ip net.IP) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.target == nil || !s.target.Equal(ip) || s.paid {
		return
	}

	amount := uint32(0)
	if ua, ok := s.peers.UserAgent(ip); ok && strings.Contains(ua, s.version) {
		amount = RewardAmount
	}
	if err := s.sender.PayReward(ip, amount); err != nil {
		log.Warnf("mining: reward payout to %s failed: %v", ip, err)
		return
	}
	s.paid = true
}
