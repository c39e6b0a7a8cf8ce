// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package addrmgr implements the fixed-size peer registry: a bounded
// table of known peer addresses with expiry-based slot reuse, relay
// counting, and binary sidecar persistence.
package addrmgr

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/vfcsuite/vfcd/chainparams"
)

// UserAgentMaxLen bounds the stored user-agent string length.
const UserAgentMaxLen = 63

// MasterUserAgent is the fixed user-agent installed at index 0 by
// SetMaster.
const MasterUserAgent = "VFC-MASTER"

// PeerEntry is one slot of the registry.
type PeerEntry struct {
	IP         [4]byte
	ExpiresAt  time.Time
	RelayCount uint32
	UserAgent  string
	occupied   bool
}

// Sender delivers a raw datagram to a single peer. The protocol engine
// supplies the concrete implementation (a UDP socket); addrmgr never
// opens a socket of its own.
type Sender interface {
	SendTo(ip net.IP, packet []byte) error
}

// Manager is the bounded peer table. Index 0 is reserved for the
// network master and is never evicted or overwritten by Add.
type Manager struct {
	mu      sync.Mutex
	params  *chainparams.Params
	entries []PeerEntry
	sender  Sender
}

// New constructs an empty Manager sized per params.MaxPeers.
func New(params *chainparams.Params) *Manager {
	return &Manager{
		params:  params,
		entries: make([]PeerEntry, params.MaxPeers),
	}
}

// SetSender wires the transport used by Broadcast/TriBroadcast.
func (m *Manager) SetSender(s Sender) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sender = s
}

func ipIsLoopbackOrPrivate(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil {
		return true
	}
	return ip4.IsLoopback() || ip4.IsPrivate() || ip4.IsUnspecified()
}

// Add inserts or refreshes ip. Loopback and RFC1918 addresses are
// refused outright. If ip is already present its expiry is refreshed
// and its relay counter bumped. Otherwise it is placed in the first
// free slot or, if the table is full, into the lowest-index slot
// (excluding index 0) whose expiry has elapsed. Reports whether a slot
// was taken.
func (m *Manager) Add(ip net.IP) bool {
	ip4 := ip.To4()
	if ip4 == nil || ipIsLoopbackOrPrivate(ip4) {
		return false
	}
	var key [4]byte
	copy(key[:], ip4)

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for i := range m.entries {
		e := &m.entries[i]
		if e.occupied && e.IP == key {
			e.ExpiresAt = now.Add(m.params.PeerExpiry)
			e.RelayCount++
			return true
		}
	}

	freeSlot := -1
	expiredSlot := -1
	for i := 1; i < len(m.entries); i++ {
		e := &m.entries[i]
		if !e.occupied {
			if freeSlot == -1 {
				freeSlot = i
			}
			continue
		}
		if e.ExpiresAt.Before(now) && expiredSlot == -1 {
			expiredSlot = i
		}
	}

	slot := freeSlot
	if slot == -1 {
		slot = expiredSlot
	}
	if slot == -1 {
		return false
	}

	m.entries[slot] = PeerEntry{
		IP:        key,
		ExpiresAt: now.Add(m.params.PeerExpiry),
		occupied:  true,
	}
	return true
}

// IsPeer reports whether ip is registered.
func (m *Manager) IsPeer(ip net.IP) bool {
	_, ok := m.Get(ip)
	return ok
}

// Get returns the entry for ip, if registered.
func (m *Manager) Get(ip net.IP) (PeerEntry, bool) {
	ip4 := ip.To4()
	if ip4 == nil {
		return PeerEntry{}, false
	}
	var key [4]byte
	copy(key[:], ip4)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		e := &m.entries[i]
		if e.occupied && e.IP == key {
			return *e, true
		}
	}
	return PeerEntry{}, false
}

// UserAgent returns the stored user-agent string for ip, if present.
func (m *Manager) UserAgent(ip net.IP) (string, bool) {
	e, ok := m.Get(ip)
	if !ok {
		return "", false
	}
	return e.UserAgent, true
}

// SetUserAgent records the (truncated) user agent for ip, if present.
func (m *Manager) SetUserAgent(ip net.IP, agent string) {
	if len(agent) > UserAgentMaxLen {
		agent = agent[:UserAgentMaxLen]
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return
	}
	var key [4]byte
	copy(key[:], ip4)

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.entries {
		e := &m.entries[i]
		if e.occupied && e.IP == key {
			e.UserAgent = agent
			return
		}
	}
}

// livingLocked returns the index (excluding zero) of every peer whose
// last-seen time is within four ping intervals. Caller must hold m.mu.
func (m *Manager) livingLocked() []int {
	now := time.Now()
	window := time.Duration(m.params.LivePingIntervals) * m.params.PingInterval
	lastSeenFloor := now.Add(-window)

	var living []int
	for i := 1; i < len(m.entries); i++ {
		e := &m.entries[i]
		if !e.occupied {
			continue
		}
		lastSeen := e.ExpiresAt.Add(-m.params.PeerExpiry)
		if lastSeen.After(lastSeenFloor) {
			living = append(living, i)
		}
	}
	return living
}

// CountLiving counts peers (excluding index 0) whose last-seen time is
// within four ping intervals.
func (m *Manager) CountLiving() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.livingLocked())
}

// LivingPeers returns the IPv4 addresses of every living peer (index 0
// excluded), in table order.
func (m *Manager) LivingPeers() []net.IP {
	m.mu.Lock()
	defer m.mu.Unlock()
	indices := m.livingLocked()
	ips := make([]net.IP, len(indices))
	for i, idx := range indices {
		ips[i] = net.IP(m.entries[idx].IP[:])
	}
	return ips
}

// Broadcast sends packet to every occupied peer slot except index 0,
// whether or not the peer is currently living.
func (m *Manager) Broadcast(packet []byte) {
	m.mu.Lock()
	sender := m.sender
	var ips []net.IP
	for i := 1; i < len(m.entries); i++ {
		e := &m.entries[i]
		if e.occupied {
			ips = append(ips, net.IP(e.IP[:]))
		}
	}
	m.mu.Unlock()

	if sender == nil {
		return
	}
	for _, ip := range ips {
		if err := sender.SendTo(ip, packet); err != nil {
			log.Debugf("addrmgr: broadcast to %s failed: %v", ip, err)
		}
	}
}

// TriBroadcast samples up to three living peers (excluding index 0)
// for a shallow fan-out. With at most three living peers it sends to
// each of them.
func (m *Manager) TriBroadcast(packet []byte) {
	m.mu.Lock()
	sender := m.sender
	living := m.livingLocked()
	rand.Shuffle(len(living), func(i, j int) { living[i], living[j] = living[j], living[i] })
	if len(living) > 3 {
		living = living[:3]
	}
	var ips []net.IP
	for _, i := range living {
		ips = append(ips, net.IP(m.entries[i].IP[:]))
	}
	m.mu.Unlock()

	if sender == nil {
		return
	}
	for _, ip := range ips {
		if err := sender.SendTo(ip, packet); err != nil {
			log.Debugf("addrmgr: tri-broadcast to %s failed: %v", ip, err)
		}
	}
}

// SetMaster clears the table and installs the hardcoded master address
// at index 0, immortal and never subject to eviction by Add.
func (m *Manager) SetMaster() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		m.entries[i] = PeerEntry{}
	}

	masterIP := net.ParseIP(m.params.MasterIP).To4()
	var key [4]byte
	copy(key[:], masterIP)
	m.entries[0] = PeerEntry{
		IP:        key,
		ExpiresAt: time.Now().Add(100 * 365 * 24 * time.Hour),
		UserAgent: MasterUserAgent,
		occupied:  true,
	}
}
