// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package protocol implements the single-socket UDP wire engine: opcode
// dispatch, the admission worker pool that drains the pending queue,
// and the periodic housekeeping that drives peer/replay/reward upkeep.
package protocol

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vfcsuite/vfcd/addrmgr"
	"github.com/vfcsuite/vfcd/admission"
	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/mining"
	"github.com/vfcsuite/vfcd/replay"
	"github.com/vfcsuite/vfcd/txqueue"
	"github.com/vfcsuite/vfcd/vfcec"
	"github.com/vfcsuite/vfcd/wire"
)

// UserAgent is the version token advertised in response to an `a`
// request and compared against a peer's stored user-agent by the
// reward scheduler.
const UserAgent = "vfcd/0.1.0"

// Config bundles every collaborator the engine dispatches to. All
// fields are required except RewardKey, which is only needed on the
// master, and OwnKey. Dispatcher may instead be wired in after
// construction with SetDispatcher.
type Config struct {
	Params     *chainparams.Params
	Store      *ledger.Store
	Addrs      *addrmgr.Manager
	Queue      *txqueue.Queue
	Pipeline   *admission.Pipeline
	Dispatcher *replay.Dispatcher
	Allow      *replay.AllowList
	Workers    int

	// RewardKey funds master reward payouts. Nil on a non-master node,
	// where the reward scheduler is never started.
	RewardKey *vfcec.PrivateKey

	// OwnKey is this node's own address key, used to sign the hourly
	// self-transfer that refreshes its public IP registration with
	// peers. Required for StartHousekeeping's refresh to do anything.
	OwnKey *vfcec.PrivateKey
}

// udpSocket is the slice of *net.UDPConn the engine actually uses;
// tests substitute a fake to exercise dispatch without a real socket.
type udpSocket interface {
	WriteToUDP(b []byte, addr *net.UDPAddr) (int, error)
	ReadFromUDP(b []byte) (int, *net.UDPAddr, error)
	Close() error
}

// Engine owns the UDP socket and wires every opcode handler to its
// backing subsystem.
type Engine struct {
	params     *chainparams.Params
	store      *ledger.Store
	addrs      *addrmgr.Manager
	queue      *txqueue.Queue
	pipeline   *admission.Pipeline
	dispatcher *replay.Dispatcher
	allow      *replay.AllowList
	reward     *mining.RewardScheduler
	rewardKey  *vfcec.PrivateKey
	ownKey     *vfcec.PrivateKey
	workers    int

	conn     udpSocket
	mid      [wire.MIDSize]byte
	masterIP net.IP

	rewardAddrMu sync.Mutex
	rewardAddr   map[[4]byte][]byte // IPv4 -> volunteered reward pubkey

	stopped chan struct{}
	wg      sync.WaitGroup
}

// NewEngine constructs an Engine from cfg. The socket is not opened
// until Start.
func NewEngine(cfg Config) *Engine {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	e := &Engine{
		params:     cfg.Params,
		store:      cfg.Store,
		addrs:      cfg.Addrs,
		queue:      cfg.Queue,
		pipeline:   cfg.Pipeline,
		dispatcher: cfg.Dispatcher,
		allow:      cfg.Allow,
		rewardKey:  cfg.RewardKey,
		ownKey:     cfg.OwnKey,
		workers:    workers,
		rewardAddr: make(map[[4]byte][]byte),
	}
	e.mid = newMID()
	e.masterIP = net.ParseIP(cfg.Params.MasterIP)
	if cfg.RewardKey != nil {
		e.reward = mining.NewRewardScheduler(cfg.Addrs, e, cfg.Params.RewardInterval, UserAgent)
	}
	return e
}

// Start opens the UDP socket on Params.ListenPort, wires the engine as
// every subsystem's transport, and launches the listener plus the
// admission worker pool.
func (e *Engine) Start() error {
	addr := &net.UDPAddr{Port: e.params.ListenPort}
	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return fmt.Errorf("protocol: listen: %w", err)
	}
	e.conn = conn
	e.addrs.SetSender(e)

	e.stopped = make(chan struct{})
	e.wg.Add(1)
	go e.listenLoop()

	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.processLoop()
	}
	return nil
}

// Stop closes the socket and waits for the listener and worker
// goroutines to exit.
func (e *Engine) Stop() {
	if e.stopped != nil {
		close(e.stopped)
	}
	if e.conn != nil {
		e.conn.Close()
	}
	e.wg.Wait()
}

// SetDispatcher wires the replay dispatcher in after construction,
// needed because the dispatcher itself requires the engine as its
// Sender and so cannot exist before the engine does.
func (e *Engine) SetDispatcher(d *replay.Dispatcher) {
	e.dispatcher = d
}

// SendTo implements addrmgr.Sender and replay.Sender.
func (e *Engine) SendTo(ip net.IP, packet []byte) error {
	_, err := e.conn.WriteToUDP(packet, &net.UDPAddr{IP: ip, Port: e.params.ListenPort})
	return err
}

// SendReplayRequest implements replay.Requester.
func (e *Engine) SendReplayRequest(ip net.IP) error {
	return e.SendTo(ip, wire.EncodeReplayRequest())
}

// SolicitReward implements mining.RewardSender.
func (e *Engine) SolicitReward(ip net.IP) error {
	return e.SendTo(ip, wire.EncodeRewardSolicit())
}

// PayReward implements mining.RewardSender. It looks up the reward
// pubkey the peer volunteered via the ` ` opcode and, if amount is
// nonzero, builds and admits a signed transfer from the master's
// reward key directly (bypassing the pending queue: the master is the
// sole author of this record).
func (e *Engine) PayReward(ip net.IP, amount uint32) error {
	if amount == 0 || e.rewardKey == nil {
		return nil
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil
	}
	var key [4]byte
	copy(key[:], ip4)

	e.rewardAddrMu.Lock()
	toBytes := e.rewardAddr[key]
	e.rewardAddrMu.Unlock()
	if toBytes == nil {
		return fmt.Errorf("protocol: no reward address on file for %s", ip)
	}

	var rec wire.TxRecord
	copy(rec.From[:], e.rewardKey.PubKey().Serialize())
	copy(rec.To[:], toBytes)
	rec.Amount = amount
	rec.UID = nextUID()

	if err := signRecord(&rec, e.rewardKey); err != nil {
		return err
	}
	result, err := e.pipeline.Admit(&rec)
	if err != nil {
		return err
	}
	if result != admission.Accepted {
		return fmt.Errorf("protocol: reward payout to %s rejected: %s", ip, result)
	}
	e.addrs.TriBroadcast((&wire.MsgTx{Record: rec}).Encode(wire.OpDead))
	return nil
}

func (e *Engine) listenLoop() {
	defer e.wg.Done()
	buf := make([]byte, 512)
	for {
		n, src, err := e.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-e.stopped:
				return
			default:
				log.Debugf("protocol: read: %v", err)
				continue
			}
		}
		pkt := make([]byte, n)
		copy(pkt, buf[:n])
		e.dispatch(pkt, src.IP)
	}
}

// dispatch routes one datagram by its opcode byte. Length checks are
// exact: a datagram of the wrong length for its opcode is dropped.
func (e *Engine) dispatch(buf []byte, src net.IP) {
	if len(buf) == 0 {
		return
	}
	op := wire.Opcode(buf[0])
	switch op {
	case wire.OpTx, wire.OpDead:
		if len(buf) != wire.TxMsgLen {
			return
		}
		e.handleTx(buf[1:], src)
	case wire.OpReplay:
		if len(buf) != wire.ReplayMsgLen {
			return
		}
		e.handleReplay(buf[1:], src)
	case wire.OpReplayRequest:
		if len(buf) != 1 {
			return
		}
		e.handleReplayRequest(src)
	case wire.OpHeight:
		if len(buf) != wire.HeightMsgLen {
			return
		}
		e.handleHeight(buf[1:], src)
	case wire.OpUserAgent:
		e.handleUserAgent(buf[1:], src)
	case wire.OpRewardSolicit:
		if len(buf) != 1 {
			return
		}
		e.handleRewardSolicit(src)
	case wire.OpDiscoveryProbe:
		if len(buf) != wire.DiscoveryMsgLen {
			return
		}
		e.handleDiscoveryProbe(buf[1:], src)
	case wire.OpDiscoveryEcho:
		if len(buf) != wire.DiscoveryMsgLen {
			return
		}
		e.handleDiscoveryEcho(buf[1:], src)
	case wire.OpRewardAddr:
		e.handleRewardAddr(buf[1:], src)
	}
}

// handleTx enqueues a newly received or echoed transaction. OpTx and
// OpDead carry an identical payload shape and are treated the same
// way: both are genuinely live (isReplay=false). On acceptance it is
// rebroadcast to a few peers as OpDead.
func (e *Engine) handleTx(payload []byte, src net.IP) {
	msg, err := wire.DecodeMsgTx(payload)
	if err != nil {
		log.Debugf("protocol: bad tx payload from %s: %v", src, err)
		return
	}
	outcome := e.queue.Enqueue(&msg.Record, src, msg.OriginIP(), false)
	if outcome == txqueue.Accepted || outcome == txqueue.DoubleSpendDetected {
		e.addrs.TriBroadcast((&wire.MsgTx{Origin: msg.Origin, Record: msg.Record}).Encode(wire.OpDead))
	}
}

// handleReplay enqueues a historical record streamed by an authorized
// peer. Per the resolved opcode semantics this is the genuinely replay
// path: isReplay=true.
func (e *Engine) handleReplay(payload []byte, src net.IP) {
	if !e.allow.IsAuthorized(src, e.masterIP) {
		return
	}
	rec, err := wire.DecodeReplay(payload)
	if err != nil {
		log.Debugf("protocol: bad replay payload from %s: %v", src, err)
		return
	}
	e.queue.Enqueue(rec, src, nil, true)
}

// handleReplayRequest launches a replay worker for src. The requester's
// height is the first comma-delimited integer of its stored user-agent;
// an unknown or unparseable user-agent counts as height 0.
func (e *Engine) handleReplayRequest(src net.IP) {
	var peerHeight uint64
	if ua, ok := e.addrs.UserAgent(src); ok {
		first := strings.TrimSpace(strings.SplitN(ua, ",", 2)[0])
		if h, err := strconv.ParseUint(first, 10, 64); err == nil {
			peerHeight = h
		}
	}
	e.dispatcher.Launch(src, peerHeight)
}

func (e *Engine) handleHeight(payload []byte, src net.IP) {
	remote, err := wire.DecodeHeight(payload)
	if err != nil {
		log.Debugf("protocol: bad height payload from %s: %v", src, err)
		return
	}
	e.allow.UpdateHeight(remote)
}

func (e *Engine) handleUserAgent(payload []byte, src net.IP) {
	e.addrs.Add(src)
	if len(payload) == 0 {
		if err := e.SendTo(src, wire.EncodeUserAgent(UserAgent)); err != nil {
			log.Debugf("protocol: user-agent reply to %s failed: %v", src, err)
		}
		return
	}
	if len(payload) > wire.UserAgentMaxLen {
		return
	}
	e.addrs.SetUserAgent(src, string(payload))
}

func (e *Engine) handleRewardSolicit(src net.IP) {
	if e.rewardKey == nil {
		return
	}
	if err := e.SendTo(src, wire.EncodeRewardAddr(e.rewardKey.PubKey().Serialize())); err != nil {
		log.Debugf("protocol: reward address reply to %s failed: %v", src, err)
	}
}

func (e *Engine) handleRewardAddr(payload []byte, src net.IP) {
	if len(payload) == 0 || len(payload) > wire.RewardAddrMaxLen {
		return
	}
	ip4 := src.To4()
	if ip4 == nil {
		return
	}
	var key [4]byte
	copy(key[:], ip4)
	pub := make([]byte, len(payload))
	copy(pub, payload)

	e.rewardAddrMu.Lock()
	e.rewardAddr[key] = pub
	e.rewardAddrMu.Unlock()

	if e.reward != nil {
		e.reward.HandleRewardAddress(src)
	}
}

func (e *Engine) handleDiscoveryProbe(payload []byte, src net.IP) {
	mid, err := wire.DecodeMID(payload)
	if err != nil {
		return
	}
	if err := e.SendTo(src, wire.EncodeDiscoveryEcho(mid)); err != nil {
		log.Debugf("protocol: discovery echo to %s failed: %v", src, err)
	}
}

func (e *Engine) handleDiscoveryEcho(payload []byte, src net.IP) {
	mid, err := wire.DecodeMID(payload)
	if err != nil || mid != e.mid {
		return
	}
	e.addrs.Add(src)
}

// processLoop is one admission worker: it pops pending entries off the
// queue and runs them through the pipeline, tri-broadcasting a
// successful, non-self-transfer admission as an echoed transaction.
func (e *Engine) processLoop() {
	defer e.wg.Done()
	for {
		select {
		case <-e.stopped:
			return
		default:
		}

		rec, _, _, _, ok := e.queue.Dequeue()
		if !ok {
			time.Sleep(10 * time.Millisecond)
			continue
		}
		result, err := e.pipeline.Admit(&rec)
		if err != nil {
			log.Warnf("protocol: admission error for uid %d: %v", rec.UID, err)
			continue
		}
		if result == admission.Accepted && !rec.SelfTransfer() {
			e.addrs.TriBroadcast((&wire.MsgTx{Record: rec}).Encode(wire.OpDead))
		}
	}
}
