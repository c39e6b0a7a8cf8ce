// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package replay implements the replay-allow authorization list and the
// bounded worker pool that streams historical ledger records to
// requesting peers.
package replay

import (
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/jrick/bitset"

	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/wire"
)

// Sender delivers a raw datagram to a single peer. The protocol engine
// supplies the concrete implementation; replay never opens a socket of
// its own.
type Sender interface {
	SendTo(ip net.IP, packet []byte) error
}

// Dispatcher launches and tracks the bounded pool of replay workers, one
// per destination IP, each streaming historical records at a fixed
// rate. A worker is never launched for an IP that already has one
// outstanding.
type Dispatcher struct {
	mu         sync.Mutex
	maxThreads int
	occupied   bitset.Bytes
	slotIP     []net.IP
	active     int

	store      *ledger.Store
	sender     Sender
	rateLimit  time.Duration
	headCount  int
	windowSize int

	wg sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher bounded by
// min(params.MaxThreads, params.MaxThreadsBuff) concurrent workers.
func NewDispatcher(params *chainparams.Params, store *ledger.Store, sender Sender) *Dispatcher {
	max := params.MaxThreads
	if max > params.MaxThreadsBuff {
		max = params.MaxThreadsBuff
	}
	return &Dispatcher{
		maxThreads: max,
		occupied:   bitset.NewBytes(params.MaxThreadsBuff),
		slotIP:     make([]net.IP, params.MaxThreadsBuff),
		store:      store,
		sender:     sender,
		rateLimit:  params.ReplayRate,
		headCount:  params.ReplayHeadCount,
		windowSize: params.ReplaySize,
	}
}

// Launch starts a replay worker for ip unless one is already running
// for that address or the pool is at capacity. peerHeight is the
// requester's advertised ledger height (in records). Reports whether a
// worker was launched.
func (d *Dispatcher) Launch(ip net.IP, peerHeight uint64) bool {
	d.mu.Lock()
	for i, existing := range d.slotIP {
		if d.occupied.Get(i) && existing != nil && existing.Equal(ip) {
			d.mu.Unlock()
			return false
		}
	}
	if d.active >= d.maxThreads {
		d.mu.Unlock()
		return false
	}
	slot := -1
	for i := range d.slotIP {
		if !d.occupied.Get(i) {
			slot = i
			break
		}
	}
	if slot == -1 {
		d.mu.Unlock()
		return false
	}
	d.occupied.Set(slot)
	d.slotIP[slot] = ip
	d.active++
	d.mu.Unlock()

	d.wg.Add(1)
	go d.runWorker(slot, ip, peerHeight)
	return true
}

// Wait blocks until every outstanding worker has finished. Used by
// shutdown paths.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// ActiveCount reports the number of currently running workers.
func (d *Dispatcher) ActiveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *Dispatcher) runWorker(slot int, ip net.IP, peerHeight uint64) {
	defer d.wg.Done()
	defer func() {
		d.mu.Lock()
		d.occupied.Unset(slot)
		d.slotIP[slot] = nil
		d.active--
		d.mu.Unlock()
	}()

	myHeight, err := d.store.Height()
	if err != nil {
		log.Warnf("replay: reading local height for %s: %v", ip, err)
		return
	}
	d.sendHeight(ip)

	if peerHeight < myHeight {
		d.replayHead(ip, uint64(d.headCount))
		d.replayBlocks(ip, myHeight)
	} else {
		d.replayHead(ip, uint64(d.windowSize*5))
	}
}

func (d *Dispatcher) sendHeight(ip net.IP) {
	byteLen, err := d.store.ByteLength()
	if err != nil {
		log.Debugf("replay: reading byte length for %s: %v", ip, err)
		return
	}
	if err := d.sender.SendTo(ip, wire.EncodeHeight(uint32(byteLen))); err != nil {
		log.Debugf("replay: height send to %s failed: %v", ip, err)
	}
}

// replayHead streams the most recent count records, newest first,
// never reaching below index 1 (genesis is never replayed).
func (d *Dispatcher) replayHead(ip net.IP, count uint64) {
	height, err := d.store.Height()
	if err != nil || height <= 1 {
		return
	}
	start := uint64(1)
	if height > count && height-count > start {
		start = height - count
	}
	for idx := height - 1; ; idx-- {
		rec, err := d.store.RecordAt(idx)
		if err != nil {
			log.Warnf("replay: reading record %d for %s: %v", idx, ip, err)
			return
		}
		if err := d.sender.SendTo(ip, wire.EncodeReplay(rec)); err != nil {
			log.Debugf("replay: send to %s failed: %v", ip, err)
		}
		time.Sleep(d.rateLimit)
		if idx == start {
			return
		}
	}
}

// replayBlocks streams one randomly chosen fixed-size window of
// windowSize records. The first window (which holds genesis) and any
// partial window at the tail are never chosen.
func (d *Dispatcher) replayBlocks(ip net.IP, height uint64) {
	windows := height / uint64(d.windowSize)
	if windows < 2 {
		return
	}
	w := uint64(1 + rand.Intn(int(windows-1)))
	start := w * uint64(d.windowSize)
	end := start + uint64(d.windowSize)
	if end > height {
		end = height
	}
	for idx := start; idx < end; idx++ {
		rec, err := d.store.RecordAt(idx)
		if err != nil {
			log.Warnf("replay: reading record %d for %s: %v", idx, ip, err)
			return
		}
		if err := d.sender.SendTo(ip, wire.EncodeReplay(rec)); err != nil {
			log.Debugf("replay: send to %s failed: %v", ip, err)
		}
		time.Sleep(d.rateLimit)
	}
}
