// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package txqueue implements the bounded pending-transaction pool: a
// fixed-size table of not-yet-admitted records, duplicate/double-spend
// detection on enqueue, and a randomized, age-gated dequeue that gives
// peers a short window to veto a live transaction before it is admitted.
package txqueue

import (
	"net"
	"sync"
	"time"

	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/uniqset"
	"github.com/vfcsuite/vfcd/wire"
)

// entry is one pending slot.
type entry struct {
	record      wire.TxRecord
	immediateIP net.IP
	referredIP  net.IP
	isReplay    bool
	enqueuedAt  time.Time
	occupied    bool
}

// Queue is the bounded pending-transaction pool.
type Queue struct {
	mu       sync.Mutex
	entries  []entry
	filter   *uniqset.Filter
	bad      *ledger.BadBlocks
	params   *chainparams.Params
	rngState uint64
}

// New constructs an empty Queue. filter is the uniqueness filter
// consulted (and updated) on every enqueue; bad receives logged
// conflicting pairs on double-spend detection.
func New(params *chainparams.Params, filter *uniqset.Filter, bad *ledger.BadBlocks) *Queue {
	return &Queue{
		entries:  make([]entry, params.MaxQueue),
		filter:   filter,
		bad:      bad,
		params:   params,
		rngState: 0x9e3779b97f4a7c15,
	}
}

// EnqueueOutcome describes the result of an Enqueue call.
type EnqueueOutcome int

const (
	// Accepted means the record was installed in a free slot.
	Accepted EnqueueOutcome = iota
	// RejectedZeroAmount means amount == 0.
	RejectedZeroAmount
	// RejectedKnownUID means the uniqueness filter already reports uid.
	RejectedKnownUID
	// RejectedDuplicatePending means an identical uid is already
	// pending; dropped silently, no propagation.
	RejectedDuplicatePending
	// DoubleSpendDetected means a conflicting pending entry for the same
	// sender was found and invalidated; the caller must propagate.
	DoubleSpendDetected
	// RejectedFull means no free slot was available.
	RejectedFull
)

// Enqueue attempts to admit record into the pending pool.
func (q *Queue) Enqueue(record *wire.TxRecord, immediateIP, referredIP net.IP, isReplay bool) EnqueueOutcome {
	if record.Amount == 0 {
		return RejectedZeroAmount
	}
	if q.filter.HasUID(record.UID) {
		return RejectedKnownUID
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	// Pass 1: double-spend detection takes priority over a plain
	// duplicate-uid drop, so it is scanned for first across the whole
	// table.
	for i := range q.entries {
		e := &q.entries[i]
		if !e.occupied {
			continue
		}
		if e.record.From == record.From && e.record.To != record.To && !e.isReplay && !isReplay {
			if q.bad != nil {
				q.bad.LogPair(&e.record, record)
			}
			log.Infof("txqueue: double spend from pending uid %d vs %d, pending entry invalidated", e.record.UID, record.UID)
			*e = entry{}
			q.filter.AddUID(record.UID, q.params.DoubleSpendBlock)
			if slot := q.freeSlotLocked(); slot != -1 {
				q.insertLocked(slot, record, immediateIP, referredIP, isReplay)
			}
			return DoubleSpendDetected
		}
	}

	// Pass 2: an identical pending uid is a harmless repeat, not a
	// double spend — drop silently.
	for i := range q.entries {
		e := &q.entries[i]
		if e.occupied && e.record.UID == record.UID {
			return RejectedDuplicatePending
		}
	}

	slot := q.freeSlotLocked()
	if slot == -1 {
		return RejectedFull
	}
	q.insertLocked(slot, record, immediateIP, referredIP, isReplay)
	q.filter.AddUID(record.UID, q.params.UIDWindow)
	return Accepted
}

func (q *Queue) freeSlotLocked() int {
	for i := range q.entries {
		if !q.entries[i].occupied {
			return i
		}
	}
	return -1
}

func (q *Queue) insertLocked(slot int, record *wire.TxRecord, immediateIP, referredIP net.IP, isReplay bool) {
	q.entries[slot] = entry{
		record:      *record,
		immediateIP: immediateIP,
		referredIP:  referredIP,
		isReplay:    isReplay,
		enqueuedAt:  time.Now(),
		occupied:    true,
	}
}

// next advances a small xorshift generator; avoids a dependency on
// math/rand for a single hot-path index pick.
func (q *Queue) next() uint64 {
	x := q.rngState
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	q.rngState = x
	return x
}

// Dequeue picks a random starting index and searches both directions
// for a non-empty slot whose record is either a replay or has sat in
// the pool longer than the grace period. Returns false if nothing is
// eligible.
func (q *Queue) Dequeue() (rec wire.TxRecord, immediateIP, referredIP net.IP, isReplay bool, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.entries)
	if n == 0 {
		return wire.TxRecord{}, nil, nil, false, false
	}
	start := int(q.next() % uint64(n))
	now := time.Now()

	for d := 0; d < n; d++ {
		for _, i := range [2]int{(start + d) % n, (start - d + n) % n} {
			e := &q.entries[i]
			if !e.occupied {
				continue
			}
			if e.isReplay || now.Sub(e.enqueuedAt) >= q.params.DequeueGraceTime {
				rec, immediateIP, referredIP, isReplay = e.record, e.immediateIP, e.referredIP, e.isReplay
				*e = entry{}
				return rec, immediateIP, referredIP, isReplay, true
			}
		}
	}
	return wire.TxRecord{}, nil, nil, false, false
}

// Len reports the number of currently occupied slots.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for i := range q.entries {
		if q.entries[i].occupied {
			n++
		}
	}
	return n
}
