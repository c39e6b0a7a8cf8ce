// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package uniqset

import (
	"sync"
	"time"
)

// ringEntry pairs a uid with its expiry.
type ringEntry struct {
	uid       uint64
	valid     bool
	expiresAt int64
}

// Ring is the small, exact "recently executed" guard consulted only
// inside the ledger append lock. It is a last-line defense against races
// that escape the coarse-grained uniqueness Filter, not a replacement
// for it — both tiers are kept, each catching what the other misses.
type Ring struct {
	mu      sync.Mutex
	entries []ringEntry
	window  time.Duration
}

// DefaultRingSize holds a few hundred entries, enough to cover the
// window between a probabilistic-filter miss and ledger commit.
const DefaultRingSize = 256

// NewRing constructs a Ring with the given capacity and per-entry
// expiry window (3 seconds is the conventional choice).
func NewRing(size int, window time.Duration) *Ring {
	return &Ring{entries: make([]ringEntry, size), window: window}
}

// Contains reports whether uid is present and unexpired. On a miss, it
// evicts the first expired slot (falling back to the slot with the
// smallest expiry if none are expired) and inserts uid.
//
// MUST be called with the ledger append lock held.
func (r *Ring) Contains(uid uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := now()
	for i := range r.entries {
		e := &r.entries[i]
		if e.valid && e.uid == uid && e.expiresAt > t {
			return true
		}
	}

	slot := -1
	oldest := -1
	for i := range r.entries {
		e := &r.entries[i]
		if !e.valid || e.expiresAt <= t {
			slot = i
			break
		}
		if oldest == -1 || e.expiresAt < r.entries[oldest].expiresAt {
			oldest = i
		}
	}
	if slot == -1 {
		slot = oldest
	}
	r.entries[slot] = ringEntry{uid: uid, valid: true, expiresAt: t + int64(r.window/time.Second)}
	return false
}
