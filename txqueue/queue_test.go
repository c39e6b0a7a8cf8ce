// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package txqueue

import (
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/uniqset"
	"github.com/vfcsuite/vfcd/wire"
)

func newTestQueue(t *testing.T, maxQueue int) *Queue {
	t.Helper()
	params := chainparams.MainNetParams()
	params.MaxQueue = maxQueue
	params.DequeueGraceTime = 0

	bad, err := ledger.OpenBadBlocks(filepath.Join(t.TempDir(), "bad_blocks.dat"))
	if err != nil {
		t.Fatalf("OpenBadBlocks: %v", err)
	}
	t.Cleanup(func() { bad.Close() })

	return New(params, uniqset.New(1111), bad)
}

func rec(uid uint64, from, to byte, amount uint32) *wire.TxRecord {
	var r wire.TxRecord
	r.UID = uid
	r.From[0] = from
	r.To[0] = to
	r.Amount = amount
	return &r
}

func TestEnqueueRejectsZeroAmount(t *testing.T) {
	q := newTestQueue(t, 8)
	if got := q.Enqueue(rec(1, 1, 2, 0), nil, nil, false); got != RejectedZeroAmount {
		t.Fatalf("Enqueue = %v, want RejectedZeroAmount", got)
	}
}

func TestEnqueueAcceptsThenDuplicateUIDDropped(t *testing.T) {
	q := newTestQueue(t, 8)
	if got := q.Enqueue(rec(1, 1, 2, 100), nil, nil, false); got != Accepted {
		t.Fatalf("first Enqueue = %v, want Accepted", got)
	}
	if got := q.Enqueue(rec(1, 1, 3, 100), nil, nil, false); got != RejectedKnownUID {
		t.Fatalf("repeat uid after admission into the filter = %v, want RejectedKnownUID", got)
	}
}

func TestEnqueueDuplicatePendingDroppedSilently(t *testing.T) {
	// Give the uniqueness filter a window that expires instantly, so the
	// second enqueue of the same uid reaches the pending-table scan
	// (rather than being rejected earlier by the filter) while the first
	// copy is still sitting in the queue.
	params := chainparams.MainNetParams()
	params.MaxQueue = 8
	params.UIDWindow = -time.Second

	bad, err := ledger.OpenBadBlocks(filepath.Join(t.TempDir(), "bad_blocks.dat"))
	if err != nil {
		t.Fatalf("OpenBadBlocks: %v", err)
	}
	defer bad.Close()

	q := New(params, uniqset.New(1111), bad)

	if got := q.Enqueue(rec(1, 1, 2, 100), nil, nil, false); got != Accepted {
		t.Fatalf("first Enqueue = %v, want Accepted", got)
	}
	if got := q.Enqueue(rec(1, 1, 2, 100), nil, nil, false); got != RejectedDuplicatePending {
		t.Fatalf("second Enqueue = %v, want RejectedDuplicatePending", got)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (duplicate dropped, not inserted)", q.Len())
	}
}

func TestEnqueueDoubleSpendDetected(t *testing.T) {
	q := newTestQueue(t, 8)

	q.Enqueue(rec(1, 1, 2, 100), nil, nil, false)
	got := q.Enqueue(rec(2, 1, 3, 100), nil, nil, false)
	if got != DoubleSpendDetected {
		t.Fatalf("Enqueue = %v, want DoubleSpendDetected", got)
	}
	if q.Len() != 1 {
		t.Fatalf("Len = %d after double spend, want 1 (old invalidated, new inserted)", q.Len())
	}
}

func TestEnqueueFullTable(t *testing.T) {
	q := newTestQueue(t, 1)
	q.Enqueue(rec(1, 1, 2, 100), nil, nil, false)
	if got := q.Enqueue(rec(2, 3, 4, 100), nil, nil, false); got != RejectedFull {
		t.Fatalf("Enqueue on full table = %v, want RejectedFull", got)
	}
}

func TestDequeueRespectsGracePeriod(t *testing.T) {
	params := chainparams.MainNetParams()
	params.MaxQueue = 4
	params.DequeueGraceTime = time.Hour

	bad, err := ledger.OpenBadBlocks(filepath.Join(t.TempDir(), "bad_blocks.dat"))
	if err != nil {
		t.Fatalf("OpenBadBlocks: %v", err)
	}
	defer bad.Close()

	q := New(params, uniqset.New(1111), bad)
	q.Enqueue(rec(1, 1, 2, 100), net.ParseIP("8.8.8.8"), nil, false)

	if _, _, _, _, ok := q.Dequeue(); ok {
		t.Fatalf("Dequeue returned an entry still inside its grace period")
	}

	// A replay entry bypasses the grace period entirely.
	q2 := New(params, uniqset.New(1111), bad)
	q2.Enqueue(rec(2, 1, 2, 100), net.ParseIP("8.8.8.8"), nil, true)
	if _, _, _, _, ok := q2.Dequeue(); !ok {
		t.Fatalf("Dequeue did not return a replay entry immediately")
	}
}
