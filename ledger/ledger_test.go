// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"path/filepath"
	"testing"

	"github.com/vfcsuite/vfcd/wire"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "blocks.dat"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpenSeedsGenesis(t *testing.T) {
	s := openTestStore(t)

	height, err := s.Height()
	if err != nil {
		t.Fatalf("Height: %v", err)
	}
	if height != 1 {
		t.Fatalf("height = %d, want 1", height)
	}

	var seen int
	err = s.Scan(func(index uint64, rec *wire.TxRecord) bool {
		seen++
		if !wire.IsGenesis(rec) {
			t.Fatalf("record 0 is not genesis")
		}
		return true
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if seen != 1 {
		t.Fatalf("scanned %d records, want 1", seen)
	}
}

func TestAppendThenScan(t *testing.T) {
	s := openTestStore(t)

	var rec wire.TxRecord
	rec.UID = 7
	rec.Amount = 500
	if err := s.Append(&rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	height, err := s.Height()
	if err != nil {
		t.Fatalf("Height: %v", err)
	}
	if height != 2 {
		t.Fatalf("height = %d, want 2", height)
	}

	byteLen, err := s.ByteLength()
	if err != nil {
		t.Fatalf("ByteLength: %v", err)
	}
	if byteLen != height*wire.RecordSize {
		t.Fatalf("byte length %d != height*RecordSize (%d)", byteLen, height*wire.RecordSize)
	}

	var lastUID uint64
	err = s.Scan(func(index uint64, r *wire.TxRecord) bool {
		lastUID = r.UID
		return true
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if lastUID != 7 {
		t.Fatalf("last uid = %d, want 7", lastUID)
	}
}

func TestTruncateFromFirstBad(t *testing.T) {
	s := openTestStore(t)

	for uid := uint64(1); uid <= 3; uid++ {
		var rec wire.TxRecord
		rec.UID = uid
		rec.Amount = 100
		if err := s.Append(&rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	height, _ := s.Height()
	if height != 4 {
		t.Fatalf("height = %d, want 4 (genesis + 3)", height)
	}

	// Treat every record whose uid == 2 as invalid, simulating a bad
	// signature at that position.
	err := s.TruncateFromFirstBad(10, func(rec *wire.TxRecord) bool {
		return rec.UID != 2
	})
	if err != nil {
		t.Fatalf("TruncateFromFirstBad: %v", err)
	}

	height, _ = s.Height()
	if height != 2 {
		t.Fatalf("height after truncate = %d, want 2 (genesis + uid 1)", height)
	}
}
