// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

//go:build unix

package ledger

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/vfcsuite/vfcd/wire"
)

// scanMmap implements the 64-bit read path: the ledger file is
// memory-mapped and scanned in place rather than read with a sequence
// of positioned reads.
func (s *Store) scanMmap(visit Visit) error {
	s.mu.Lock()
	fi, err := s.file.Stat()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	size := fi.Size()
	if size == 0 {
		s.mu.Unlock()
		return nil
	}

	data, err := unix.Mmap(int(s.file.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("ledger: mmap: %w", err)
	}
	defer unix.Munmap(data)

	recordCount := uint64(size) / wire.RecordSize
	for idx := uint64(0); idx < recordCount; idx++ {
		off := idx * wire.RecordSize
		rec, err := wire.DecodeTxRecord(data[off : off+wire.RecordSize])
		if err != nil {
			return err
		}
		if !visit(idx, rec) {
			return nil
		}
	}
	return nil
}
