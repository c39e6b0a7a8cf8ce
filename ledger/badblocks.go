// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"os"
	"sync"

	"github.com/vfcsuite/vfcd/wire"
)

// BadBlocks is the append-only log of conflicting record pairs detected
// during double-spend handling.
type BadBlocks struct {
	mu   sync.Mutex
	file *os.File
}

// OpenBadBlocks opens (creating if necessary) the bad-blocks file at
// path.
func OpenBadBlocks(path string) (*BadBlocks, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0600)
	if err != nil {
		return nil, err
	}
	return &BadBlocks{file: f}, nil
}

// LogPair appends the two conflicting records as a single pair entry.
func (b *BadBlocks) LogPair(a, c *wire.TxRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := make([]byte, 2*wire.RecordSize)
	a.Encode(buf[:wire.RecordSize])
	c.Encode(buf[wire.RecordSize:])
	_, err := b.file.Write(buf)
	return err
}

// Close releases the underlying file handle.
func (b *BadBlocks) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
