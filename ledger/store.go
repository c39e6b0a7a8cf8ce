// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ledger implements the append-only transaction ledger: a flat
// file of fixed-width records, scanned sequentially (or memory-mapped
// for reads on 64-bit hosts), with a parallel bad-blocks log and a
// non-authoritative uid→offset index. The index is kept up to date on
// append; balance and uid scans read the flat file and do not consult it.
package ledger

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/decred/slog"

	"github.com/vfcsuite/vfcd/wire"
)

// log is the subsystem logger; wired up via UseLogger from the node's
// log.go.
var log = slog.Disabled

// UseLogger sets the subsystem logger used by this package.
func UseLogger(l slog.Logger) {
	log = l
}

// maxAppendRetries bounds the retry-on-short-write loop of append.
const maxAppendRetries = 333

// ErrShortWrite is returned (after retries are exhausted) when the
// ledger file cannot accept a full record.
var ErrShortWrite = errors.New("ledger: repeated short writes appending record")

// ErrShortRead is returned (after retries are exhausted) when a scan
// cannot read a full record.
var ErrShortRead = errors.New("ledger: repeated short reads during scan")

// errIOCounter is incremented on every I/O failure, a single global
// counter shared across all Store instances in the process.
var errIOCounter struct {
	mu    sync.Mutex
	count uint64
}

func bumpErrCounter() {
	errIOCounter.mu.Lock()
	errIOCounter.count++
	errIOCounter.mu.Unlock()
}

// ErrorCount returns the number of I/O failures observed so far.
func ErrorCount() uint64 {
	errIOCounter.mu.Lock()
	defer errIOCounter.mu.Unlock()
	return errIOCounter.count
}

// Store is the append-only ledger file.
//
// Appends must be externally serialized by the caller (the admission
// pipeline's commit lock) — Store itself does not re-derive that
// guarantee; it assumes a single writer path.
type Store struct {
	path string

	mu   sync.Mutex // guards file and height bookkeeping
	file *os.File

	index *Index // optional uid->offset accelerator, may be nil
}

// Open opens (creating if necessary) the ledger file at path. If the
// file is empty, the genesis record is appended first.
func Open(path string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, err
	}
	s := &Store{path: path, file: f}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		genesis, err := wire.GenesisRecord()
		if err != nil {
			f.Close()
			return nil, err
		}
		if _, err := f.Write(genesis.Bytes()); err != nil {
			f.Close()
			return nil, err
		}
	} else if fi.Size()%wire.RecordSize != 0 {
		// A crash mid-append left a partial trailing record; truncate
		// it back to the last full record boundary.
		full := (fi.Size() / wire.RecordSize) * wire.RecordSize
		if err := f.Truncate(full); err != nil {
			f.Close()
			return nil, err
		}
		log.Warnf("ledger: truncated partial trailing record on open (%s)", path)
	}

	return s, nil
}

// AttachIndex wires in the uid->offset index built by Rebuild.
func (s *Store) AttachIndex(idx *Index) {
	s.index = idx
}

// Height returns the number of records currently in the ledger
// (filesize / RecordSize).
func (s *Store) Height() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, err := s.file.Stat()
	if err != nil {
		bumpErrCounter()
		return 0, err
	}
	return uint64(fi.Size()) / wire.RecordSize, nil
}

// ByteLength returns the current file size in bytes.
func (s *Store) ByteLength() (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fi, err := s.file.Stat()
	if err != nil {
		bumpErrCounter()
		return 0, err
	}
	return uint64(fi.Size()), nil
}

// Append atomically adds one record at the tail. On a short write the
// tail is truncated back to the previous record boundary and the write
// is retried, up to maxAppendRetries times.
//
// MUST be called with the caller's commit lock held; Store.mu only
// protects this Store's own bookkeeping, not cross-goroutine admission
// ordering.
func (s *Store) Append(rec *wire.TxRecord) error {
	buf := rec.Bytes()

	s.mu.Lock()
	defer s.mu.Unlock()

	for attempt := 0; attempt < maxAppendRetries; attempt++ {
		fi, err := s.file.Stat()
		if err != nil {
			bumpErrCounter()
			return err
		}
		offset := fi.Size()

		n, err := s.file.WriteAt(buf, offset)
		if err == nil && n == len(buf) {
			if s.index != nil {
				s.index.Put(rec.UID, uint64(offset))
			}
			return nil
		}

		bumpErrCounter()
		// Truncate the short write and retry.
		if terr := s.file.Truncate(offset + int64(n)); terr != nil {
			return fmt.Errorf("ledger: truncate after short write: %w", terr)
		}
		if terr := s.file.Truncate(offset); terr != nil {
			return fmt.Errorf("ledger: truncate to boundary: %w", terr)
		}
	}
	return ErrShortWrite
}

// Visit is called once per record during a scan, in ledger order,
// together with the record's zero-based index.
type Visit func(index uint64, rec *wire.TxRecord) (cont bool)

// Scan reads every record in order, calling visit for each. On 64-bit
// hosts the file is memory-mapped for the read path; elsewhere (or if
// the map fails) it falls back to positioned reads with bounded retry
// on transient failure.
func (s *Store) Scan(visit Visit) error {
	if is64Bit() {
		if err := s.scanMmap(visit); err == nil {
			return nil
		}
		// fall through to the positioned-read path on mmap failure
	}
	return s.scanPositioned(visit)
}

func (s *Store) scanPositioned(visit Visit) error {
	s.mu.Lock()
	path := s.path
	s.mu.Unlock()

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	buf := make([]byte, wire.RecordSize)
	var idx uint64
	var offset int64
	for {
		n, err := readFullAt(f, buf, offset)
		if err != nil {
			if err == errEOF {
				return nil
			}
			bumpErrCounter()
			return err
		}
		if n != len(buf) {
			return ErrShortRead
		}
		rec, err := wire.DecodeTxRecord(buf)
		if err != nil {
			return err
		}
		if !visit(idx, rec) {
			return nil
		}
		idx++
		offset += int64(wire.RecordSize)
	}
}

var errEOF = errors.New("ledger: eof")

const maxReadRetries = 333

func readFullAt(f *os.File, buf []byte, offset int64) (int, error) {
	var lastErr error
	for attempt := 0; attempt < maxReadRetries; attempt++ {
		n, err := f.ReadAt(buf, offset)
		if n == len(buf) {
			return n, nil
		}
		if n == 0 && err != nil && isEOF(err) {
			return 0, errEOF
		}
		lastErr = err
	}
	return 0, lastErr
}

func isEOF(err error) bool {
	return err != nil && err.Error() == "EOF"
}

func is64Bit() bool {
	return runtime.GOARCH == "amd64" || runtime.GOARCH == "arm64" ||
		runtime.GOARCH == "ppc64" || runtime.GOARCH == "ppc64le" ||
		runtime.GOARCH == "mips64" || runtime.GOARCH == "mips64le" ||
		runtime.GOARCH == "riscv64" || runtime.GOARCH == "s390x"
}

// RecordAt reads the record at the given zero-based index directly,
// without a full scan. Used by the replay subsystem's tail/random-window
// streaming, where only a handful of specific offsets are needed.
func (s *Store) RecordAt(index uint64) (*wire.TxRecord, error) {
	s.mu.Lock()
	file := s.file
	s.mu.Unlock()

	buf := make([]byte, wire.RecordSize)
	n, err := readFullAt(file, buf, int64(index)*int64(wire.RecordSize))
	if err != nil {
		if err == errEOF {
			return nil, io.EOF
		}
		bumpErrCounter()
		return nil, err
	}
	if n != len(buf) {
		return nil, ErrShortRead
	}
	return wire.DecodeTxRecord(buf)
}

// TruncateFromFirstBad scans the last limit records, verifying each
// record's signature against its signing bytes, and truncates the file
// at the first record that fails. Genesis (record 0) is never checked.
func (s *Store) TruncateFromFirstBad(limit uint64, verify func(rec *wire.TxRecord) bool) error {
	height, err := s.Height()
	if err != nil {
		return err
	}
	start := uint64(0)
	if height > limit {
		start = height - limit
	}
	if start == 0 {
		start = 1 // never re-validate genesis
	}

	var badAt uint64 = height
	err = s.Scan(func(index uint64, rec *wire.TxRecord) bool {
		if index < start {
			return true
		}
		if !verify(rec) {
			badAt = index
			return false
		}
		return true
	})
	if err != nil {
		return err
	}
	if badAt >= height {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Truncate(int64(badAt) * int64(wire.RecordSize))
}

// Close releases the underlying file handle.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file.Close()
}
