// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package ledger

import (
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/vfcsuite/vfcd/wire"
)

// Index is a non-authoritative uid->offset accelerator backed by
// goleveldb. The flat-file ledger remains the source of truth; this
// index is rebuilt from a fresh Scan at startup and updated on append.
// No balance or uid scan consults it; Lookup is its only read path.
type Index struct {
	db *leveldb.DB
}

// OpenIndex opens (creating if necessary) the index at path.
func OpenIndex(path string) (*Index, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}
	return &Index{db: db}, nil
}

// Put records that uid was written at byte offset off.
func (idx *Index) Put(uid uint64, off uint64) {
	var key, val [8]byte
	binary.LittleEndian.PutUint64(key[:], uid)
	binary.LittleEndian.PutUint64(val[:], off)
	// Best-effort: a failed index write only costs a slower future
	// scan, never correctness, since the flat file remains canonical.
	_ = idx.db.Put(key[:], val[:], nil)
}

// Lookup returns the byte offset last recorded for uid, if any.
func (idx *Index) Lookup(uid uint64) (offset uint64, ok bool) {
	var key [8]byte
	binary.LittleEndian.PutUint64(key[:], uid)
	val, err := idx.db.Get(key[:], nil)
	if err != nil || len(val) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(val), true
}

// Rebuild clears and repopulates the index from a fresh ledger scan.
func Rebuild(store *Store, path string) (*Index, error) {
	idx, err := OpenIndex(path)
	if err != nil {
		return nil, err
	}
	iter := idx.db.NewIterator(nil, nil)
	for iter.Next() {
		_ = idx.db.Delete(iter.Key(), nil)
	}
	iter.Release()
	err = store.Scan(func(i uint64, rec *wire.TxRecord) bool {
		idx.Put(rec.UID, i*wire.RecordSize)
		return true
	})
	if err != nil {
		idx.Close()
		return nil, err
	}
	return idx, nil
}

// Close releases the underlying database handle.
func (idx *Index) Close() error {
	return idx.db.Close()
}
