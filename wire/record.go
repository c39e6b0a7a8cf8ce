// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/vfcsuite/vfcd/vfcec"
)

// Field widths. All integers are little-endian.
const (
	UIDSize       = 8
	PubKeySize    = vfcec.PubKeyBytesLen // 25
	AmountSize    = 4
	SignatureSize = vfcec.SignatureBytesLen // 48

	// RecordSize is the fixed on-disk and on-wire width of one
	// transaction record.
	RecordSize = UIDSize + PubKeySize + PubKeySize + AmountSize + SignatureSize
)

// TxRecord is the fixed-width transaction record.
type TxRecord struct {
	UID       uint64
	From      [PubKeySize]byte
	To        [PubKeySize]byte
	Amount    uint32
	Signature [SignatureSize]byte
}

// Encode writes the record's fixed-width wire/disk encoding into buf,
// which must be at least RecordSize bytes.
func (r *TxRecord) Encode(buf []byte) {
	_ = buf[RecordSize-1]
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], r.UID)
	off += UIDSize
	copy(buf[off:], r.From[:])
	off += PubKeySize
	copy(buf[off:], r.To[:])
	off += PubKeySize
	binary.LittleEndian.PutUint32(buf[off:], r.Amount)
	off += AmountSize
	copy(buf[off:], r.Signature[:])
}

// Bytes returns the record's fixed-width encoding as a new slice.
func (r *TxRecord) Bytes() []byte {
	buf := make([]byte, RecordSize)
	r.Encode(buf)
	return buf
}

// DecodeTxRecord parses a fixed-width record from buf, which must be
// exactly RecordSize bytes.
func DecodeTxRecord(buf []byte) (*TxRecord, error) {
	if len(buf) != RecordSize {
		return nil, fmt.Errorf("wire: invalid record length %d, want %d", len(buf), RecordSize)
	}
	var r TxRecord
	off := 0
	r.UID = binary.LittleEndian.Uint64(buf[off:])
	off += UIDSize
	copy(r.From[:], buf[off:off+PubKeySize])
	off += PubKeySize
	copy(r.To[:], buf[off:off+PubKeySize])
	off += PubKeySize
	r.Amount = binary.LittleEndian.Uint32(buf[off : off+AmountSize])
	off += AmountSize
	copy(r.Signature[:], buf[off:])
	return &r, nil
}

// SigningBytes returns the bytes to be digested for signing/verification:
// the full record with the signature field zeroed, since the hash is
// taken before the signature is assigned.
func (r *TxRecord) SigningBytes() []byte {
	clone := *r
	clone.Signature = [SignatureSize]byte{}
	return clone.Bytes()
}

// SelfTransfer reports whether the record moves funds from an address to
// itself (permitted, but never appended to the ledger).
func (r *TxRecord) SelfTransfer() bool {
	return r.From == r.To
}
