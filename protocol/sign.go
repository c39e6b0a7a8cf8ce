// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/vfcsuite/vfcd/chainhash"
	"github.com/vfcsuite/vfcd/vfcec"
	"github.com/vfcsuite/vfcd/wire"
)

// signRecord fills in rec.Signature by hashing its signing form and
// signing the digest with priv.
func signRecord(rec *wire.TxRecord, priv *vfcec.PrivateKey) error {
	digest := chainhash.HashB(rec.SigningBytes())
	sig, err := priv.Sign(digest)
	if err != nil {
		return err
	}
	copy(rec.Signature[:], sig.Serialize())
	return nil
}

// newMID generates the node's discovery message ID: 7 random bytes
// exchanged in the probe/echo handshake.
func newMID() [wire.MIDSize]byte {
	var mid [wire.MIDSize]byte
	_, _ = rand.Read(mid[:])
	return mid
}

// nextUID generates a fresh random transaction uid for records the
// node authors itself (currently only master reward payouts).
func nextUID() uint64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}
