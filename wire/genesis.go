// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import "github.com/vfcsuite/vfcd/base58"

// GenesisAmount is the sentinel amount (all bits set) that marks the
// first record of the ledger.
const GenesisAmount uint32 = 0xFFFFFFFF

// GenesisRecord builds the canonical, unsigned genesis record: amount =
// 0xFFFFFFFF, to = the hardcoded genesis public key, every other field
// zero. It is not subject to admission checks.
func GenesisRecord() (*TxRecord, error) {
	pub, err := base58.DecodeExact(base58.GenesisPubKeyB58, PubKeySize)
	if err != nil {
		return nil, err
	}
	var rec TxRecord
	rec.Amount = GenesisAmount
	copy(rec.To[:], pub)
	return &rec, nil
}

// IsGenesis reports whether rec is structurally the genesis record.
func IsGenesis(rec *TxRecord) bool {
	if rec.Amount != GenesisAmount || rec.UID != 0 || rec.From != ([PubKeySize]byte{}) {
		return false
	}
	pub, err := base58.DecodeExact(base58.GenesisPubKeyB58, PubKeySize)
	if err != nil {
		return false
	}
	var want [PubKeySize]byte
	copy(want[:], pub)
	return rec.To == want
}
