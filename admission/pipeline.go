// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package admission implements the single-record validation and commit
// pipeline: signature verification, a balance-and-uid scan of the
// ledger, and a lock-guarded append consulting the short-lived
// duplicate-execution ring.
package admission

import (
	"fmt"
	"sync"

	"github.com/vfcsuite/vfcd/base58"
	"github.com/vfcsuite/vfcd/chainhash"
	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/mining"
	"github.com/vfcsuite/vfcd/uniqset"
	"github.com/vfcsuite/vfcd/vfcec"
	"github.com/vfcsuite/vfcd/wire"
)

// Result is the outcome of Admit. Zero means success; every failure is a
// distinct negative code. Results are not sent on the wire.
type Result int32

const (
	Accepted    Result = 0
	NoFunds     Result = -1
	SigFail     Result = -2
	UIDExists   Result = -3
	WriteFailed Result = -4
)

func (r Result) String() string {
	switch r {
	case Accepted:
		return "accepted"
	case NoFunds:
		return "no funds"
	case SigFail:
		return "signature failure"
	case UIDExists:
		return "uid already exists"
	case WriteFailed:
		return "write failed"
	default:
		return fmt.Sprintf("admission.Result(%d)", int32(r))
	}
}

// Pipeline validates and commits records against a single ledger. One
// Pipeline exists per node; it is safe for concurrent use by many
// admission workers.
type Pipeline struct {
	params        *chainparams.Params
	store         *ledger.Store
	ring          *uniqset.Ring
	genesisPubKey [wire.PubKeySize]byte
	hasGenesisKey bool

	commitMu sync.Mutex
}

// New constructs a Pipeline. store and ring must already be opened by
// the caller.
func New(params *chainparams.Params, store *ledger.Store, ring *uniqset.Ring) (*Pipeline, error) {
	p := &Pipeline{params: params, store: store, ring: ring}

	pub, err := base58.DecodeExact(params.GenesisPubKeyB58, wire.PubKeySize)
	if err != nil {
		return nil, fmt.Errorf("admission: decoding genesis public key: %w", err)
	}
	copy(p.genesisPubKey[:], pub)
	p.hasGenesisKey = true
	return p, nil
}

// Admit runs the full validation pipeline against rec and, on success,
// commits it to the ledger (unless it is a self-transfer, which is
// accepted without being appended). It never appends genesis, which the
// ledger writes itself on open; replayed records that reach the pending
// queue are admitted through Admit like live ones.
func (p *Pipeline) Admit(rec *wire.TxRecord) (Result, error) {
	senderPub, err := vfcec.ParsePubKey(rec.From[:])
	if err != nil {
		return SigFail, nil
	}
	sig, err := vfcec.ParseSignature(rec.Signature[:])
	if err != nil {
		return SigFail, nil
	}
	digest := chainhash.HashB(rec.SigningBytes())
	if !sig.Verify(digest, senderPub) {
		return SigFail, nil
	}

	height, err := p.store.Height()
	if err != nil {
		return WriteFailed, err
	}

	balance := p.startingBalance(rec.From, senderPub, height)
	uidExists := false
	scanErr := p.store.Scan(func(index uint64, r *wire.TxRecord) bool {
		if index == 0 {
			// Genesis carries the sentinel amount 0xFFFFFFFF; it is never
			// folded into a running balance.
			return true
		}
		if r.UID == rec.UID {
			uidExists = true
			return false
		}
		if r.To == rec.From {
			balance += r.Amount
		}
		if r.From == rec.From {
			balance -= r.Amount
		}
		return true
	})
	if scanErr != nil {
		return WriteFailed, scanErr
	}
	if uidExists {
		return UIDExists, nil
	}

	if uint64(balance) < uint64(rec.Amount) {
		return NoFunds, nil
	}

	if rec.SelfTransfer() {
		return Accepted, nil
	}

	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	if p.ring.Contains(rec.UID) {
		// Already committed within the ring's window by a concurrent
		// admission of the same record; treat as a successful no-op.
		return Accepted, nil
	}
	if err := p.store.Append(rec); err != nil {
		return WriteFailed, err
	}
	return Accepted, nil
}

// startingBalance is the implicit balance a sender carries before any
// ledger records are folded in: the inflation-tax accrual for the
// genesis key, the coin value for a valid subgenesis address, or zero.
func (p *Pipeline) startingBalance(senderBytes [wire.PubKeySize]byte, senderPub *vfcec.PublicKey, height uint64) uint32 {
	if p.hasGenesisKey && senderBytes == p.genesisPubKey {
		if height == 0 {
			return 0
		}
		return p.params.InflationTax * uint32(height-1)
	}
	if value, ok := mining.IsSubgenesis(senderPub); ok {
		return value
	}
	return 0
}
