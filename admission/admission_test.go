// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package admission

import (
	"path/filepath"
	"testing"

	"github.com/vfcsuite/vfcd/chainhash"
	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/uniqset"
	"github.com/vfcsuite/vfcd/vfcec"
	"github.com/vfcsuite/vfcd/wire"
)

func newTestPipeline(t *testing.T) (*Pipeline, *ledger.Store) {
	t.Helper()
	dir := t.TempDir()
	store, err := ledger.Open(filepath.Join(dir, "blocks.dat"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	ring := uniqset.NewRing(uniqset.DefaultRingSize, chainparams.MainNetParams().RecentExecWindow)
	params := chainparams.MainNetParams()
	p, err := New(params, store, ring)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, store
}

func genKeyPair(t *testing.T) (*vfcec.PrivateKey, *vfcec.PublicKey) {
	t.Helper()
	priv, err := vfcec.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	return priv, priv.PubKey()
}

func signedRecord(t *testing.T, from *vfcec.PrivateKey, fromPub, toPub *vfcec.PublicKey, uid uint64, amount uint32) *wire.TxRecord {
	t.Helper()
	var rec wire.TxRecord
	rec.UID = uid
	copy(rec.From[:], fromPub.Serialize())
	copy(rec.To[:], toPub.Serialize())
	rec.Amount = amount

	digest := chainhash.HashB(rec.SigningBytes())
	sig, err := from.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	copy(rec.Signature[:], sig.Serialize())
	return &rec
}

func fundSender(t *testing.T, store *ledger.Store, senderPub *vfcec.PublicKey, amount uint32) {
	t.Helper()
	// Simulate a prior, already-admitted transfer crediting senderPub,
	// bypassing Admit since the payer's identity is irrelevant here.
	_, payerPub := genKeyPair(t)
	var rec wire.TxRecord
	rec.UID = 0xFEEDFACE
	copy(rec.From[:], payerPub.Serialize())
	copy(rec.To[:], senderPub.Serialize())
	rec.Amount = amount
	if err := store.Append(&rec); err != nil {
		t.Fatalf("fundSender append: %v", err)
	}
}

func TestAdmitRejectsBadSignature(t *testing.T) {
	p, _ := newTestPipeline(t)
	fromPriv, fromPub := genKeyPair(t)
	_, toPub := genKeyPair(t)

	rec := signedRecord(t, fromPriv, fromPub, toPub, 1, 10)
	rec.Signature[0] ^= 0xFF // corrupt

	result, err := p.Admit(rec)
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if result != SigFail {
		t.Fatalf("result = %v, want SigFail", result)
	}
}

func TestAdmitSelfTransferAcceptedWithoutAppend(t *testing.T) {
	p, store := newTestPipeline(t)
	priv, pub := genKeyPair(t)
	fundSender(t, store, pub, 500)

	heightBefore, _ := store.Height()

	rec := signedRecord(t, priv, pub, pub, 1, 500)
	result, err := p.Admit(rec)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if result != Accepted {
		t.Fatalf("result = %v, want Accepted", result)
	}

	heightAfter, _ := store.Height()
	if heightAfter != heightBefore {
		t.Fatalf("self-transfer changed ledger height: %d -> %d", heightBefore, heightAfter)
	}
}

// A self-transfer still needs the balance to cover its own amount: the
// NoFunds check runs before the self-transfer short-circuit, not after.
func TestAdmitSelfTransferRejectsInsufficientFunds(t *testing.T) {
	p, store := newTestPipeline(t)
	priv, pub := genKeyPair(t)
	fundSender(t, store, pub, 10)

	heightBefore, _ := store.Height()

	rec := signedRecord(t, priv, pub, pub, 1, 500)
	result, err := p.Admit(rec)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if result != NoFunds {
		t.Fatalf("result = %v, want NoFunds", result)
	}

	heightAfter, _ := store.Height()
	if heightAfter != heightBefore {
		t.Fatalf("rejected self-transfer changed ledger height: %d -> %d", heightBefore, heightAfter)
	}
}

func TestAdmitRejectsInsufficientFunds(t *testing.T) {
	p, _ := newTestPipeline(t)
	fromPriv, fromPub := genKeyPair(t)
	_, toPub := genKeyPair(t)

	rec := signedRecord(t, fromPriv, fromPub, toPub, 1, 10)
	result, err := p.Admit(rec)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if result != NoFunds {
		t.Fatalf("result = %v, want NoFunds", result)
	}
}

func TestAdmitAcceptsFundedTransferAndAppends(t *testing.T) {
	p, store := newTestPipeline(t)
	fromPriv, fromPub := genKeyPair(t)
	_, toPub := genKeyPair(t)

	fundSender(t, store, fromPub, 1000)
	heightBefore, _ := store.Height()

	rec := signedRecord(t, fromPriv, fromPub, toPub, 42, 300)
	result, err := p.Admit(rec)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if result != Accepted {
		t.Fatalf("result = %v, want Accepted", result)
	}

	heightAfter, _ := store.Height()
	if heightAfter != heightBefore+1 {
		t.Fatalf("height = %d, want %d after a funded transfer", heightAfter, heightBefore+1)
	}
}

func TestAdmitRejectsDuplicateUID(t *testing.T) {
	p, store := newTestPipeline(t)
	fromPriv, fromPub := genKeyPair(t)
	_, toPub := genKeyPair(t)

	fundSender(t, store, fromPub, 1000)

	first := signedRecord(t, fromPriv, fromPub, toPub, 7, 100)
	if result, err := p.Admit(first); err != nil || result != Accepted {
		t.Fatalf("first Admit: result=%v err=%v", result, err)
	}

	second := signedRecord(t, fromPriv, fromPub, toPub, 7, 50)
	result, err := p.Admit(second)
	if err != nil {
		t.Fatalf("second Admit: %v", err)
	}
	if result != UIDExists {
		t.Fatalf("result = %v, want UIDExists", result)
	}
}

func TestAdmitRingSuppressesConcurrentDuplicateAppend(t *testing.T) {
	p, store := newTestPipeline(t)
	fromPriv, fromPub := genKeyPair(t)
	_, toPub := genKeyPair(t)

	fundSender(t, store, fromPub, 1000)
	rec := signedRecord(t, fromPriv, fromPub, toPub, 99, 100)

	// Simulate a concurrent admission of the identical record that has
	// already reached the commit section: pre-seed the ring so this
	// Admit's own ring check hits.
	p.ring.Contains(rec.UID)

	heightBefore, _ := store.Height()
	result, err := p.Admit(rec)
	if err != nil {
		t.Fatalf("Admit: %v", err)
	}
	if result != Accepted {
		t.Fatalf("result = %v, want Accepted (ring-suppressed duplicate)", result)
	}
	heightAfter, _ := store.Height()
	if heightAfter != heightBefore {
		t.Fatalf("ring-suppressed duplicate still appended: height %d -> %d", heightBefore, heightAfter)
	}
}
