// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vfcec

import (
	"bytes"
	"testing"

	"github.com/davecgh/go-spew/spew"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	pub := priv.PubKey()

	digest := bytes.Repeat([]byte{0xAB}, 32)
	sig, err := priv.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if !sig.Verify(digest, pub) {
		t.Fatalf("signature failed to verify:\n%s", spew.Sdump(sig))
	}

	other := bytes.Repeat([]byte{0xCD}, 32)
	if sig.Verify(other, pub) {
		t.Fatalf("signature verified against the wrong digest")
	}
}

func TestPubKeySerializeRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	pub := priv.PubKey()

	enc := pub.Serialize()
	if len(enc) != PubKeyBytesLen {
		t.Fatalf("serialized pubkey length = %d, want %d", len(enc), PubKeyBytesLen)
	}

	parsed, err := ParsePubKey(enc)
	if err != nil {
		t.Fatalf("ParsePubKey: %v", err)
	}
	if parsed.X.Cmp(pub.X) != 0 || parsed.Y.Cmp(pub.Y) != 0 {
		t.Fatalf("round-tripped pubkey mismatch:\nwant %s\ngot  %s",
			spew.Sdump(pub), spew.Sdump(parsed))
	}
}

func TestSignatureSerializeRoundTrip(t *testing.T) {
	priv, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	digest := bytes.Repeat([]byte{0x01}, 32)
	sig, err := priv.Sign(digest)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	enc := sig.Serialize()
	if len(enc) != SignatureBytesLen {
		t.Fatalf("serialized signature length = %d, want %d", len(enc), SignatureBytesLen)
	}

	parsed, err := ParseSignature(enc)
	if err != nil {
		t.Fatalf("ParseSignature: %v", err)
	}
	if parsed.R.Cmp(sig.R) != 0 || parsed.S.Cmp(sig.S) != 0 {
		t.Fatalf("round-tripped signature mismatch")
	}
}

func TestPrivKeyFromSeedIsDeterministic(t *testing.T) {
	seed := [4]uint64{1, 2, 3, 4}

	priv1, err := PrivKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("PrivKeyFromSeed: %v", err)
	}
	priv2, err := PrivKeyFromSeed(seed)
	if err != nil {
		t.Fatalf("PrivKeyFromSeed: %v", err)
	}
	if priv1.D.Cmp(priv2.D) != 0 {
		t.Fatalf("same seed produced different private scalars")
	}

	otherSeed := [4]uint64{1, 2, 3, 5}
	priv3, err := PrivKeyFromSeed(otherSeed)
	if err != nil {
		t.Fatalf("PrivKeyFromSeed: %v", err)
	}
	if priv1.D.Cmp(priv3.D) == 0 {
		t.Fatalf("different seeds produced the same private scalar")
	}
}
