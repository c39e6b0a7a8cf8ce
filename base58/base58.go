// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2013-2016 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package base58 provides checksum-less Base58 encoding of the fixed-size
// public and private keys used for textual display and the key sidecar
// files, along with the hardcoded genesis public key.
package base58

import (
	"fmt"

	excbase58 "github.com/EXCCoin/base58"
)

// GenesisPubKeyB58 is the Base58 literal baked into the protocol that the
// genesis record's "to" field decodes to.
const GenesisPubKeyB58 = "foxXshGUtLFD24G9pz48hRh3LWM58GXPYiRhNHUyZAPJ"

// Encode encodes b as a Base58 string with no checksum.
func Encode(b []byte) string {
	return excbase58.Encode(b)
}

// Decode decodes a Base58 string with no checksum.  The caller is
// responsible for validating the decoded length.
func Decode(s string) []byte {
	return excbase58.Decode(s)
}

// DecodeExact decodes s and verifies the result is exactly wantLen bytes,
// as required for public keys (25 bytes) and private keys (24 bytes).
func DecodeExact(s string, wantLen int) ([]byte, error) {
	b := Decode(s)
	if len(b) != wantLen {
		return nil, fmt.Errorf("base58: decoded length %d, want %d", len(b), wantLen)
	}
	return b, nil
}
