// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vfcec

import (
	"encoding/binary"
	"io"
	"math/big"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/sha3"
)

// hkdfInfo is the domain-separation string used when expanding a seed
// into a private scalar.
var hkdfInfo = []byte("vfcd-seeded-key-v1")

// PrivKeyFromSeed deterministically derives a private key from a
// 4x64-bit seed. The same seed always yields the same key.
func PrivKeyFromSeed(seed [4]uint64) (*PrivateKey, error) {
	secret := make([]byte, 32)
	for i, w := range seed {
		binary.LittleEndian.PutUint64(secret[i*8:], w)
	}

	kdf := hkdf.New(sha3.New256, secret, nil, hkdfInfo)

	for {
		buf := make([]byte, FieldByteSize)
		if _, err := io.ReadFull(kdf, buf); err != nil {
			return nil, err
		}
		d := new(big.Int).SetBytes(buf)
		if d.Sign() != 0 && d.Cmp(curveParams.N) < 0 {
			return &PrivateKey{D: d}, nil
		}
		// Vanishingly unlikely; draw the next block from the same
		// expansion rather than re-seeding.
	}
}
