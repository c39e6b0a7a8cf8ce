// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vfcec

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// PrivateKey is a private scalar on the fixed curve.
type PrivateKey struct {
	D *big.Int
}

// PubKey derives the public key corresponding to priv.
func (priv *PrivateKey) PubKey() *PublicKey {
	curve := curveParams
	x, y := curve.ScalarBaseMult(priv.D.Bytes())
	return &PublicKey{X: x, Y: y}
}

// Serialize returns the raw 24-byte big-endian encoding of the private
// scalar.
func (priv *PrivateKey) Serialize() []byte {
	b := make([]byte, FieldByteSize)
	d := priv.D.Bytes()
	copy(b[FieldByteSize-len(d):], d)
	return b
}

// GeneratePrivateKey generates a private key using OS entropy.
func GeneratePrivateKey() (*PrivateKey, error) {
	for {
		buf := make([]byte, FieldByteSize)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		d := new(big.Int).SetBytes(buf)
		if d.Sign() == 0 || d.Cmp(curveParams.N) >= 0 {
			continue
		}
		return &PrivateKey{D: d}, nil
	}
}

// PrivKeyFromBytes parses priv as a big-endian scalar and returns both
// the private key and its derived public key.
func PrivKeyFromBytes(priv []byte) (*PrivateKey, *PublicKey) {
	d := new(big.Int).SetBytes(priv)
	pk := &PrivateKey{D: d}
	return pk, pk.PubKey()
}

// ParsePrivateKey parses and range-checks a 24-byte private scalar.
func ParsePrivateKey(priv []byte) (*PrivateKey, error) {
	if len(priv) != FieldByteSize {
		return nil, fmt.Errorf("vfcec: invalid private key length %d", len(priv))
	}
	d := new(big.Int).SetBytes(priv)
	if d.Sign() == 0 || d.Cmp(curveParams.N) >= 0 {
		return nil, fmt.Errorf("vfcec: private key scalar out of range")
	}
	return &PrivateKey{D: d}, nil
}
