// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vfcec

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Signature is an ECDSA signature (r, s) on the fixed curve.
type Signature struct {
	R *big.Int
	S *big.Int
}

// Serialize returns the 48-byte raw encoding: r (24 bytes) followed by s
// (24 bytes), both big-endian.
func (sig *Signature) Serialize() []byte {
	out := make([]byte, SignatureBytesLen)
	rb := sig.R.Bytes()
	copy(out[FieldByteSize-len(rb):FieldByteSize], rb)
	sb := sig.S.Bytes()
	copy(out[SignatureBytesLen-len(sb):], sb)
	return out
}

// ParseSignature decodes a 48-byte raw signature.
func ParseSignature(data []byte) (*Signature, error) {
	if len(data) != SignatureBytesLen {
		return nil, fmt.Errorf("vfcec: invalid signature length %d", len(data))
	}
	r := new(big.Int).SetBytes(data[:FieldByteSize])
	s := new(big.Int).SetBytes(data[FieldByteSize:])
	return &Signature{R: r, S: s}, nil
}

// Sign produces an ECDSA signature over digest (expected to be a 32-byte
// SHA3-256 hash; longer digests are truncated to the curve's bit length
// per the standard ECDSA convention).
func (priv *PrivateKey) Sign(digest []byte) (*Signature, error) {
	n := curveParams.N
	z := hashToInt(digest)

	for {
		k, err := randFieldElement()
		if err != nil {
			return nil, err
		}
		rx, _ := curveParams.ScalarBaseMult(k.Bytes())
		r := new(big.Int).Mod(rx, n)
		if r.Sign() == 0 {
			continue
		}

		kInv := new(big.Int).ModInverse(k, n)
		if kInv == nil {
			continue
		}
		s := new(big.Int).Mul(priv.D, r)
		s.Add(s, z)
		s.Mul(s, kInv)
		s.Mod(s, n)
		if s.Sign() == 0 {
			continue
		}
		return &Signature{R: r, S: s}, nil
	}
}

// Verify reports whether sig is a valid signature over digest for pub.
func (sig *Signature) Verify(digest []byte, pub *PublicKey) bool {
	n := curveParams.N
	if sig.R.Sign() <= 0 || sig.R.Cmp(n) >= 0 {
		return false
	}
	if sig.S.Sign() <= 0 || sig.S.Cmp(n) >= 0 {
		return false
	}

	z := hashToInt(digest)

	sInv := new(big.Int).ModInverse(sig.S, n)
	if sInv == nil {
		return false
	}
	u1 := new(big.Int).Mul(z, sInv)
	u1.Mod(u1, n)
	u2 := new(big.Int).Mul(sig.R, sInv)
	u2.Mod(u2, n)

	x1, y1 := curveParams.ScalarBaseMult(u1.Bytes())
	x2, y2 := curveParams.ScalarMult(pub.X, pub.Y, u2.Bytes())
	x, y := curveParams.Add(x1, y1, x2, y2)
	if x.Sign() == 0 && y.Sign() == 0 {
		return false
	}

	x.Mod(x, n)
	return x.Cmp(sig.R) == 0
}

// hashToInt converts a digest to an integer truncated to the leftmost
// bits of the curve order's bit length, as specified by FIPS 186-4.
func hashToInt(digest []byte) *big.Int {
	orderBits := curveParams.N.BitLen()
	if len(digest) > (orderBits+7)/8 {
		digest = digest[:(orderBits+7)/8]
	}
	z := new(big.Int).SetBytes(digest)
	excess := len(digest)*8 - orderBits
	if excess > 0 {
		z.Rsh(z, uint(excess))
	}
	return z
}

func randFieldElement() (*big.Int, error) {
	n := curveParams.N
	for {
		buf := make([]byte, FieldByteSize)
		if _, err := rand.Read(buf); err != nil {
			return nil, err
		}
		k := new(big.Int).SetBytes(buf)
		if k.Sign() != 0 && k.Cmp(n) < 0 {
			return k, nil
		}
	}
}

// Verify is a free-function convenience wrapper matching the core's
// admission pipeline call shape: verify(pubkey, digest, signature).
func Verify(pub *PublicKey, digest []byte, sig *Signature) bool {
	return sig.Verify(digest, pub)
}
