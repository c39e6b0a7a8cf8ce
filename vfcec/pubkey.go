// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package vfcec

import (
	"fmt"
	"math/big"
)

// PublicKey is a point on the fixed curve.
type PublicKey struct {
	X, Y *big.Int
}

// Serialize returns the 25-byte compressed encoding: a one-byte parity
// tag (0x02 for even Y, 0x03 for odd Y) followed by the 24-byte X
// coordinate.
func (pub *PublicKey) Serialize() []byte {
	out := make([]byte, PubKeyBytesLen)
	xb := pub.X.Bytes()
	copy(out[1+FieldByteSize-len(xb):], xb)
	if pub.Y.Bit(0) == 0 {
		out[0] = 0x02
	} else {
		out[0] = 0x03
	}
	return out
}

// ParsePubKey decodes a 25-byte compressed public key, recovering Y from
// the curve equation and selecting the root matching the parity tag.
func ParsePubKey(data []byte) (*PublicKey, error) {
	if len(data) != PubKeyBytesLen {
		return nil, fmt.Errorf("vfcec: invalid public key length %d", len(data))
	}
	tag := data[0]
	if tag != 0x02 && tag != 0x03 {
		return nil, fmt.Errorf("vfcec: invalid public key parity tag 0x%02x", tag)
	}

	x := new(big.Int).SetBytes(data[1:])
	if x.Cmp(curveParams.P) >= 0 {
		return nil, fmt.Errorf("vfcec: public key x coordinate out of field range")
	}

	// rhs = x^3 - 3x + B (mod P)
	rhs := new(big.Int).Mul(x, x)
	rhs.Mul(rhs, x)
	threeX := new(big.Int).Lsh(x, 1)
	threeX.Add(threeX, x)
	rhs.Sub(rhs, threeX)
	rhs.Add(rhs, curveParams.B)
	rhs.Mod(rhs, curveParams.P)

	y := modSqrt(rhs)
	if y.Bit(0) != uint(tag&0x01) {
		y.Sub(curveParams.P, y)
	}

	if !isOnCurve(x, y) {
		return nil, fmt.Errorf("vfcec: decoded point is not on the curve")
	}

	return &PublicKey{X: x, Y: y}, nil
}
