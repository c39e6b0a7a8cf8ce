// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2014 The btcsuite developers
// Copyright (c) 2015-2016 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package vfcec implements the fixed ECDSA curve used by the protocol: a
// 192-bit-class (24-byte field) short Weierstrass curve whose public keys
// serialize to 25 bytes and whose signatures serialize to 48 bytes. The API
// shape (PrivKeyFromBytes, ParsePubKey, Sign/Verify, Serialize) follows the
// curve-agnostic convention used across the exccec/dcrec family, generalized
// here to a single fixed curve rather than a pluggable EC type.
package vfcec

import (
	"crypto/elliptic"
	"math/big"
)

// FieldByteSize is the byte width of a field element (and of the scalar
// order, for this curve): 24 bytes, i.e. 192 bits.
const FieldByteSize = 24

// PubKeyBytesLen is the length of a serialized (compressed) public key:
// the 24-byte X coordinate plus one parity/tag byte.
const PubKeyBytesLen = FieldByteSize + 1

// SignatureBytesLen is the length of a serialized signature: two 24-byte
// field elements, r and s.
const SignatureBytesLen = FieldByteSize * 2

func hexToBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("vfcec: invalid curve constant " + s)
	}
	return n
}

// curveParams holds the standard 192-bit NIST-class curve parameters
// (secp192r1). crypto/elliptic.CurveParams' generic affine arithmetic
// assumes a = -3, which holds for this curve as it does for all NIST
// prime curves, so no separate "a" coefficient needs to be tracked.
var curveParams = &elliptic.CurveParams{
	P:       hexToBig("fffffffffffffffffffffffffffffffeffffffffffffffff"),
	N:       hexToBig("ffffffffffffffffffffffff99def836146bc9b1b4d22831"),
	B:       hexToBig("64210519e59c80e70fa7e9ab72243049feb8deecc146b9b1"),
	Gx:      hexToBig("188da80eb03090f67cbf20eb43a18800f4ff0afd82ff1012"),
	Gy:      hexToBig("07192b95ffc8da78631011ed6b24cdd573f977a11e794811"),
	BitSize: 192,
	Name:    "vfc-p192",
}

// S256 returns the curve used by this package, named by convention
// despite not actually being the secp256k1 curve.
func S256() elliptic.Curve {
	return curveParams
}

// modSqrt returns a square root of a modulo curveParams.P, relying on the
// fact that P ≡ 3 (mod 4) as is true of every curve in this family.
func modSqrt(a *big.Int) *big.Int {
	p := curveParams.P
	e := new(big.Int).Add(p, big.NewInt(1))
	e.Rsh(e, 2)
	return new(big.Int).Exp(a, e, p)
}

// isOnCurve reports whether (x, y) satisfies y^2 = x^3 - 3x + B (mod P).
func isOnCurve(x, y *big.Int) bool {
	p := curveParams.P

	y2 := new(big.Int).Mul(y, y)
	y2.Mod(y2, p)

	x3 := new(big.Int).Mul(x, x)
	x3.Mul(x3, x)
	threeX := new(big.Int).Lsh(x, 1)
	threeX.Add(threeX, x)
	x3.Sub(x3, threeX)
	x3.Add(x3, curveParams.B)
	x3.Mod(x3, p)

	return y2.Cmp(x3) == 0
}
