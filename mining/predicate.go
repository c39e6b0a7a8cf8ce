// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mining implements the subgenesis-address predicate, the
// parallel keygen miner that searches for addresses satisfying it, and
// the master-only reward scheduler that pays out to responsive peers.
package mining

import (
	"math"

	"github.com/vfcsuite/vfcd/vfcec"
)

// Threshold is the fixed mining predicate threshold M. The miner always
// tests against this value regardless of the network's advertised
// difficulty.
const Threshold = 0.24

// vector3 is one of the five 3-D u16 vectors extracted from a public
// key's byte representation.
type vector3 struct {
	x, y, z float64
}

// extractVectors reads five 3-D u16 vectors from the 24 field bytes of
// a serialized public key (pub.Serialize() is 25 bytes: a one-byte
// parity tag followed by the 24-byte field). Each vector is a
// consecutive, non-overlapping 6-byte run (x, then y, then z, each a
// big-endian uint16) starting 6 bytes after the last, exactly mirroring
// the original implementation's sequential memcpy of v[i].x/y/z through
// the key bytes. The original's key field is wide enough to hold all
// five 6-byte runs disjointly; ours is exactly four runs wide (24 = 4*6),
// so the fifth vector's offset wraps back to 0 and v4 duplicates v0
// rather than reading past the field.
func extractVectors(pub *vfcec.PublicKey) [5]vector3 {
	field := pub.Serialize()[1:] // 24 bytes, drop the parity tag
	be16 := func(off int) float64 {
		return float64(uint16(field[off])<<8 | uint16(field[off+1]))
	}
	var vs [5]vector3
	for i := range vs {
		base := (i * 6) % len(field)
		vs[i] = vector3{be16(base), be16(base + 2), be16(base + 4)}
	}
	return vs
}

// cos computes the cosine similarity of a and b, returning 1 (the
// predicate's "reject" sentinel) if either magnitude or the dot product
// is zero.
func cos(a, b vector3) float64 {
	dot := a.x*b.x + a.y*b.y + a.z*b.z
	if dot == 0 {
		return 1
	}
	magA := math.Sqrt(a.x*a.x + a.y*a.y + a.z*a.z)
	magB := math.Sqrt(b.x*b.x + b.y*b.y + b.z*b.z)
	if magA == 0 || magB == 0 {
		return 1
	}
	return dot / (magA * magB)
}

// Predicate is the result of evaluating the subgenesis test against a
// public key.
type Predicate struct {
	C1, C2, C3, C4 float64
	Valid          bool
}

// Evaluate computes the four cosine similarities for pub and reports
// whether it is a valid subgenesis address.
func Evaluate(pub *vfcec.PublicKey) Predicate {
	v := extractVectors(pub)
	p := Predicate{
		C1: cos(v[0], v[3]),
		C2: cos(v[3], v[2]),
		C3: cos(v[2], v[1]),
		C4: cos(v[1], v[4]),
	}
	sum := p.C1 + p.C2 + p.C3 + p.C4
	p.Valid = p.C1 < Threshold && p.C2 < Threshold && p.C3 < Threshold &&
		p.C4 < Threshold && sum > 0
	return p
}

// Value returns the coin value, in 1/1000 units, of a valid subgenesis
// predicate. Callers must check Valid first; Value on an invalid
// predicate is meaningless.
func (p Predicate) Value() uint32 {
	mean := (p.C1 + p.C2 + p.C3 + p.C4) / 4
	v := math.Round(1000 + 10000*(1-mean*(1/Threshold)))
	if v < 0 {
		return 0
	}
	// The 32-bit coin-value field truncates any value beyond its range:
	// the 64-bit value is cast down and its high bits are dropped, on
	// purpose. Values this large never occur for a valid predicate (mean
	// is bounded well below Threshold*4).
	return uint32(uint64(v))
}

// IsSubgenesis reports whether pub is a valid subgenesis address and,
// if so, its coin value in 1/1000 units.
func IsSubgenesis(pub *vfcec.PublicKey) (value uint32, ok bool) {
	p := Evaluate(pub)
	if !p.Valid {
		return 0, false
	}
	return p.Value(), true
}
