// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package crcjones computes CRC64 checksums using the "Jones" polynomial.
// No code path in this module derives transaction uids from it; uids are
// drawn from crypto/rand.
package crcjones

import "hash/crc64"

// polyJones is the "Jones" CRC64 polynomial (0xad93d23594c935a9).
const polyJones = 0xad93d23594c935a9

var table = crc64.MakeTable(polyJones)

// Checksum returns the CRC64-Jones checksum of data.
func Checksum(data []byte) uint64 {
	return crc64.Checksum(data, table)
}
