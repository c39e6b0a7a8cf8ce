// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the datagram framing: a one-byte opcode
// selecting the handler, followed by an exact-length payload. Encoding
// and decoding use explicit, fixed-layout functions rather than
// reflection-based marshaling.
package wire

// Opcode identifies the handler a datagram is dispatched to. It is
// always the first byte of the datagram.
type Opcode byte

const (
	// OpTx is a newly broadcast live transaction: origin IP + record.
	OpTx Opcode = 't'
	// OpDead is a rebroadcast/echoed transaction, identical payload
	// shape to OpTx.
	OpDead Opcode = 'd'
	// OpReplay is a historical record streamed with no origin IP.
	OpReplay Opcode = 'p'
	// OpReplayRequest asks the node to begin streaming its ledger.
	OpReplayRequest Opcode = 'r'
	// OpHeight carries the sender's ledger byte-length.
	OpHeight Opcode = 'h'
	// OpUserAgent both solicits (when alone) and carries (with a
	// payload) a peer's user-agent string.
	OpUserAgent Opcode = 'a'
	// OpRewardSolicit is the master soliciting a reward public key.
	OpRewardSolicit Opcode = 'x'
	// OpDiscoveryProbe is a scanner's probe carrying 7 random bytes.
	OpDiscoveryProbe Opcode = '\t'
	// OpDiscoveryEcho is the probed peer's echo of those 7 bytes.
	OpDiscoveryEcho Opcode = '\r'
	// OpRewardAddr is a peer volunteering its reward address to the
	// master.
	OpRewardAddr Opcode = ' '
)

// MIDSize is the length in bytes of the random discovery token.
const MIDSize = 7

// UserAgentMaxLen is the maximum byte length of a user-agent payload,
// exclusive of the opcode.
const UserAgentMaxLen = 63

// RewardAddrMaxLen bounds the ' ' (reward address) payload length.
const RewardAddrMaxLen = 128
