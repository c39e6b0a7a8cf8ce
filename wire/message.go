// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// MsgTx is the payload of an OpTx/OpDead datagram: the sender's origin
// IPv4 address followed by a transaction record.
type MsgTx struct {
	Origin [4]byte
	Record TxRecord
}

// TxMsgLen is the total datagram length of an OpTx/OpDead message,
// including the opcode byte: 1 (opcode) + 4 (origin IPv4) + RecordSize.
const TxMsgLen = 1 + 4 + RecordSize

// Encode serializes msg, including the leading opcode byte.
func (msg *MsgTx) Encode(op Opcode) []byte {
	buf := make([]byte, TxMsgLen)
	buf[0] = byte(op)
	copy(buf[1:5], msg.Origin[:])
	msg.Record.Encode(buf[5:])
	return buf
}

// DecodeMsgTx parses the payload following the opcode byte (i.e. buf
// must be TxMsgLen-1 bytes: origin + record).
func DecodeMsgTx(buf []byte) (*MsgTx, error) {
	if len(buf) != TxMsgLen-1 {
		return nil, fmt.Errorf("wire: invalid tx payload length %d, want %d", len(buf), TxMsgLen-1)
	}
	var msg MsgTx
	copy(msg.Origin[:], buf[:4])
	rec, err := DecodeTxRecord(buf[4:])
	if err != nil {
		return nil, err
	}
	msg.Record = *rec
	return &msg, nil
}

// OriginIP returns the origin address as a net.IP.
func (msg *MsgTx) OriginIP() net.IP {
	return net.IPv4(msg.Origin[0], msg.Origin[1], msg.Origin[2], msg.Origin[3])
}

// ReplayMsgLen is the total datagram length of an OpReplay message: 1
// (opcode) + RecordSize, with no origin address.
const ReplayMsgLen = 1 + RecordSize

// EncodeReplay serializes rec as an OpReplay datagram.
func EncodeReplay(rec *TxRecord) []byte {
	buf := make([]byte, ReplayMsgLen)
	buf[0] = byte(OpReplay)
	rec.Encode(buf[1:])
	return buf
}

// DecodeReplay parses the payload following the opcode byte (RecordSize
// bytes).
func DecodeReplay(buf []byte) (*TxRecord, error) {
	return DecodeTxRecord(buf)
}

// HeightMsgLen is the total datagram length of an OpHeight message: 1
// (opcode) + 4 (uint32 ledger byte-length).
const HeightMsgLen = 5

// EncodeHeight serializes the sender's ledger byte-length.
func EncodeHeight(byteLength uint32) []byte {
	buf := make([]byte, HeightMsgLen)
	buf[0] = byte(OpHeight)
	binary.LittleEndian.PutUint32(buf[1:], byteLength)
	return buf
}

// DecodeHeight parses the payload following the opcode byte.
func DecodeHeight(buf []byte) (uint32, error) {
	if len(buf) != HeightMsgLen-1 {
		return 0, fmt.Errorf("wire: invalid height payload length %d, want %d", len(buf), HeightMsgLen-1)
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// EncodeUserAgentRequest builds the bare 'a' probe (length 1: opcode
// only).
func EncodeUserAgentRequest() []byte {
	return []byte{byte(OpUserAgent)}
}

// EncodeUserAgent builds an 'a'+payload message carrying ua, truncated
// to UserAgentMaxLen bytes.
func EncodeUserAgent(ua string) []byte {
	if len(ua) > UserAgentMaxLen {
		ua = ua[:UserAgentMaxLen]
	}
	buf := make([]byte, 1+len(ua))
	buf[0] = byte(OpUserAgent)
	copy(buf[1:], ua)
	return buf
}

// EncodeRewardSolicit builds the bare 'x' message.
func EncodeRewardSolicit() []byte {
	return []byte{byte(OpRewardSolicit)}
}

// EncodeReplayRequest builds the bare 'r' message.
func EncodeReplayRequest() []byte {
	return []byte{byte(OpReplayRequest)}
}

// DiscoveryMsgLen is the total length of a discovery probe or echo
// datagram: 1 (opcode) + MIDSize random bytes.
const DiscoveryMsgLen = 1 + MIDSize

// EncodeDiscoveryProbe builds a '\t' probe carrying mid.
func EncodeDiscoveryProbe(mid [MIDSize]byte) []byte {
	buf := make([]byte, DiscoveryMsgLen)
	buf[0] = byte(OpDiscoveryProbe)
	copy(buf[1:], mid[:])
	return buf
}

// EncodeDiscoveryEcho builds a '\r' echo of mid.
func EncodeDiscoveryEcho(mid [MIDSize]byte) []byte {
	buf := make([]byte, DiscoveryMsgLen)
	buf[0] = byte(OpDiscoveryEcho)
	copy(buf[1:], mid[:])
	return buf
}

// DecodeMID parses the MID trailing the opcode byte.
func DecodeMID(buf []byte) ([MIDSize]byte, error) {
	var mid [MIDSize]byte
	if len(buf) != MIDSize {
		return mid, fmt.Errorf("wire: invalid discovery payload length %d, want %d", len(buf), MIDSize)
	}
	copy(mid[:], buf)
	return mid, nil
}

// EncodeRewardAddr builds a ' '+pubkey message a peer sends the master
// volunteering its reward address.
func EncodeRewardAddr(pub []byte) []byte {
	buf := make([]byte, 1+len(pub))
	buf[0] = byte(OpRewardAddr)
	copy(buf[1:], pub)
	return buf
}
