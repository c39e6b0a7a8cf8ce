// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// userAgentFieldSize is the fixed per-slot width of peers3.mem: 63
// bytes of text plus one NUL terminator.
const userAgentFieldSize = UserAgentMaxLen + 1

const (
	addressFile   = "peers.mem"
	relayFile     = "peers1.mem"
	expiryFile    = "peers2.mem"
	userAgentFile = "peers3.mem"
)

var errIOCounter struct {
	mu    sync.Mutex
	count uint64
}

func bumpErrCounter() {
	errIOCounter.mu.Lock()
	errIOCounter.count++
	errIOCounter.mu.Unlock()
}

// ErrorCount returns the number of sidecar I/O failures observed so far.
func ErrorCount() uint64 {
	errIOCounter.mu.Lock()
	defer errIOCounter.mu.Unlock()
	return errIOCounter.count
}

// Save rewrites the four sidecar files under dir, each sized to exactly
// len(m.entries) slots. It is called on every housekeeping tick; a
// write failure bumps the error counter but does not otherwise disturb
// in-memory state.
func (m *Manager) Save(dir string) error {
	m.mu.Lock()
	entries := make([]PeerEntry, len(m.entries))
	copy(entries, m.entries)
	m.mu.Unlock()

	addrs := make([]byte, 4*len(entries))
	relays := make([]byte, 4*len(entries))
	expiries := make([]byte, 4*len(entries))
	agents := make([]byte, userAgentFieldSize*len(entries))

	for i, e := range entries {
		if !e.occupied {
			continue
		}
		binary.LittleEndian.PutUint32(addrs[i*4:], bigEndianIPToUint32(e.IP))
		binary.LittleEndian.PutUint32(relays[i*4:], e.RelayCount)
		binary.LittleEndian.PutUint32(expiries[i*4:], uint32(e.ExpiresAt.Unix()))
		copy(agents[i*userAgentFieldSize:(i+1)*userAgentFieldSize-1], e.UserAgent)
	}

	if err := writeFile(filepath.Join(dir, addressFile), addrs); err != nil {
		bumpErrCounter()
		return err
	}
	if err := writeFile(filepath.Join(dir, relayFile), relays); err != nil {
		bumpErrCounter()
		return err
	}
	if err := writeFile(filepath.Join(dir, expiryFile), expiries); err != nil {
		bumpErrCounter()
		return err
	}
	if err := writeFile(filepath.Join(dir, userAgentFile), agents); err != nil {
		bumpErrCounter()
		return err
	}
	return nil
}

func writeFile(path string, data []byte) error {
	return os.WriteFile(path, data, 0o600)
}

// Load reads the four sidecar files under dir once, at startup. On a
// short read (truncated/corrupt sidecar) the error counter is bumped
// and the load is abandoned without clearing whatever is already in
// memory.
func (m *Manager) Load(dir string) error {
	n := len(m.entries)

	addrs, err := os.ReadFile(filepath.Join(dir, addressFile))
	if err != nil || len(addrs) != 4*n {
		bumpErrCounter()
		return err
	}
	relays, err := os.ReadFile(filepath.Join(dir, relayFile))
	if err != nil || len(relays) != 4*n {
		bumpErrCounter()
		return err
	}
	expiries, err := os.ReadFile(filepath.Join(dir, expiryFile))
	if err != nil || len(expiries) != 4*n {
		bumpErrCounter()
		return err
	}
	agents, err := os.ReadFile(filepath.Join(dir, userAgentFile))
	if err != nil || len(agents) != userAgentFieldSize*n {
		bumpErrCounter()
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < n; i++ {
		addr := binary.LittleEndian.Uint32(addrs[i*4:])
		if addr == 0 {
			continue
		}
		e := &m.entries[i]
		e.occupied = true
		e.IP = uint32ToBigEndianIP(addr)
		e.RelayCount = binary.LittleEndian.Uint32(relays[i*4:])
		e.ExpiresAt = unixToTime(binary.LittleEndian.Uint32(expiries[i*4:]))
		field := agents[i*userAgentFieldSize : (i+1)*userAgentFieldSize]
		e.UserAgent = cStringFromBytes(field)
	}
	return nil
}

func unixToTime(sec uint32) time.Time {
	return time.Unix(int64(sec), 0)
}

func cStringFromBytes(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

func bigEndianIPToUint32(ip [4]byte) uint32 {
	return uint32(ip[0])<<24 | uint32(ip[1])<<16 | uint32(ip[2])<<8 | uint32(ip[3])
}

func uint32ToBigEndianIP(v uint32) [4]byte {
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}
