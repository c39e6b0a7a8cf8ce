// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package replay

import (
	"encoding/binary"
	"math/rand"
	"net"
	"os"
	"sync"
)

// Requester asks a peer to begin streaming its ledger to us (the `r`
// opcode). Implemented by the protocol engine, which owns the socket.
type Requester interface {
	SendReplayRequest(ip net.IP) error
}

const allowFile = "rp.mem"
const heightFile = "rph.mem"

// AllowList is the set of peers this node currently trusts to stream
// `p`-opcode replay records to us, plus the highest remote ledger
// byte-length observed so far.
type AllowList struct {
	mu     sync.Mutex
	max    int
	ips    [][4]byte // zero entry ([4]byte{}) means an empty slot
	height uint32
}

// NewAllowList constructs an empty list sized for up to max peers.
func NewAllowList(max int) *AllowList {
	return &AllowList{max: max, ips: make([][4]byte, max)}
}

// Reset clears the list and repopulates it with up to count peers drawn
// randomly from candidates (normally the result of addrmgr's
// LivingPeers, which already excludes the master). For each peer
// selected, requester is asked to also stream back to us.
func (a *AllowList) Reset(candidates []net.IP, count int, requester Requester) {
	a.mu.Lock()
	for i := range a.ips {
		a.ips[i] = [4]byte{}
	}
	if count > a.max {
		count = a.max
	}
	var picked []net.IP
	if len(candidates) > 0 {
		perm := rand.Perm(len(candidates))
		for i := 0; i < count; i++ {
			ip := candidates[perm[i%len(perm)]]
			ip4 := ip.To4()
			if ip4 == nil {
				continue
			}
			var key [4]byte
			copy(key[:], ip4)
			a.ips[i] = key
			picked = append(picked, ip)
		}
	}
	a.mu.Unlock()

	if requester == nil {
		return
	}
	for _, ip := range picked {
		if err := requester.SendReplayRequest(ip); err != nil {
			log.Debugf("replay: request to %s failed: %v", ip, err)
		}
	}
}

// IsAuthorized reports whether ip may send `p`-opcode replay records:
// the master, loopback, or a currently allow-listed peer.
func (a *AllowList) IsAuthorized(ip net.IP, masterIP net.IP) bool {
	if ip.IsLoopback() {
		return true
	}
	if masterIP != nil && ip.Equal(masterIP) {
		return true
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return false
	}
	var key [4]byte
	copy(key[:], ip4)

	a.mu.Lock()
	defer a.mu.Unlock()
	for _, e := range a.ips {
		if e == key {
			return true
		}
	}
	return false
}

// UpdateHeight records remote as the replay height if it exceeds the
// current value; replay height never decreases. Reports whether it
// changed.
func (a *AllowList) UpdateHeight(remote uint32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if remote <= a.height {
		return false
	}
	a.height = remote
	return true
}

// Height returns the highest remote ledger byte-length observed.
func (a *AllowList) Height() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.height
}

// Save persists the allow list and height to rp.mem/rph.mem under dir.
func (a *AllowList) Save(dir string) error {
	a.mu.Lock()
	ips := make([][4]byte, len(a.ips))
	copy(ips, a.ips)
	height := a.height
	a.mu.Unlock()

	buf := make([]byte, 4*len(ips))
	for i, e := range ips {
		copy(buf[i*4:], e[:])
	}
	if err := os.WriteFile(dir+string(os.PathSeparator)+allowFile, buf, 0600); err != nil {
		return err
	}
	hbuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(hbuf, height)
	return os.WriteFile(dir+string(os.PathSeparator)+heightFile, hbuf, 0600)
}

// Load restores the allow list and height from rp.mem/rph.mem under
// dir. A missing or short file leaves in-memory state untouched and is
// not an error, matching a fresh node's first run.
func (a *AllowList) Load(dir string) error {
	data, err := os.ReadFile(dir + string(os.PathSeparator) + allowFile)
	if err == nil && len(data) == 4*a.max {
		a.mu.Lock()
		for i := range a.ips {
			copy(a.ips[i][:], data[i*4:i*4+4])
		}
		a.mu.Unlock()
	}

	hdata, err := os.ReadFile(dir + string(os.PathSeparator) + heightFile)
	if err == nil && len(hdata) == 4 {
		a.mu.Lock()
		a.height = binary.LittleEndian.Uint32(hdata)
		a.mu.Unlock()
	}
	return nil
}
