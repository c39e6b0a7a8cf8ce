// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package addrmgr

import (
	"net"
	"testing"

	"github.com/vfcsuite/vfcd/chainparams"
)

func testParams() *chainparams.Params {
	p := chainparams.MainNetParams()
	p.MaxPeers = 8
	return p
}

func TestAddRefusesLoopbackAndPrivate(t *testing.T) {
	m := New(testParams())

	if m.Add(net.ParseIP("127.0.0.1")) {
		t.Fatalf("Add accepted loopback address")
	}
	if m.Add(net.ParseIP("192.168.1.1")) {
		t.Fatalf("Add accepted RFC1918 address")
	}
}

func TestAddThenIsPeer(t *testing.T) {
	m := New(testParams())
	ip := net.ParseIP("8.8.8.8")

	if !m.Add(ip) {
		t.Fatalf("Add rejected a routable address")
	}
	if !m.IsPeer(ip) {
		t.Fatalf("IsPeer false after Add")
	}
}

func TestAddRefreshesExisting(t *testing.T) {
	m := New(testParams())
	ip := net.ParseIP("8.8.8.8")

	m.Add(ip)
	m.Add(ip)

	e, ok := m.Get(ip)
	if !ok {
		t.Fatalf("Get failed after repeated Add")
	}
	if e.RelayCount != 1 {
		t.Fatalf("RelayCount = %d, want 1 after one refresh", e.RelayCount)
	}
}

func TestAddFillsTableThenReportsFull(t *testing.T) {
	params := testParams()
	m := New(params)

	for i := 1; i < params.MaxPeers; i++ {
		ip := net.IPv4(8, 8, byte(i), 1)
		if !m.Add(ip) {
			t.Fatalf("Add(%s) failed before table was full", ip)
		}
	}

	// Table is now full (index 0 reserved, 1..MaxPeers-1 occupied).
	if m.Add(net.IPv4(9, 9, 9, 9)) {
		t.Fatalf("Add succeeded on a full table with no expired slots")
	}
}

func TestSetMasterInstallsIndexZero(t *testing.T) {
	m := New(testParams())
	m.Add(net.ParseIP("8.8.8.8"))
	m.SetMaster()

	e, ok := m.Get(net.ParseIP(m.params.MasterIP))
	if !ok {
		t.Fatalf("master address not registered after SetMaster")
	}
	if e.UserAgent != MasterUserAgent {
		t.Fatalf("master user agent = %q, want %q", e.UserAgent, MasterUserAgent)
	}
	if m.IsPeer(net.ParseIP("8.8.8.8")) {
		t.Fatalf("SetMaster did not clear prior entries")
	}
}

type fakeSender struct {
	sent []net.IP
}

func (f *fakeSender) SendTo(ip net.IP, packet []byte) error {
	f.sent = append(f.sent, ip)
	return nil
}

func TestBroadcastExcludesIndexZero(t *testing.T) {
	m := New(testParams())
	m.SetMaster()
	m.Add(net.ParseIP("8.8.8.8"))
	m.Add(net.ParseIP("8.8.4.4"))

	fs := &fakeSender{}
	m.SetSender(fs)
	m.Broadcast([]byte("x"))

	if len(fs.sent) != 2 {
		t.Fatalf("Broadcast sent to %d peers, want 2 (master excluded)", len(fs.sent))
	}
	for _, ip := range fs.sent {
		if ip.Equal(net.ParseIP(m.params.MasterIP)) {
			t.Fatalf("Broadcast sent to master address")
		}
	}
}

func TestLivingPeersExcludesMaster(t *testing.T) {
	m := New(testParams())
	m.SetMaster()
	m.Add(net.ParseIP("8.8.8.8"))
	m.Add(net.ParseIP("8.8.4.4"))

	living := m.LivingPeers()
	if len(living) != 2 {
		t.Fatalf("LivingPeers returned %d addresses, want 2", len(living))
	}
	for _, ip := range living {
		if ip.Equal(net.ParseIP(m.params.MasterIP)) {
			t.Fatalf("LivingPeers included the master address")
		}
	}
}

func TestTriBroadcastCapsAtThree(t *testing.T) {
	m := New(testParams())
	m.SetMaster()
	for i := 1; i <= 5; i++ {
		m.Add(net.IPv4(8, 8, byte(i), 1))
	}

	fs := &fakeSender{}
	m.SetSender(fs)
	m.TriBroadcast([]byte("x"))

	if len(fs.sent) != 3 {
		t.Fatalf("TriBroadcast sent to %d peers, want 3", len(fs.sent))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	params := testParams()
	m := New(params)
	m.SetMaster()
	m.Add(net.ParseIP("8.8.8.8"))
	m.SetUserAgent(net.ParseIP("8.8.8.8"), "vfc-ref/1.0")

	if err := m.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	m2 := New(params)
	if err := m2.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	e, ok := m2.Get(net.ParseIP("8.8.8.8"))
	if !ok {
		t.Fatalf("peer missing after Save/Load round trip")
	}
	if e.UserAgent != "vfc-ref/1.0" {
		t.Fatalf("user agent = %q after round trip, want %q", e.UserAgent, "vfc-ref/1.0")
	}
}
