// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package replay

import (
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/wire"
)

type fakeRequester struct {
	mu        sync.Mutex
	requested []net.IP
}

func (f *fakeRequester) SendReplayRequest(ip net.IP) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requested = append(f.requested, ip)
	return nil
}

func TestAllowListResetPicksPeers(t *testing.T) {
	a := NewAllowList(8)
	candidates := []net.IP{
		net.ParseIP("8.8.8.8"), net.ParseIP("8.8.4.4"), net.ParseIP("1.1.1.1"),
	}
	req := &fakeRequester{}
	a.Reset(candidates, 2, req)

	req.mu.Lock()
	n := len(req.requested)
	req.mu.Unlock()
	if n != 2 {
		t.Fatalf("requested %d peers, want 2", n)
	}
	for _, ip := range req.requested {
		if !a.IsAuthorized(ip, nil) {
			t.Fatalf("picked peer %s not authorized after Reset", ip)
		}
	}
}

func TestAllowListLoopbackAlwaysAuthorized(t *testing.T) {
	a := NewAllowList(8)
	if !a.IsAuthorized(net.ParseIP("127.0.0.1"), nil) {
		t.Fatalf("loopback not authorized")
	}
}

func TestAllowListMasterAlwaysAuthorized(t *testing.T) {
	a := NewAllowList(8)
	master := net.ParseIP("198.204.248.26")
	if a.IsAuthorized(net.ParseIP("9.9.9.9"), master) {
		t.Fatalf("non-master, non-listed peer was incorrectly authorized")
	}
	if !a.IsAuthorized(master, master) {
		t.Fatalf("master not authorized")
	}
}

func TestAllowListHeightNeverDecreases(t *testing.T) {
	a := NewAllowList(8)
	if !a.UpdateHeight(100) {
		t.Fatalf("first UpdateHeight should report a change")
	}
	if a.UpdateHeight(50) {
		t.Fatalf("UpdateHeight accepted a lower value")
	}
	if a.Height() != 100 {
		t.Fatalf("height = %d, want 100", a.Height())
	}
}

func TestAllowListSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	a := NewAllowList(4)
	a.Reset([]net.IP{net.ParseIP("8.8.8.8")}, 1, nil)
	a.UpdateHeight(555)

	if err := a.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b := NewAllowList(4)
	if err := b.Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !b.IsAuthorized(net.ParseIP("8.8.8.8"), nil) {
		t.Fatalf("peer missing after Save/Load round trip")
	}
	if b.Height() != 555 {
		t.Fatalf("height = %d after round trip, want 555", b.Height())
	}
}

type fakeSender struct {
	mu   sync.Mutex
	sent int
}

func (f *fakeSender) SendTo(ip net.IP, packet []byte) error {
	f.mu.Lock()
	f.sent++
	f.mu.Unlock()
	return nil
}

func (f *fakeSender) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

func newTestStore(t *testing.T, nExtra int) *ledger.Store {
	t.Helper()
	dir := t.TempDir()
	store, err := ledger.Open(filepath.Join(dir, "blocks.dat"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	for i := 0; i < nExtra; i++ {
		var rec wire.TxRecord
		rec.UID = uint64(i + 1)
		rec.Amount = 1
		if err := store.Append(&rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	return store
}

func TestDispatcherRefusesDuplicateAndOverCapacity(t *testing.T) {
	store := newTestStore(t, 5)
	params := chainparams.MainNetParams()
	params.MaxThreads = 1
	params.MaxThreadsBuff = 4
	params.ReplayRate = 5 * time.Millisecond
	params.ReplayHeadCount = 1000

	sender := &fakeSender{}
	d := NewDispatcher(params, store, sender)

	ip1 := net.ParseIP("8.8.8.8")
	if !d.Launch(ip1, 0) {
		t.Fatalf("first Launch should succeed")
	}
	if d.Launch(ip1, 0) {
		t.Fatalf("duplicate Launch for the same IP should be refused")
	}
	if d.Launch(net.ParseIP("8.8.4.4"), 0) {
		t.Fatalf("Launch should be refused once the pool is at capacity")
	}

	d.Wait()
	if d.ActiveCount() != 0 {
		t.Fatalf("ActiveCount = %d after Wait, want 0", d.ActiveCount())
	}
	if sender.count() == 0 {
		t.Fatalf("dispatcher sent no packets")
	}
}
