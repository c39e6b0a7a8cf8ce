// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDifficultyDefaultsToThresholdWhenMissing(t *testing.T) {
	dir := t.TempDir()
	d := NewDifficulty(filepath.Join(dir, "diff.mem"), filepath.Join(dir, "netdiff.mem"))

	if got := d.Local(); got != Threshold {
		t.Fatalf("Local() on missing file = %v, want %v", got, Threshold)
	}
	if got := d.Net(); got != Threshold {
		t.Fatalf("Net() on missing file = %v, want %v", got, Threshold)
	}
}

func TestDifficultySetAndGetRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d := NewDifficulty(filepath.Join(dir, "diff.mem"), filepath.Join(dir, "netdiff.mem"))

	if err := d.SetLocal(0.1); err != nil {
		t.Fatalf("SetLocal: %v", err)
	}
	if got := d.Local(); got < 0.0999 || got > 0.1001 {
		t.Fatalf("Local() after SetLocal(0.1) = %v, want ~0.1", got)
	}

	if err := d.SetNet(0.2); err != nil {
		t.Fatalf("SetNet: %v", err)
	}
	if got := d.Net(); got < 0.1999 || got > 0.2001 {
		t.Fatalf("Net() after SetNet(0.2) = %v, want ~0.2", got)
	}

	// A fresh Difficulty pointed at the same paths must see the
	// persisted values, not just the in-memory ones.
	d2 := NewDifficulty(filepath.Join(dir, "diff.mem"), filepath.Join(dir, "netdiff.mem"))
	if got := d2.Local(); got < 0.0999 || got > 0.1001 {
		t.Fatalf("reloaded Local() = %v, want ~0.1", got)
	}
}

func TestDifficultyClampsOutOfRangeValues(t *testing.T) {
	dir := t.TempDir()
	d := NewDifficulty(filepath.Join(dir, "diff.mem"), filepath.Join(dir, "netdiff.mem"))

	if err := d.SetLocal(10); err != nil {
		t.Fatalf("SetLocal: %v", err)
	}
	// The value is stored as float32, so the clamp reads back at float32
	// precision.
	if got := d.Local(); got != float64(float32(NetDifficultyCeil)) {
		t.Fatalf("Local() after SetLocal(10) = %v, want clamp to %v", got, float64(float32(NetDifficultyCeil)))
	}

	if err := d.SetNet(-1); err != nil {
		t.Fatalf("SetNet: %v", err)
	}
	if got := d.Net(); got != NetDifficultyFloor {
		t.Fatalf("Net() after SetNet(-1) = %v, want clamp to %v", got, NetDifficultyFloor)
	}
}

func TestDifficultyMalformedFileFallsBackToThreshold(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "diff.mem")
	if err := os.WriteFile(path, []byte{0x01, 0x02, 0x03}, 0600); err != nil {
		t.Fatalf("writing malformed sidecar: %v", err)
	}

	d := NewDifficulty(path, filepath.Join(dir, "netdiff.mem"))
	if got := d.Local(); got != Threshold {
		t.Fatalf("Local() on malformed file = %v, want fallback %v", got, Threshold)
	}
}
