// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2014-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainparams collects the hardcoded protocol constants for
// mainnet, following the chaincfg.Params factory-function convention.
package chainparams

import (
	"runtime"
	"time"
)

// defaultMaxThreads is the replay worker pool's floor before scaling to
// the local CPU count, matching the original daemon's unscaled default.
const defaultMaxThreads = 6

// Params bundles every hardcoded constant that is part of the protocol
// contract.
type Params struct {
	// Network
	ListenPort int
	MasterIP   string

	// Ledger / issuance
	GenesisPubKeyB58 string
	InflationTax     uint32

	// Mining
	MiningThreshold    float64
	NetDifficultyFloor float64
	NetDifficultyCeil  float64

	// Peer registry
	MaxPeers          int
	PeerExpiry        time.Duration
	PingInterval      time.Duration
	LivePingIntervals int

	// Transaction queue / uniqueness
	MaxQueue         int
	UIDTableSize     int
	UIDWindow        time.Duration
	DoubleSpendBlock time.Duration
	RecentExecWindow time.Duration
	DequeueGraceTime time.Duration

	// Replay
	MaxReplayAllow  int
	MaxThreads      int
	MaxThreadsBuff  int
	ReplaySize      int
	ReplayHeadCount int
	ReplayRate      time.Duration
	ResyncInterval  time.Duration
	ResyncPeers     int

	// Reward scheduler (master only)
	RewardInterval time.Duration
	RewardAmount   uint32

	// Housekeeping
	HousekeepingTick time.Duration
	ReRegisterTick   time.Duration
}

// MainNetParams returns the network parameters for the live VFC network.
func MainNetParams() *Params {
	return &Params{
		ListenPort: 8787,
		MasterIP:   "198.204.248.26",

		GenesisPubKeyB58: "foxXshGUtLFD24G9pz48hRh3LWM58GXPYiRhNHUyZAPJ",
		InflationTax:     1000,

		MiningThreshold:    0.24,
		NetDifficultyFloor: 0.030,
		NetDifficultyCeil:  0.240,

		MaxPeers:          3072,
		PeerExpiry:        10800 * time.Second,
		PingInterval:      540 * time.Second,
		LivePingIntervals: 4,

		MaxQueue:         4096,
		UIDTableSize:     11111101,
		UIDWindow:        9 * time.Hour,
		DoubleSpendBlock: 9 * time.Hour,
		RecentExecWindow: 3 * time.Second,
		DequeueGraceTime: 2 * time.Second,

		MaxReplayAllow:  256,
		MaxThreads:      defaultMaxThreads,
		MaxThreadsBuff:  512,
		ReplaySize:      6944,
		ReplayHeadCount: 3333,
		ReplayRate:      10 * time.Millisecond,
		ResyncInterval:  9 * time.Minute,
		ResyncPeers:     33,

		RewardInterval: 20 * time.Second,
		RewardAmount:   3000,

		HousekeepingTick: 3 * time.Second,
		ReRegisterTick:   time.Hour,
	}
}

// ScaleMaxThreads derives MaxThreads from the local CPU count, mirroring
// the original daemon's replay-worker-pool sizing (8*(nthreads-2) once
// more than two cores are available), clamped to MaxThreadsBuff, and
// overwrites p.MaxThreads in place. MainNetParams itself returns the
// unscaled defaultMaxThreads so callers that want a fixed,
// hardware-independent worker count (tests) can set MaxThreads directly
// without this running first.
func (p *Params) ScaleMaxThreads() {
	if n := runtime.NumCPU(); n > 2 {
		p.MaxThreads = 8 * (n - 2)
	}
	if p.MaxThreads > p.MaxThreadsBuff {
		p.MaxThreads = p.MaxThreadsBuff
	}
}
