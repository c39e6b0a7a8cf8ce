// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package node wires every subsystem package into one running daemon
// instance: the ledger and its supporting index, the duplicate-uid
// guards, the peer registry, the pending-transaction queue, the
// admission pipeline, the replay allow list and dispatcher, the
// protocol engine, the keygen miner (when mining is enabled) and
// (master-only) the reward scheduler. Nothing here is a package-level
// singleton; every collaborator is constructed once and threaded
// through explicitly.
package node

import (
	"fmt"
	"path/filepath"

	"github.com/vfcsuite/vfcd/addrmgr"
	"github.com/vfcsuite/vfcd/admission"
	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/config"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/mining"
	"github.com/vfcsuite/vfcd/protocol"
	"github.com/vfcsuite/vfcd/replay"
	"github.com/vfcsuite/vfcd/txqueue"
	"github.com/vfcsuite/vfcd/uniqset"
	"github.com/vfcsuite/vfcd/vfcec"
)

// indexFilename is the subdirectory holding the goleveldb uid->offset
// accelerator, rebuilt fresh from the ledger on every start.
const indexFilename = "uidindex"

// Node owns every long-lived collaborator for one running instance.
type Node struct {
	cfg    *config.Config
	params *chainparams.Params

	Store *ledger.Store
	Bad   *ledger.BadBlocks
	Index *ledger.Index

	Filter *uniqset.Filter
	Ring   *uniqset.Ring

	Addrs      *addrmgr.Manager
	Queue      *txqueue.Queue
	Pipeline   *admission.Pipeline
	Dispatcher *replay.Dispatcher
	Allow      *replay.AllowList

	Engine *protocol.Engine

	Miner *mining.Miner

	ownKey *vfcec.PrivateKey
}

// New opens every on-disk sidecar under cfg.DataDir and wires the full
// collaborator graph, but starts nothing: call Start to open the
// socket and launch goroutines.
func New(cfg *config.Config, params *chainparams.Params) (*Node, error) {
	n := &Node{cfg: cfg, params: params}
	params.ScaleMaxThreads()

	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return nil, fmt.Errorf("node: opening ledger: %w", err)
	}
	n.Store = store

	idx, err := ledger.Rebuild(store, filepath.Join(cfg.DataDir, indexFilename))
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("node: rebuilding uid index: %w", err)
	}
	n.Index = idx
	store.AttachIndex(idx)

	bad, err := ledger.OpenBadBlocks(cfg.BadBlocksPath())
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("node: opening bad-blocks log: %w", err)
	}
	n.Bad = bad

	n.Filter = uniqset.New(params.UIDTableSize)
	n.Ring = uniqset.NewRing(uniqset.DefaultRingSize, params.RecentExecWindow)

	n.Addrs = addrmgr.New(params)
	if cfg.Master {
		n.Addrs.SetMaster()
	}
	if err := n.Addrs.Load(cfg.DataDir); err != nil {
		log.Warnf("node: loading peer sidecar: %v", err)
	}

	n.Queue = txqueue.New(params, n.Filter, n.Bad)

	pipeline, err := admission.New(params, n.Store, n.Ring)
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("node: constructing admission pipeline: %w", err)
	}
	n.Pipeline = pipeline

	n.Allow = replay.NewAllowList(params.MaxReplayAllow)
	if err := n.Allow.Load(cfg.DataDir); err != nil {
		log.Warnf("node: loading replay allow list: %v", err)
	}

	ownKey, err := loadOrCreateOwnKey(cfg.PrivKeyFile, cfg.PublicKeyPath())
	if err != nil {
		n.Close()
		return nil, fmt.Errorf("node: loading node identity key: %w", err)
	}
	n.ownKey = ownKey

	rewardKey, err := loadRewardKey(cfg)
	if err != nil {
		n.Close()
		return nil, err
	}

	engineCfg := protocol.Config{
		Params:    params,
		Store:     n.Store,
		Addrs:     n.Addrs,
		Queue:     n.Queue,
		Pipeline:  n.Pipeline,
		Allow:     n.Allow,
		Workers:   cfg.MineThread,
		RewardKey: rewardKey,
		OwnKey:    n.ownKey,
	}
	// The dispatcher needs a Sender, which only the engine can provide
	// once it owns a socket; build the engine first, then the
	// dispatcher, wiring the engine in as its sender.
	engine := protocol.NewEngine(engineCfg)
	n.Dispatcher = replay.NewDispatcher(params, n.Store, engine)
	engine.SetDispatcher(n.Dispatcher)
	n.Engine = engine

	if cfg.Mine {
		var payer mining.Payer
		if cfg.RewardAddress != "" {
			payer = &mining.CLIPayer{BinaryPath: selfPath(), RewardAddress: cfg.RewardAddress}
		}
		n.Miner = mining.NewMiner(cfg.MineThread, payer, cfg.MintedPath())
	}

	return n, nil
}

// Start opens the protocol engine's socket, launches its worker pool
// and housekeeping ticker, and (if configured) the keygen miner.
func (n *Node) Start() error {
	if err := n.Engine.Start(); err != nil {
		return err
	}
	n.Engine.StartHousekeeping(n.cfg.DataDir, selfPath())
	if n.Miner != nil {
		n.Miner.Start()
	}
	return nil
}

// Stop halts every running goroutine and flushes the peer/allow-list
// sidecars to disk.
func (n *Node) Stop() {
	if n.Miner != nil {
		n.Miner.Stop()
	}
	if n.Engine != nil {
		n.Engine.Stop()
	}
	if err := n.Addrs.Save(n.cfg.DataDir); err != nil {
		log.Warnf("node: saving peer sidecar: %v", err)
	}
	if err := n.Allow.Save(n.cfg.DataDir); err != nil {
		log.Warnf("node: saving replay allow list: %v", err)
	}
}

// Close releases every open file/database handle. Safe to call on a
// partially constructed Node (New calls it on its own failure paths).
func (n *Node) Close() {
	if n.Index != nil {
		n.Index.Close()
	}
	if n.Bad != nil {
		n.Bad.Close()
	}
	if n.Store != nil {
		n.Store.Close()
	}
}

// OwnKey returns this node's own identity key, used to sign the
// housekeeping self-transfer that keeps its public IP registration
// fresh with peers.
func (n *Node) OwnKey() *vfcec.PrivateKey {
	return n.ownKey
}
