// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package protocol

import (
	"os"
	"os/exec"
	"time"

	"github.com/vfcsuite/vfcd/base58"
	"github.com/vfcsuite/vfcd/vfcec"
	"github.com/vfcsuite/vfcd/wire"
)

// StartHousekeeping launches the periodic maintenance goroutine: sidecar
// persistence, replay-allow rotation, peer pings, the hourly
// self-transfer IP refresh, and (master-only) reward rotation.
// homeDir is the data directory sidecars are written to; binaryPath is
// this process's own executable, forked for the IP-refresh
// self-transfer.
func (e *Engine) StartHousekeeping(homeDir, binaryPath string) {
	e.wg.Add(1)
	go e.housekeepingLoop(homeDir, binaryPath)
}

// KickResync requests a fresh replay set immediately instead of
// waiting for the next 9-minute housekeeping tick. Non-blocking: it
// only swaps the replay_allow set and fires off replay requests on a
// background goroutine.
func (e *Engine) KickResync() {
	go e.resync()
}

func (e *Engine) housekeepingLoop(homeDir, binaryPath string) {
	defer e.wg.Done()

	tick := time.NewTicker(e.params.HousekeepingTick)
	defer tick.Stop()

	resyncEvery := int(e.params.ResyncInterval / e.params.HousekeepingTick)
	pingEvery := int(e.params.PingInterval / e.params.HousekeepingTick)
	reRegisterEvery := int(e.params.ReRegisterTick / e.params.HousekeepingTick)
	if resyncEvery < 1 {
		resyncEvery = 1
	}
	if pingEvery < 1 {
		pingEvery = 1
	}
	if reRegisterEvery < 1 {
		reRegisterEvery = 1
	}

	var n int
	for {
		select {
		case <-e.stopped:
			return
		case <-tick.C:
			n++
			e.persistSidecars(homeDir)
			e.allow.Load(homeDir)

			if n%resyncEvery == 0 {
				e.resync()
			}
			if n%pingEvery == 0 {
				e.pingPeers()
			}
			if n%reRegisterEvery == 0 && binaryPath != "" && e.ownKey != nil {
				refreshPublicIP(binaryPath, e.ownKey)
			}
			if e.reward != nil {
				e.reward.Tick()
			}
		}
	}
}

func (e *Engine) persistSidecars(homeDir string) {
	if err := e.addrs.Save(homeDir); err != nil {
		log.Warnf("protocol: saving peer sidecars: %v", err)
	}
	if err := e.allow.Save(homeDir); err != nil {
		log.Warnf("protocol: saving replay-allow sidecar: %v", err)
	}
}

// resync asks a fresh random batch of ResyncPeers living peers (plus
// the master, via the guaranteed-authorized check in
// replay.AllowList.IsAuthorized) to begin streaming their ledgers.
func (e *Engine) resync() {
	candidates := e.addrs.LivingPeers()
	e.allow.Reset(candidates, e.params.ResyncPeers, e)
}

// pingPeers sends a discovery probe and a bare user-agent request to
// every living peer, refreshing liveness and the advertised heights
// used to gate replay eligibility.
func (e *Engine) pingPeers() {
	for _, ip := range e.addrs.LivingPeers() {
		if err := e.SendTo(ip, wire.EncodeDiscoveryProbe(e.mid)); err != nil {
			log.Debugf("protocol: ping probe to %s failed: %v", ip, err)
		}
		if err := e.SendTo(ip, wire.EncodeUserAgentRequest()); err != nil {
			log.Debugf("protocol: user-agent request to %s failed: %v", ip, err)
		}
	}
}

// refreshPublicIP forks the daemon's own binary to issue a tiny
// self-transfer (from ownKey's address to itself), mirroring the
// node's practice of keeping its public address fresh in peers' eyes
// by periodically transacting.
func refreshPublicIP(binaryPath string, ownKey *vfcec.PrivateKey) {
	privB58 := base58.Encode(ownKey.Serialize())
	selfB58 := base58.Encode(ownKey.PubKey().Serialize())
	cmd := exec.Command(binaryPath, "send", "--from-priv", privB58, "--to", selfB58, "--amount", "1")
	cmd.Stdout = nil
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		log.Debugf("protocol: self-transfer refresh fork failed: %v", err)
	}
}
