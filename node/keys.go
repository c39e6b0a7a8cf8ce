// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vfcsuite/vfcd/base58"
	"github.com/vfcsuite/vfcd/config"
	"github.com/vfcsuite/vfcd/vfcec"
)

// loadOrCreateOwnKey reads this node's own Base58 private key from
// path, generating and persisting a fresh one on first run. pubPath, if
// non-empty, receives a sibling "public.key" text sidecar alongside a
// freshly generated key, re-derived from it rather than trusted as a
// source of truth; it is never read back.
func loadOrCreateOwnKey(path, pubPath string) (*vfcec.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		priv, perr := vfcec.ParsePrivateKey(mustDecodeB58(strings.TrimSpace(string(data))))
		if perr != nil {
			return nil, fmt.Errorf("node: parsing private key file %s: %w", path, perr)
		}
		return priv, nil
	}
	if !os.IsNotExist(err) {
		return nil, err
	}

	priv, err := vfcec.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, err
	}
	encoded := base58.Encode(priv.Serialize())
	if err := os.WriteFile(path, []byte(encoded+"\n"), 0600); err != nil {
		return nil, fmt.Errorf("node: persisting new private key: %w", err)
	}
	if pubPath != "" {
		pubEncoded := base58.Encode(priv.PubKey().Serialize())
		if err := os.WriteFile(pubPath, []byte(pubEncoded+"\n"), 0600); err != nil {
			return nil, fmt.Errorf("node: persisting new public key: %w", err)
		}
	}
	return priv, nil
}

func mustDecodeB58(s string) []byte {
	return base58.Decode(s)
}

// loadRewardKey returns the master's own reward-funding key when
// cfg.Master is set, reusing the node's identity key file location
// under the "reward.key" name, and nil otherwise (the reward
// scheduler is never started on a non-master node).
func loadRewardKey(cfg *config.Config) (*vfcec.PrivateKey, error) {
	if !cfg.Master {
		return nil, nil
	}
	path := filepath.Join(cfg.DataDir, "reward.key")
	key, err := loadOrCreateOwnKey(path, "")
	if err != nil {
		return nil, fmt.Errorf("node: loading master reward key: %w", err)
	}
	return key, nil
}

// selfPath returns the path to the currently running executable, used
// to fork the daemon's own CLI for the mining payout and housekeeping
// IP-refresh mechanisms.
func selfPath() string {
	p, err := os.Executable()
	if err != nil {
		return os.Args[0]
	}
	return p
}
