// Copyright (c) 2018 The ExchangeCoin team
// Copyright (c) 2013-2016 The btcsuite developers
// Copyright (c) 2015-2021 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package config parses the daemon's command-line and environment
// configuration, following the same go-flags + app-data-directory
// convention as the rest of the suite.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/jessevdk/go-flags"
)

const (
	defaultLogLevel    = "info"
	defaultLogFilename = "vfcd.log"
)

// Config holds every daemon-level setting resolved from the command
// line, environment, and built-in defaults.
type Config struct {
	DataDir string `short:"b" long:"datadir" description:"Directory to store data (ledger, peer table, sidecars)"`
	LogDir  string `long:"logdir" description:"Directory to log output"`

	ListenPort int  `long:"port" description:"UDP port to listen on"`
	Master     bool `long:"master" description:"Run as the network master (installs the master reward scheduler)"`

	PrivKeyFile   string `long:"privkeyfile" description:"Path to this node's own Base58 private key file"`
	RewardAddress string `long:"rewardaddr" description:"Base58 public key to credit mining/reward payouts to"`

	Mine       bool `long:"mine" description:"Run the keygen miner alongside the daemon"`
	MineThread int  `long:"minethreads" description:"Number of mining goroutines; defaults to NumCPU"`

	DebugLevel string `short:"d" long:"debuglevel" description:"Logging level: trace, debug, info, warn, error, critical"`

	NoFileLogging bool `long:"nofilelogging" description:"Disable logging to a rotated file, log to stdout only"`
}

// DefaultDataDir resolves the home directory used for all sidecar
// files, honoring VFCDIR over HOME per the protocol's external
// interface contract. Exported so CLI subcommands that bypass the
// full daemon config parser can still resolve the same default.
func DefaultDataDir() string {
	return defaultDataDir()
}

func defaultDataDir() string {
	if dir := os.Getenv("VFCDIR"); dir != "" {
		return filepath.Join(dir, ".vfc")
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".vfc"
	}
	return filepath.Join(home, ".vfc")
}

func defaultConfig() Config {
	dataDir := defaultDataDir()
	return Config{
		DataDir:     dataDir,
		LogDir:      dataDir,
		ListenPort:  8787,
		PrivKeyFile: filepath.Join(dataDir, "private.key"),
		MineThread:  runtime.NumCPU(),
		DebugLevel:  defaultLogLevel,
	}
}

// Load parses the command line (and, through go-flags' default
// behavior, VFCD_* environment overrides are left to the shell/ini
// layer callers may add) into a Config seeded with the package
// defaults, then creates DataDir/LogDir if missing.
func Load(args []string) (*Config, []string, error) {
	cfg := defaultConfig()
	parser := flags.NewParser(&cfg, flags.Default)
	rest, err := parser.ParseArgs(args)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("config: creating data directory: %w", err)
	}
	if cfg.LogDir == "" {
		cfg.LogDir = cfg.DataDir
	}
	if err := os.MkdirAll(cfg.LogDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("config: creating log directory: %w", err)
	}
	if cfg.PrivKeyFile == "" {
		cfg.PrivKeyFile = filepath.Join(cfg.DataDir, "private.key")
	}
	if cfg.MineThread < 1 {
		cfg.MineThread = 1
	}
	return &cfg, rest, nil
}

// LogFilePath returns the full path to the rotated log file under
// LogDir.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.LogDir, defaultLogFilename)
}

// LedgerPath returns the path to the append-only ledger file.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, "blocks.dat")
}

// BadBlocksPath returns the path to the double-spend log file.
func (c *Config) BadBlocksPath() string {
	return filepath.Join(c.DataDir, "bad_blocks.dat")
}

// MintedPath returns the path to the miner's "(base58_private, value)"
// append-only log.
func (c *Config) MintedPath() string {
	return filepath.Join(c.DataDir, "minted.priv")
}

// DiffPath returns the path to the locally configured difficulty
// sidecar.
func (c *Config) DiffPath() string {
	return filepath.Join(c.DataDir, "diff.mem")
}

// NetDiffPath returns the path to the observed network-difficulty
// sidecar.
func (c *Config) NetDiffPath() string {
	return filepath.Join(c.DataDir, "netdiff.mem")
}

// PublicKeyPath returns the path to this node's own Base58 public key
// text sidecar.
func (c *Config) PublicKeyPath() string {
	return filepath.Join(c.DataDir, "public.key")
}
