// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"crypto/rand"
	"encoding/binary"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/vfcsuite/vfcd/addrmgr"
	"github.com/vfcsuite/vfcd/admission"
	"github.com/vfcsuite/vfcd/base58"
	"github.com/vfcsuite/vfcd/chainhash"
	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/config"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/mining"
	"github.com/vfcsuite/vfcd/uniqset"
	"github.com/vfcsuite/vfcd/vfcec"
	"github.com/vfcsuite/vfcd/wire"
)

// cliCommands maps each CLI entry point onto its handler. Every handler
// either prints its result or a one-line failure reason; run()/main()
// always exits 0 regardless.
var cliCommands = map[string]func(args []string) error{
	"genkey":     cmdGenKey,
	"send":       cmdSend,
	"balance":    cmdBalance,
	"dump":       cmdDump,
	"find":       cmdFind,
	"peers":      cmdPeers,
	"resync":     cmdResync,
	"mine":       cmdMine,
	"difficulty": cmdDifficulty,
	"supply":     cmdSupply,
}

func cliDataDir(fs *flag.FlagSet) *string {
	return fs.String("datadir", config.DefaultDataDir(), "data directory")
}

// cmdGenKey implements "generate keypair (random and seeded)".
func cmdGenKey(args []string) error {
	fs := flag.NewFlagSet("genkey", flag.ContinueOnError)
	seed := fs.String("seed", "", "comma-separated four uint64 words for a deterministic key; random if omitted")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var priv *vfcec.PrivateKey
	var err error
	if *seed != "" {
		var words [4]uint64
		parts := strings.Split(*seed, ",")
		if len(parts) != 4 {
			return fmt.Errorf("genkey: -seed needs exactly four comma-separated words")
		}
		for i, p := range parts {
			words[i], err = strconv.ParseUint(strings.TrimSpace(p), 10, 64)
			if err != nil {
				return fmt.Errorf("genkey: parsing seed word %d: %w", i, err)
			}
		}
		priv, err = vfcec.PrivKeyFromSeed(words)
	} else {
		priv, err = vfcec.GeneratePrivateKey()
	}
	if err != nil {
		return fmt.Errorf("genkey: %w", err)
	}

	fmt.Printf("private: %s\n", base58.Encode(priv.Serialize()))
	fmt.Printf("public:  %s\n", base58.Encode(priv.PubKey().Serialize()))
	return nil
}

// cmdSend implements "send transaction (with and without broadcast)".
func cmdSend(args []string) error {
	fs := flag.NewFlagSet("send", flag.ContinueOnError)
	fromPriv := fs.String("from-priv", "", "sender's Base58 private key")
	to := fs.String("to", "", "recipient's Base58 public key")
	amount := fs.Uint("amount", 0, "amount in 1/1000 units")
	noBroadcast := fs.Bool("no-broadcast", false, "admit locally without sending to the network")
	master := fs.String("master", "", "IPv4 address to send to; defaults to the hardcoded master")
	dataDir := cliDataDir(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fromPriv == "" || *to == "" {
		return fmt.Errorf("send: -from-priv and -to are required")
	}

	privBytes, err := base58.DecodeExact(*fromPriv, vfcec.FieldByteSize)
	if err != nil {
		return fmt.Errorf("send: decoding -from-priv: %w", err)
	}
	priv, err := vfcec.ParsePrivateKey(privBytes)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	toBytes, err := base58.DecodeExact(*to, wire.PubKeySize)
	if err != nil {
		return fmt.Errorf("send: decoding -to: %w", err)
	}

	var rec wire.TxRecord
	copy(rec.From[:], priv.PubKey().Serialize())
	copy(rec.To[:], toBytes)
	rec.Amount = uint32(*amount)
	rec.UID = randomUID()
	digest := chainhash.HashB(rec.SigningBytes())
	sig, err := priv.Sign(digest)
	if err != nil {
		return fmt.Errorf("send: signing: %w", err)
	}
	copy(rec.Signature[:], sig.Serialize())

	cfg := &config.Config{DataDir: *dataDir}
	params := chainparams.MainNetParams()
	result, err := admitLocally(cfg, params, &rec)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	fmt.Printf("admission result: %s\n", result)
	if result != admission.Accepted {
		return nil
	}

	if *noBroadcast {
		return nil
	}
	target := params.MasterIP
	if *master != "" {
		target = *master
	}
	if err := sendDatagram(target, params.ListenPort, (&wire.MsgTx{Record: rec}).Encode(wire.OpTx)); err != nil {
		fmt.Printf("broadcast failed: %v\n", err)
	}
	return nil
}

func randomUID() uint64 {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return binary.LittleEndian.Uint64(buf[:])
}

// newReadOnlyManager builds an addrmgr.Manager purely to decode a
// persisted peer-table sidecar for display; no sender is wired, so
// Broadcast/TriBroadcast are never reachable from CLI code.
func newReadOnlyManager(params *chainparams.Params) *addrmgr.Manager {
	return addrmgr.New(params)
}

func selfExecutablePath() (string, error) {
	return os.Executable()
}

func waitForInterrupt() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGINT)
	<-sig
}

func sendDatagram(ipStr string, port int, packet []byte) error {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return fmt.Errorf("invalid address %q", ipStr)
	}
	conn, err := net.DialUDP("udp4", nil, &net.UDPAddr{IP: ip, Port: port})
	if err != nil {
		return err
	}
	defer conn.Close()
	_, err = conn.Write(packet)
	return err
}

// admitLocally opens this node's own ledger/ring and runs rec through a
// fresh admission.Pipeline, matching exactly what the daemon would do
// for a received OpTx, then closes everything back up. Used by both
// "send" (to decide whether to bother broadcasting) and indirectly by
// "mine"'s payout fork.
func admitLocally(cfg *config.Config, params *chainparams.Params, rec *wire.TxRecord) (admission.Result, error) {
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return 0, err
	}
	defer store.Close()

	ring := uniqset.NewRing(uniqset.DefaultRingSize, params.RecentExecWindow)
	pipeline, err := admission.New(params, store, ring)
	if err != nil {
		return 0, err
	}
	return pipeline.Admit(rec)
}

// cmdBalance implements "query balance".
func cmdBalance(args []string) error {
	fs := flag.NewFlagSet("balance", flag.ContinueOnError)
	pubkey := fs.String("pubkey", "", "Base58 public key to query")
	dataDir := cliDataDir(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *pubkey == "" {
		return fmt.Errorf("balance: -pubkey is required")
	}
	pubBytes, err := base58.DecodeExact(*pubkey, wire.PubKeySize)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	var from [wire.PubKeySize]byte
	copy(from[:], pubBytes)

	cfg := &config.Config{DataDir: *dataDir}
	params := chainparams.MainNetParams()
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	defer store.Close()

	pub, err := vfcec.ParsePubKey(from[:])
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}

	genesisPub, err := base58.DecodeExact(params.GenesisPubKeyB58, wire.PubKeySize)
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	var genesisKey [wire.PubKeySize]byte
	copy(genesisKey[:], genesisPub)

	height, err := store.Height()
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}

	var balance uint64
	switch {
	case from == genesisKey:
		if height > 0 {
			balance = uint64(params.InflationTax) * (height - 1)
		}
	default:
		if value, ok := mining.IsSubgenesis(pub); ok {
			balance = uint64(value)
		}
	}

	err = store.Scan(func(index uint64, r *wire.TxRecord) bool {
		if index == 0 {
			return true
		}
		if r.To == from {
			balance += uint64(r.Amount)
		}
		if r.From == from {
			balance -= uint64(r.Amount)
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("balance: %w", err)
	}
	fmt.Printf("%d.%03d\n", balance/1000, balance%1000)
	return nil
}

// cmdDump implements "dump ledger".
func cmdDump(args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	dataDir := cliDataDir(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := &config.Config{DataDir: *dataDir}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("dump: %w", err)
	}
	defer store.Close()

	return store.Scan(func(index uint64, r *wire.TxRecord) bool {
		fmt.Printf("%d uid=%d from=%s to=%s amount=%d.%03d\n",
			index, r.UID, base58.Encode(r.From[:]), base58.Encode(r.To[:]), r.Amount/1000, r.Amount%1000)
		return true
	})
}

// cmdFind implements "find by uid".
func cmdFind(args []string) error {
	fs := flag.NewFlagSet("find", flag.ContinueOnError)
	uid := fs.Uint64("uid", 0, "uid to search for")
	dataDir := cliDataDir(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := &config.Config{DataDir: *dataDir}
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("find: %w", err)
	}
	defer store.Close()

	found := false
	err = store.Scan(func(index uint64, r *wire.TxRecord) bool {
		if r.UID == *uid {
			fmt.Printf("%d uid=%d from=%s to=%s amount=%d.%03d\n",
				index, r.UID, base58.Encode(r.From[:]), base58.Encode(r.To[:]), r.Amount/1000, r.Amount%1000)
			found = true
			return false
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("find: %w", err)
	}
	if !found {
		fmt.Println("not found")
	}
	return nil
}

// cmdPeers implements "list peers" by reading the running (or last
// persisted) peer-table sidecar directly, without opening a socket.
func cmdPeers(args []string) error {
	fs := flag.NewFlagSet("peers", flag.ContinueOnError)
	dataDir := cliDataDir(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := &config.Config{DataDir: *dataDir}
	params := chainparams.MainNetParams()

	mgr := newReadOnlyManager(params)
	if err := mgr.Load(cfg.DataDir); err != nil {
		return fmt.Errorf("peers: %w", err)
	}
	living := mgr.LivingPeers()
	if len(living) == 0 {
		fmt.Println("no living peers")
		return nil
	}
	for _, ip := range living {
		ua, _ := mgr.UserAgent(ip)
		fmt.Printf("%s %s\n", ip, ua)
	}
	return nil
}

// cmdResync implements "trigger resync": a short-lived process that
// asks the configured peer (the master by default) to begin streaming
// its ledger back to us, the same `r` opcode the daemon's housekeeping
// loop sends, then exits without waiting for the stream.
func cmdResync(args []string) error {
	fs := flag.NewFlagSet("resync", flag.ContinueOnError)
	target := fs.String("peer", "", "IPv4 address to request a replay from; defaults to the hardcoded master")
	if err := fs.Parse(args); err != nil {
		return err
	}
	params := chainparams.MainNetParams()
	ip := params.MasterIP
	if *target != "" {
		ip = *target
	}
	if err := sendDatagram(ip, params.ListenPort, wire.EncodeReplayRequest()); err != nil {
		return fmt.Errorf("resync: %w", err)
	}
	fmt.Println("replay requested")
	return nil
}

// cmdMine implements "mine": runs the keygen miner standalone, paying
// discovered subgenesis keys out to -reward-addr by forking this same
// binary's send subcommand, until interrupted.
func cmdMine(args []string) error {
	fs := flag.NewFlagSet("mine", flag.ContinueOnError)
	threads := fs.Int("threads", 1, "number of mining goroutines")
	rewardAddr := fs.String("reward-addr", "", "Base58 public key to pay discovered keys out to")
	dataDir := cliDataDir(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := &config.Config{DataDir: *dataDir}

	var payer mining.Payer
	if *rewardAddr != "" {
		self, err := selfExecutablePath()
		if err != nil {
			return fmt.Errorf("mine: %w", err)
		}
		payer = &mining.CLIPayer{BinaryPath: self, RewardAddress: *rewardAddr}
	}

	m := mining.NewMiner(*threads, payer, cfg.MintedPath())
	m.Start()
	defer m.Stop()

	fmt.Println("mining; press ctrl-c to stop")
	waitForInterrupt()
	return nil
}

// cmdSupply implements "supply": prints the mined and circulating
// supply totals computed from the local ledger.
func cmdSupply(args []string) error {
	fs := flag.NewFlagSet("supply", flag.ContinueOnError)
	dataDir := cliDataDir(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg := &config.Config{DataDir: *dataDir}
	params := chainparams.MainNetParams()
	store, err := ledger.Open(cfg.LedgerPath())
	if err != nil {
		return fmt.Errorf("supply: %w", err)
	}
	defer store.Close()

	mined, err := mining.MinedSupply(store, params)
	if err != nil {
		return fmt.Errorf("supply: %w", err)
	}
	circulating, err := mining.CirculatingSupply(store, params)
	if err != nil {
		return fmt.Errorf("supply: %w", err)
	}
	fmt.Printf("mined:       %d.%03d\n", mined/1000, mined%1000)
	fmt.Printf("circulating: %d.%03d\n", circulating/1000, circulating%1000)
	return nil
}

// cmdDifficulty implements "get/set local difficulty".
func cmdDifficulty(args []string) error {
	fs := flag.NewFlagSet("difficulty", flag.ContinueOnError)
	dataDir := cliDataDir(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	rest := fs.Args()
	cfg := &config.Config{DataDir: *dataDir}
	diff := mining.NewDifficulty(cfg.DiffPath(), cfg.NetDiffPath())

	if len(rest) == 0 || rest[0] == "get" {
		fmt.Printf("local:   %.3f\n", diff.Local())
		fmt.Printf("network: %.3f\n", diff.Net())
		return nil
	}
	if rest[0] != "set" || len(rest) != 2 {
		return fmt.Errorf("difficulty: usage is %q or %q", "difficulty get", "difficulty set <value>")
	}
	v, err := strconv.ParseFloat(rest[1], 64)
	if err != nil {
		return fmt.Errorf("difficulty: %w", err)
	}
	if err := diff.SetLocal(v); err != nil {
		return fmt.Errorf("difficulty: %w", err)
	}
	fmt.Printf("local difficulty set to %.3f\n", diff.Local())
	return nil
}
