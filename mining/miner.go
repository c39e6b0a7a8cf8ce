// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/vfcsuite/vfcd/base58"
	"github.com/vfcsuite/vfcd/vfcec"
)

// rateReportInterval is the sampling window for the reported hash rate.
const rateReportInterval = 16 * time.Second

// Hit is a subgenesis key found by the miner.
type Hit struct {
	Priv  *vfcec.PrivateKey
	Pub   *vfcec.PublicKey
	Value uint32
}

// Payer sends value from a newly mined subgenesis address to the
// node's own reward address. It is invoked out-of-line (by forking a
// child process) so that a slow or failing payout never blocks the
// search loop.
type Payer interface {
	Pay(priv *vfcec.PrivateKey, value uint32) error
}

// CLIPayer implements Payer by forking the daemon's own CLI binary,
// so a slow or failing payout process never blocks the search loop.
type CLIPayer struct {
	// BinaryPath is the path to the vfcd executable.
	BinaryPath string
	// RewardAddress is the Base58 public key payouts are sent to.
	RewardAddress string
}

// Pay forks BinaryPath with a send subcommand moving value from priv's
// address to RewardAddress.
func (p *CLIPayer) Pay(priv *vfcec.PrivateKey, value uint32) error {
	privB58 := base58.Encode(priv.Serialize())
	amount := fmt.Sprintf("%d", value)
	cmd := exec.Command(p.BinaryPath, "send", "--from-priv", privB58, "--to", p.RewardAddress, "--amount", amount)
	return cmd.Start()
}

// Miner runs a bounded pool of keygen search goroutines, each
// generating fresh keypairs and testing them against Evaluate.
type Miner struct {
	threads    int
	payer      Payer
	mintedPath string

	hashCount uint64 // atomic, reset every rateReportInterval
	lastRate  uint64 // atomic, keys/s observed over the last interval

	mu      sync.Mutex
	hits    []Hit
	stopped chan struct{}
	wg      sync.WaitGroup
}

// NewMiner constructs a Miner with the given worker count. mintedPath
// is the append-only "(base58_private, value)" log.
func NewMiner(threads int, payer Payer, mintedPath string) *Miner {
	if threads < 1 {
		threads = 1
	}
	return &Miner{
		threads:    threads,
		payer:      payer,
		mintedPath: mintedPath,
	}
}

// Start launches the search goroutines and the hash-rate reporter.
// Stop ends the search.
func (m *Miner) Start() {
	m.mu.Lock()
	if m.stopped != nil {
		m.mu.Unlock()
		return
	}
	m.stopped = make(chan struct{})
	stop := m.stopped
	m.mu.Unlock()

	for i := 0; i < m.threads; i++ {
		m.wg.Add(1)
		go m.searchLoop(stop)
	}
	m.wg.Add(1)
	go m.rateReporter(stop)
}

// Stop signals every search goroutine to exit and waits for them.
func (m *Miner) Stop() {
	m.mu.Lock()
	stop := m.stopped
	m.stopped = nil
	m.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	m.wg.Wait()
}

// HashRate returns the approximate keys-per-second rate observed over
// the most recently completed rateReportInterval window.
func (m *Miner) HashRate() uint64 {
	return atomic.LoadUint64(&m.lastRate)
}

func (m *Miner) searchLoop(stop <-chan struct{}) {
	defer m.wg.Done()
	for {
		select {
		case <-stop:
			return
		default:
		}

		priv, err := vfcec.GeneratePrivateKey()
		if err != nil {
			log.Errorf("mining: keygen failed: %v", err)
			continue
		}
		pub := priv.PubKey()
		atomic.AddUint64(&m.hashCount, 1)

		value, ok := IsSubgenesis(pub)
		if !ok {
			continue
		}
		m.onHit(Hit{Priv: priv, Pub: pub, Value: value})
	}
}

func (m *Miner) onHit(hit Hit) {
	log.Infof("mining: found subgenesis key, value=%d.%03d", hit.Value/1000, hit.Value%1000)

	if err := m.appendMinted(hit); err != nil {
		log.Warnf("mining: failed to log minted key: %v", err)
	}
	if m.payer != nil {
		if err := m.payer.Pay(hit.Priv, hit.Value); err != nil {
			log.Warnf("mining: payout fork failed: %v", err)
		}
	}

	m.mu.Lock()
	m.hits = append(m.hits, hit)
	m.mu.Unlock()
}

func (m *Miner) appendMinted(hit Hit) error {
	if m.mintedPath == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(m.mintedPath), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(m.mintedPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()
	line := fmt.Sprintf("%s %d\n", base58.Encode(hit.Priv.Serialize()), hit.Value)
	_, err = f.WriteString(line)
	return err
}

func (m *Miner) rateReporter(stop <-chan struct{}) {
	defer m.wg.Done()
	ticker := time.NewTicker(rateReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rate := atomic.SwapUint64(&m.hashCount, 0) / uint64(rateReportInterval/time.Second)
			atomic.StoreUint64(&m.lastRate, rate)
			log.Infof("mining: ~%d keys/s", rate)
		}
	}
}
