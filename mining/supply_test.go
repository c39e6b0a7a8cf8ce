// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"path/filepath"
	"testing"

	"github.com/vfcsuite/vfcd/base58"
	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/vfcec"
	"github.com/vfcsuite/vfcd/wire"
)

func openSupplyTestStore(t *testing.T) (*ledger.Store, *chainparams.Params) {
	t.Helper()
	dir := t.TempDir()
	store, err := ledger.Open(filepath.Join(dir, "blocks.dat"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store, chainparams.MainNetParams()
}

func randomSupplyPub(t *testing.T) *vfcec.PublicKey {
	t.Helper()
	priv, err := vfcec.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	return priv.PubKey()
}

func TestMinedSupplyIgnoresOrdinaryTransfers(t *testing.T) {
	store, params := openSupplyTestStore(t)

	for i := 0; i < 3; i++ {
		var rec wire.TxRecord
		rec.UID = uint64(i + 1)
		copy(rec.From[:], randomSupplyPub(t).Serialize())
		copy(rec.To[:], randomSupplyPub(t).Serialize())
		rec.Amount = 100
		if err := store.Append(&rec); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	mined, err := MinedSupply(store, params)
	if err != nil {
		t.Fatalf("MinedSupply: %v", err)
	}
	if mined != 0 {
		t.Fatalf("MinedSupply = %d, want 0 (no freshly generated key should satisfy the subgenesis predicate)", mined)
	}
}

func TestCirculatingSupplyCountsGenesisSpendsAndTaxPool(t *testing.T) {
	store, params := openSupplyTestStore(t)

	genesisKey, err := base58.DecodeExact(params.GenesisPubKeyB58, wire.PubKeySize)
	if err != nil {
		t.Fatalf("decoding genesis key: %v", err)
	}

	var rec wire.TxRecord
	rec.UID = 1
	copy(rec.From[:], genesisKey)
	copy(rec.To[:], randomSupplyPub(t).Serialize())
	rec.Amount = 500
	if err := store.Append(&rec); err != nil {
		t.Fatalf("Append: %v", err)
	}

	height, err := store.Height()
	if err != nil {
		t.Fatalf("Height: %v", err)
	}
	wantTaxShare := (height * uint64(params.InflationTax) / 100) * 20

	circulating, err := CirculatingSupply(store, params)
	if err != nil {
		t.Fatalf("CirculatingSupply: %v", err)
	}
	if want := wantTaxShare + 500; circulating != want {
		t.Fatalf("CirculatingSupply = %d, want %d", circulating, want)
	}
}
