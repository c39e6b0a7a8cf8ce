// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/vfcsuite/vfcd/base58"
	"github.com/vfcsuite/vfcd/chainparams"
	"github.com/vfcsuite/vfcd/ledger"
	"github.com/vfcsuite/vfcd/vfcec"
	"github.com/vfcsuite/vfcd/wire"
)

func genesisKeyFromParams(params *chainparams.Params) ([wire.PubKeySize]byte, error) {
	var key [wire.PubKeySize]byte
	decoded, err := base58.DecodeExact(params.GenesisPubKeyB58, wire.PubKeySize)
	if err != nil {
		return key, err
	}
	copy(key[:], decoded)
	return key, nil
}

// MinedSupply sums the subgenesis-predicate value of every public key
// that has ever appeared as a non-genesis transaction's sender. A
// mined address is counted once per spend it has made, not once
// overall: an address that sends more than one record (including a
// zero-amount self-transfer) is added again each time, matching
// getMinedSupply()'s literal per-record scan.
func MinedSupply(store *ledger.Store, params *chainparams.Params) (uint64, error) {
	genesisKey, err := genesisKeyFromParams(params)
	if err != nil {
		return 0, err
	}

	var total uint64
	err = store.Scan(func(index uint64, r *wire.TxRecord) bool {
		if index == 0 || r.From == genesisKey {
			return true
		}
		if pub, perr := vfcec.ParsePubKey(r.From[:]); perr == nil {
			if value, ok := IsSubgenesis(pub); ok {
				total += uint64(value)
			}
		}
		return true
	})
	return total, err
}

// CirculatingSupply estimates the portion of the accrued inflation tax
// already moving in the economy: 20% of the tax pool (height *
// InflationTax, counting the genesis record itself), plus every
// subgenesis spend MinedSupply would count, plus every amount ever
// transferred directly out of the genesis key. Mirrors
// getCirculatingSupply().
func CirculatingSupply(store *ledger.Store, params *chainparams.Params) (uint64, error) {
	genesisKey, err := genesisKeyFromParams(params)
	if err != nil {
		return 0, err
	}

	height, err := store.Height()
	if err != nil {
		return 0, err
	}
	taxPool := height * uint64(params.InflationTax)
	total := (taxPool / 100) * 20

	err = store.Scan(func(index uint64, r *wire.TxRecord) bool {
		if index == 0 {
			return true
		}
		if r.From == genesisKey {
			total += uint64(r.Amount)
			return true
		}
		if pub, perr := vfcec.ParsePubKey(r.From[:]); perr == nil {
			if value, ok := IsSubgenesis(pub); ok {
				total += uint64(value)
			}
		}
		return true
	})
	return total, err
}
