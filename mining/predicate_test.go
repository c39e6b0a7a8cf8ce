// Copyright (c) 2018 The ExchangeCoin team
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"testing"

	"github.com/vfcsuite/vfcd/vfcec"
)

func TestEvaluateIsDeterministic(t *testing.T) {
	priv, err := vfcec.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("GeneratePrivateKey: %v", err)
	}
	pub := priv.PubKey()

	p1 := Evaluate(pub)
	p2 := Evaluate(pub)
	if p1 != p2 {
		t.Fatalf("Evaluate is not deterministic for the same public key")
	}
}

func TestValueMonotonicWithMean(t *testing.T) {
	low := Predicate{C1: 0.01, C2: 0.01, C3: 0.01, C4: 0.01, Valid: true}
	high := Predicate{C1: 0.2, C2: 0.2, C3: 0.2, C4: 0.2, Valid: true}

	if low.Value() <= high.Value() {
		t.Fatalf("Value() = %d for low mean, %d for high mean; want low > high", low.Value(), high.Value())
	}
}

func TestThresholdRuleRejectsFixtureAboveThreshold(t *testing.T) {
	p := Predicate{C1: 0.5, C2: 0.01, C3: 0.01, C4: 0.01}
	sum := p.C1 + p.C2 + p.C3 + p.C4
	valid := p.C1 < Threshold && p.C2 < Threshold && p.C3 < Threshold && p.C4 < Threshold && sum > 0
	if valid {
		t.Fatalf("test fixture itself should be invalid (c1 exceeds Threshold)")
	}
}

func TestValueFormula(t *testing.T) {
	// mean == 0 (as close as cosines allow) should approach the maximum
	// advertised value of 11000 (1000 + 10000*(1-0)).
	p := Predicate{C1: 0, C2: 0, C3: 0, C4: 0, Valid: true}
	if got, want := p.Value(), uint32(11000); got != want {
		t.Fatalf("Value() = %d, want %d", got, want)
	}

	// mean == Threshold gives the minimum value, 1000.
	p2 := Predicate{C1: Threshold, C2: Threshold, C3: Threshold, C4: Threshold, Valid: true}
	if got, want := p2.Value(), uint32(1000); got != want {
		t.Fatalf("Value() at mean==Threshold = %d, want %d", got, want)
	}
}
