// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

// Package pricing computes suggested prices from a quality-class probability
// distribution and the admin price table for the day.
//
// The weighted form intentionally does NOT divide by the total probability
// mass: the distribution is treated as already summing to ~1 and acts as a
// weighting. Callers that need true expected-value semantics must normalize
// upstream. This choice is pinned by TestSuggestPerUnit_UndividedWeighting.
package pricing

import "math"

// SuggestPerUnit combines a class probability distribution with a per-label
// price table into a single suggested price per unit.
//
// Labels present in both the distribution and the table contribute
// price*probability to a weighted sum. If any label contributed, the result
// is the weighted sum rounded to 2 decimals. Otherwise the table price for
// finalLabel (the classifier's argmax label) is used verbatim. When neither
// path yields a value, ok is false: no price could be suggested, which is a
// valid business outcome distinct from zero.
func SuggestPerUnit(dist map[string]float64, table map[string]float64, finalLabel string) (price float64, ok bool) {
	var weighted, totalWeight float64
	for label, p := range dist {
		tablePrice, have := table[label]
		if !have || p < 0 {
			continue
		}
		weighted += tablePrice * p
		totalWeight += p
	}
	if totalWeight > 0 {
		return Round2(weighted), true
	}

	if p, have := table[finalLabel]; have {
		return p, true
	}
	return 0, false
}

// SuggestTotal scales a per-unit price by quantity, rounding once at the end.
// Returns ok=false for non-positive quantities.
func SuggestTotal(perUnit, quantity float64) (total float64, ok bool) {
	if quantity <= 0 {
		return 0, false
	}
	return Round2(perUnit * quantity), true
}

// round2Epsilon counters the binary representation of decimal literals:
// 30.005 is stored as 30.004999..., and without the nudge it would round
// down instead of half-up. Values more than ~1e-11 below a true .005
// boundary are unaffected.
const round2Epsilon = 1e-9

// Round2 rounds to 2 decimal places with half-up semantics: 30.005 -> 30.01.
// Prices are non-negative throughout the system, so the floor form is exact.
func Round2(v float64) float64 {
	return math.Floor(v*100+0.5+round2Epsilon) / 100
}
