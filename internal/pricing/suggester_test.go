// Farmgate - Produce Marketplace and Quality-Aware Pricing
// Copyright 2026 Farmgate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/farmgate/farmgate

package pricing

import (
	"math"
	"testing"

	"github.com/farmgate/farmgate/internal/models"
)

func priceTable() map[string]float64 {
	return map[string]float64{
		models.QualityGood:   40,
		models.QualityRotten: 10,
		models.QualityBad:    2,
	}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestSuggestPerUnit_UndividedWeighting pins the documented decision that
// the weighted sum is NOT divided by the total probability mass.
func TestSuggestPerUnit_UndividedWeighting(t *testing.T) {
	dist := map[string]float64{
		models.QualityGood:   0.7,
		models.QualityRotten: 0.2,
		models.QualityBad:    0.1,
	}

	got, ok := SuggestPerUnit(dist, priceTable(), models.QualityGood)
	if !ok {
		t.Fatal("expected a suggestion")
	}
	// 40*0.7 + 10*0.2 + 2*0.1 = 30.2
	if !almostEqual(got, 30.20) {
		t.Errorf("SuggestPerUnit = %v, want 30.20", got)
	}

	// A distribution summing to 0.5 must yield the raw weighted sum, not the
	// normalized average (which would be 40).
	half := map[string]float64{models.QualityGood: 0.5}
	got, ok = SuggestPerUnit(half, priceTable(), models.QualityGood)
	if !ok || !almostEqual(got, 20.00) {
		t.Errorf("SuggestPerUnit(half mass) = %v, %v, want 20.00 (undivided)", got, ok)
	}
}

func TestSuggestPerUnit_FallbackToFinalLabel(t *testing.T) {
	got, ok := SuggestPerUnit(nil, map[string]float64{models.QualityGood: 40}, models.QualityGood)
	if !ok || got != 40 {
		t.Errorf("fallback = %v, %v, want 40, true", got, ok)
	}

	// Empty distribution behaves like an absent one.
	got, ok = SuggestPerUnit(map[string]float64{}, map[string]float64{models.QualityGood: 40}, models.QualityGood)
	if !ok || got != 40 {
		t.Errorf("fallback with empty dist = %v, %v, want 40, true", got, ok)
	}
}

func TestSuggestPerUnit_NoData(t *testing.T) {
	tests := []struct {
		name       string
		dist       map[string]float64
		table      map[string]float64
		finalLabel string
	}{
		{"no table", map[string]float64{models.QualityGood: 0.9}, nil, models.QualityGood},
		{"no overlap and unknown label", map[string]float64{"Mystery": 1}, priceTable(), "Mystery2"},
		{"nothing at all", nil, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SuggestPerUnit(tt.dist, tt.table, tt.finalLabel)
			if ok {
				t.Errorf("SuggestPerUnit = %v, ok=true, want absent (ok=false)", got)
			}
			if got != 0 {
				t.Errorf("absent suggestion should carry zero value, got %v", got)
			}
		})
	}
}

func TestSuggestPerUnit_PartialOverlap(t *testing.T) {
	// Only Good/Fresh is priced; the other labels are excluded from the sum.
	dist := map[string]float64{
		models.QualityGood:   0.6,
		models.QualityRotten: 0.4,
	}
	table := map[string]float64{models.QualityGood: 50}

	got, ok := SuggestPerUnit(dist, table, models.QualityGood)
	if !ok || !almostEqual(got, 30.00) {
		t.Errorf("SuggestPerUnit = %v, %v, want 30.00", got, ok)
	}
}

func TestSuggestPerUnit_NegativeProbabilitiesIgnored(t *testing.T) {
	dist := map[string]float64{
		models.QualityGood:   0.7,
		models.QualityRotten: -0.2,
	}
	got, ok := SuggestPerUnit(dist, priceTable(), models.QualityGood)
	if !ok || !almostEqual(got, 28.00) {
		t.Errorf("SuggestPerUnit = %v, %v, want 28.00 (negative mass ignored)", got, ok)
	}
}

func TestSuggestTotal(t *testing.T) {
	// Quality-blind baseline: admin price 40/unit, quantity 5.
	got, ok := SuggestTotal(40, 5)
	if !ok || !almostEqual(got, 200.00) {
		t.Errorf("SuggestTotal(40, 5) = %v, %v, want 200.00", got, ok)
	}

	if _, ok := SuggestTotal(40, 0); ok {
		t.Error("SuggestTotal with zero quantity should be absent")
	}
	if _, ok := SuggestTotal(40, -1); ok {
		t.Error("SuggestTotal with negative quantity should be absent")
	}
}

func TestRound2_HalfUp(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{30.005, 30.01},
		{30.004, 30.00},
		{30.2, 30.20},
		{0, 0},
		{1.005, 1.01},
		{199.999, 200.00},
	}
	for _, tt := range tests {
		if got := Round2(tt.in); !almostEqual(got, tt.want) {
			t.Errorf("Round2(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
