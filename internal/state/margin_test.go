package state_test

import (
	stdmath "math"
	"testing"

	"PoolRisk/internal/state"
)

func approxEqual(a, b float64) bool {
	return stdmath.Abs(a-b) < 1e-9
}

// ============================================================================
// Test: Revalue
// ============================================================================

func TestRevalue_BaseOnlyRatioIsShockInvariant(t *testing.T) {
	p := state.NewPosition("p1", 150, 0, 100, 0, 1.1)

	v0 := state.Revalue(p, 0)
	r0, ok := v0.RiskRatio.Value()
	if !ok || !approxEqual(r0, 1.5) {
		t.Fatalf("ratio at 0%%: got %s, want 1.5", v0.RiskRatio)
	}
	if v0.Liquidatable {
		t.Error("should not be liquidatable at 0%")
	}

	v := state.Revalue(p, -35)
	if !approxEqual(v.CollateralUSD, 97.5) {
		t.Errorf("collateral at -35%%: got %v, want 97.5", v.CollateralUSD)
	}
	if !approxEqual(v.DebtUSD, 65) {
		t.Errorf("debt at -35%%: got %v, want 65", v.DebtUSD)
	}
	r, _ := v.RiskRatio.Value()
	if !approxEqual(r, 1.5) {
		t.Errorf("ratio at -35%%: got %v, want 1.5", r)
	}
	if v.Liquidatable {
		t.Error("should not be liquidatable at -35% (constant ratio)")
	}
}

func TestRevalue_MixedPositionMovesWithShock(t *testing.T) {
	// Long base against quote debt
	p := state.NewPosition("p1", 150, 0, 0, 100, 1.1)

	v := state.Revalue(p, -30)
	r, _ := v.RiskRatio.Value()
	if !approxEqual(r, 1.05) {
		t.Errorf("ratio at -30%%: got %v, want 1.05", r)
	}
	if !v.Liquidatable {
		t.Error("should be liquidatable at -30%")
	}
}

func TestRevalue_ThresholdIsInclusive(t *testing.T) {
	p := state.NewPosition("p1", 110, 0, 0, 100, 1.1)
	if !state.Revalue(p, 0).Liquidatable {
		t.Error("ratio == threshold must be liquidatable")
	}
}

func TestRevalue_ZeroDebtIsNeverLiquidatable(t *testing.T) {
	p := state.NewPosition("p1", 150, 50, 0, 0, 1.1)

	for _, pct := range []float64{-99, -50, 0, 20} {
		v := state.Revalue(p, pct)
		if !v.RiskRatio.IsUnbounded() {
			t.Errorf("pct=%v: ratio should be unbounded, got %s", pct, v.RiskRatio)
		}
		if v.Liquidatable {
			t.Errorf("pct=%v: zero-debt position must never be liquidatable", pct)
		}
	}
	if p.IsLiquidatable {
		t.Error("derived IsLiquidatable should be false")
	}
}

func TestRevalue_DoesNotMutateInput(t *testing.T) {
	p := state.NewPosition("p1", 150, 20, 30, 40, 1.1)
	before := p

	state.Revalue(p, -40)

	if p != before {
		t.Errorf("position mutated: got %+v, want %+v", p, before)
	}
}

func TestRevalue_NaNPropagates(t *testing.T) {
	p := state.NewPosition("p1", stdmath.NaN(), 0, 0, 100, 1.1)

	v := state.Revalue(p, -10)
	r, ok := v.RiskRatio.Value()
	if !ok || !stdmath.IsNaN(r) {
		t.Errorf("expected bounded NaN ratio, got %s", v.RiskRatio)
	}
	if v.Liquidatable {
		t.Error("NaN ratio should not compare as liquidatable")
	}
}

// ============================================================================
// Test: current valuation and health
// ============================================================================

func TestCurrentValuation_UsesSuppliedTotalDebt(t *testing.T) {
	p := state.Position{
		PositionID:           "p1",
		BaseAssetUSD:         120,
		TotalDebtUSD:         100, // legs omitted upstream
		LiquidationThreshold: 1.25,
	}

	v := state.CurrentValuation(p)
	if !approxEqual(v.DebtUSD, 100) {
		t.Errorf("debt: got %v, want 100", v.DebtUSD)
	}
	if !v.Liquidatable {
		t.Error("1.2 <= 1.25 should be liquidatable")
	}
}

func TestRevalue_SuppliedTotalAgreesAtZeroShock(t *testing.T) {
	// Supplied total exceeds the base leg; the remainder is held fixed.
	p := state.Position{
		PositionID:           "p",
		BaseAssetUSD:         150,
		BaseDebtUSD:          100,
		TotalDebtUSD:         200,
		LiquidationThreshold: 1.1,
	}

	at0 := state.Revalue(p, 0)
	cur := state.CurrentValuation(p)
	if !approxEqual(at0.DebtUSD, cur.DebtUSD) || !approxEqual(at0.DebtUSD, 200) {
		t.Errorf("debt: revalue %v, current %v, want 200", at0.DebtUSD, cur.DebtUSD)
	}
	if at0.Liquidatable != cur.Liquidatable || !at0.Liquidatable {
		t.Errorf("liquidatable: revalue %v, current %v, want true", at0.Liquidatable, cur.Liquidatable)
	}

	down := state.Revalue(p, -10)
	if !approxEqual(down.DebtUSD, 190) || !approxEqual(down.CollateralUSD, 135) {
		t.Errorf("-10%%: got collateral %v debt %v, want 135 and 190", down.CollateralUSD, down.DebtUSD)
	}
}

func TestAtOrBelowHealthFactor_MatchesLiquidatable(t *testing.T) {
	// Ratio one ulp above thresholds just under a power of two.
	for _, th := range []float64{stdmath.Nextafter(1, 0), stdmath.Nextafter(2, 0), stdmath.Nextafter(4, 0), 1.1} {
		for _, c := range []float64{th, stdmath.Nextafter(th, stdmath.Inf(1))} {
			p := state.NewPosition("p", c, 0, 0, 1, th)
			if got := state.AtOrBelowHealthFactor(p, 1.0); got != p.IsLiquidatable {
				t.Errorf("collateral %v threshold %v: band %v, liquidatable %v", c, th, got, p.IsLiquidatable)
			}
		}
	}
}

func TestCheckMarginHealth(t *testing.T) {
	tests := []struct {
		name string
		pos  state.Position
		want state.MarginStatus
	}{
		{"liquidatable", state.NewPosition("a", 105, 0, 0, 100, 1.1), state.MarginStatusLiquidatable},
		{"at risk", state.NewPosition("b", 115, 0, 0, 100, 1.1), state.MarginStatusAtRisk},
		{"healthy", state.NewPosition("c", 200, 0, 0, 100, 1.1), state.MarginStatusHealthy},
		{"no debt", state.NewPosition("d", 200, 0, 0, 0, 1.1), state.MarginStatusHealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := state.CheckMarginHealth(tt.pos); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}
