package core

import (
	riskmath "PoolRisk/internal/math"
	"PoolRisk/internal/state"
)

// SimulationPoint is the aggregate outcome of one price shock.
type SimulationPoint struct {
	PriceChangePct      float64 `json:"price_change_pct"`
	LiquidatableCount   int     `json:"liquidatable_count"`
	DebtAtRiskUSD       float64 `json:"debt_at_risk_usd"`
	CollateralAtRiskUSD float64 `json:"collateral_at_risk_usd"`

	// PriceLevel is the reference oracle price after the shock; zero when
	// the position set carries no oracle price.
	PriceLevel float64 `json:"price_level,omitempty"`
}

// Simulate re-values every position under a pct move of the base asset and
// sums debt and collateral of the positions that are liquidatable at that
// move. Positions are independent: no cascades, no price feedback.
func Simulate(positions []state.Position, pct float64) SimulationPoint {
	point := SimulationPoint{PriceChangePct: pct}

	for _, p := range positions {
		v := state.Revalue(p, pct)
		if !v.Liquidatable {
			continue
		}
		point.LiquidatableCount++
		point.DebtAtRiskUSD += v.DebtUSD
		point.CollateralAtRiskUSD += v.CollateralUSD
	}

	if ref := ReferencePrice(positions); !ref.IsZero() {
		point.PriceLevel, _ = ref.Shocked(pct).Float64()
	}

	return point
}

// ReferencePrice returns the first non-zero base oracle price in the set.
// Positions of one pool share a base asset, so any of them will do.
func ReferencePrice(positions []state.Position) riskmath.OraclePrice {
	for _, p := range positions {
		if op := p.OraclePrice(); !op.IsZero() {
			return op
		}
	}
	return riskmath.OraclePrice{}
}
