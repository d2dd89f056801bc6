package state

import (
	riskmath "PoolRisk/internal/math"
)

// Valuation is a position re-priced under a uniform base-price shock.
type Valuation struct {
	CollateralUSD float64        `json:"collateral_usd"`
	DebtUSD       float64        `json:"debt_usd"`
	RiskRatio     riskmath.Ratio `json:"risk_ratio"`
	Liquidatable  bool           `json:"liquidatable"`
}

// Revalue prices p under a pct move of the base asset (e.g. -35 for a 35%
// drop). Base collateral and base debt scale with the move, quote legs are
// held fixed. The fixed debt is whatever TotalDebt carries beyond the base
// leg, so a supplied total and a zero shock agree with CurrentValuation.
// The position is not modified.
func Revalue(p Position, pct float64) Valuation {
	m := riskmath.ShockMultiplier(pct)

	collateral := p.BaseAssetUSD*m + p.QuoteAssetUSD
	debt := p.BaseDebtUSD*m + p.FixedDebt()

	ratio := riskmath.Divide(collateral, debt)
	return Valuation{
		CollateralUSD: collateral,
		DebtUSD:       debt,
		RiskRatio:     ratio,
		Liquidatable:  ratio.AtOrBelow(p.LiquidationThreshold),
	}
}

// CurrentValuation values p at zero shock using its total debt, which may
// have been supplied directly by the fetch layer.
func CurrentValuation(p Position) Valuation {
	collateral := p.Collateral()
	debt := p.TotalDebt()

	ratio := riskmath.Divide(collateral, debt)
	return Valuation{
		CollateralUSD: collateral,
		DebtUSD:       debt,
		RiskRatio:     ratio,
		Liquidatable:  ratio.AtOrBelow(p.LiquidationThreshold),
	}
}

// HealthFactor is the current risk ratio relative to the position's own
// liquidation threshold; 1.0 is the liquidation boundary. Compare bands
// with AtOrBelowHealthFactor, not against this quotient.
func HealthFactor(p Position) riskmath.Ratio {
	return CurrentValuation(p).RiskRatio.Scale(p.LiquidationThreshold)
}

// AtOrBelowHealthFactor reports whether p's current health factor is at or
// below hf. It compares ratio <= hf*threshold, so hf 1.0 matches
// Valuation.Liquidatable exactly.
func AtOrBelowHealthFactor(p Position, hf float64) bool {
	return CurrentValuation(p).RiskRatio.AtOrBelow(hf * p.LiquidationThreshold)
}

// MarginStatus is the coarse health of a position.
type MarginStatus int

const (
	MarginStatusHealthy MarginStatus = iota
	MarginStatusAtRisk
	MarginStatusLiquidatable
)

// AtRiskHealthFactor marks the upper bound of the at-risk band.
const AtRiskHealthFactor = 1.1

// CheckMarginHealth classifies p at zero shock.
func CheckMarginHealth(p Position) MarginStatus {
	v := CurrentValuation(p)
	if v.Liquidatable {
		return MarginStatusLiquidatable
	}
	if v.RiskRatio.AtOrBelow(AtRiskHealthFactor * p.LiquidationThreshold) {
		return MarginStatusAtRisk
	}
	return MarginStatusHealthy
}

func (ms MarginStatus) String() string {
	switch ms {
	case MarginStatusHealthy:
		return "Healthy"
	case MarginStatusAtRisk:
		return "AtRisk"
	case MarginStatusLiquidatable:
		return "Liquidatable"
	default:
		return "Unknown"
	}
}
