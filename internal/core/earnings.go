package core

import (
	"errors"
	"fmt"

	riskmath "PoolRisk/internal/math"
	"PoolRisk/internal/state"
)

var ErrInvalidHorizon = errors.New("invalid earnings horizon")

// StandardHorizons are the day counts offered by the earnings view.
var StandardHorizons = []int{7, 30, 90, 180, 365}

// EarningsProjection is the projected interest on a deposit over a horizon
// for the pessimistic, current and optimistic APY scenarios.
type EarningsProjection struct {
	DepositUSD float64           `json:"deposit_usd"`
	Days       int               `json:"days"`
	APY        riskmath.APYRange `json:"apy"`
	Low        float64           `json:"low"`
	Current    float64           `json:"current"`
	High       float64           `json:"high"`
}

// ValidateHorizon rejects non-positive day counts.
func ValidateHorizon(days int) error {
	if days <= 0 {
		return fmt.Errorf("%w: days must be > 0, got %d", ErrInvalidHorizon, days)
	}
	return nil
}

// ScenarioAPYs evaluates the pool's curve at its current utilization and
// applies the display guard rails.
func ScenarioAPYs(rates state.InterestRateConfig, pool state.PoolState) riskmath.APYRange {
	return riskmath.ClampAPYRange(rates.Curve().ScenarioAPYs(pool.Utilization()))
}

// ProjectEarnings projects interest on deposit over days for the three
// APY scenarios.
func ProjectEarnings(rates state.InterestRateConfig, pool state.PoolState, deposit float64, days int) (EarningsProjection, error) {
	if err := state.ValidateRateConfig(rates); err != nil {
		return EarningsProjection{}, err
	}
	if err := ValidateHorizon(days); err != nil {
		return EarningsProjection{}, err
	}

	apy := ScenarioAPYs(rates, pool)
	return EarningsProjection{
		DepositUSD: deposit,
		Days:       days,
		APY:        apy,
		Low:        riskmath.ProjectEarnings(deposit, apy.Pessimistic, days),
		Current:    riskmath.ProjectEarnings(deposit, apy.Current, days),
		High:       riskmath.ProjectEarnings(deposit, apy.Optimistic, days),
	}, nil
}

// ProjectStandardHorizons projects deposit over each of StandardHorizons.
func ProjectStandardHorizons(rates state.InterestRateConfig, pool state.PoolState, deposit float64) ([]EarningsProjection, error) {
	out := make([]EarningsProjection, 0, len(StandardHorizons))
	for _, d := range StandardHorizons {
		ep, err := ProjectEarnings(rates, pool, deposit, d)
		if err != nil {
			return nil, err
		}
		out = append(out, ep)
	}
	return out, nil
}
