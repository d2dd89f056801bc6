package state

import (
	"errors"
	"fmt"
	stdmath "math"

	riskmath "PoolRisk/internal/math"
)

var ErrInvalidRateConfig = errors.New("invalid interest rate config")

// InterestRateConfig is a pool's utilization-based rate curve as fetched
// from chain. Rates and utilization are fractions.
type InterestRateConfig struct {
	OptimalUtilization float64 `json:"optimal_utilization"`
	BaseRate           float64 `json:"base_rate"`
	BaseSlope          float64 `json:"base_slope"`
	ExcessSlope        float64 `json:"excess_slope,omitempty"`
	ProtocolSpread     float64 `json:"protocol_spread"`
}

// Curve converts the config into the rate-curve math type.
func (c InterestRateConfig) Curve() riskmath.RateCurve {
	return riskmath.RateCurve{
		OptimalUtilization: c.OptimalUtilization,
		BaseRate:           c.BaseRate,
		BaseSlope:          c.BaseSlope,
		ExcessSlope:        c.ExcessSlope,
		ProtocolSpread:     c.ProtocolSpread,
	}
}

// ValidateRateConfig checks optimal utilization in (0, 1], spread in
// [0, 1) and non-negative rates.
func ValidateRateConfig(c InterestRateConfig) error {
	if !(c.OptimalUtilization > 0 && c.OptimalUtilization <= 1) {
		return fmt.Errorf("%w: optimal_utilization must be in (0, 1], got %v", ErrInvalidRateConfig, c.OptimalUtilization)
	}
	if !(c.ProtocolSpread >= 0 && c.ProtocolSpread < 1) {
		return fmt.Errorf("%w: protocol_spread must be in [0, 1), got %v", ErrInvalidRateConfig, c.ProtocolSpread)
	}
	if stdmath.IsNaN(c.BaseRate) || c.BaseRate < 0 {
		return fmt.Errorf("%w: base_rate must be >= 0, got %v", ErrInvalidRateConfig, c.BaseRate)
	}
	if stdmath.IsNaN(c.BaseSlope) || c.BaseSlope < 0 {
		return fmt.Errorf("%w: base_slope must be >= 0, got %v", ErrInvalidRateConfig, c.BaseSlope)
	}
	if stdmath.IsNaN(c.ExcessSlope) || c.ExcessSlope < 0 {
		return fmt.Errorf("%w: excess_slope must be >= 0, got %v", ErrInvalidRateConfig, c.ExcessSlope)
	}
	return nil
}

// PoolState is the pool's current supply and borrow totals.
type PoolState struct {
	TotalSupply float64 `json:"total_supply"`
	TotalBorrow float64 `json:"total_borrow"`
}

// Utilization returns borrow/supply, or 0 for an empty pool.
func (s PoolState) Utilization() float64 {
	if s.TotalSupply <= 0 {
		return 0
	}
	return s.TotalBorrow / s.TotalSupply
}
