package state

import (
	"errors"
	"fmt"
	stdmath "math"
)

// BucketSpec is one health-factor band of the risk histogram. A position
// falls in the first band whose UpperHealthFactor is >= its health factor.
type BucketSpec struct {
	Label             string  `json:"label"`
	Color             string  `json:"color"`
	UpperHealthFactor float64 `json:"upper_health_factor"` // inclusive; +Inf for the last band
}

var ErrInvalidBuckets = errors.New("invalid bucket configuration")

// DefaultBuckets are ordered most-at-risk first.
var DefaultBuckets = []BucketSpec{
	{Label: "Liquidatable", Color: "#ef4444", UpperHealthFactor: 1.0},
	{Label: "Critical", Color: "#f97316", UpperHealthFactor: 1.1},
	{Label: "Watch", Color: "#eab308", UpperHealthFactor: 1.5},
	{Label: "Safe", Color: "#22c55e", UpperHealthFactor: stdmath.Inf(1)},
}

// ValidateBuckets checks that bands are non-empty, strictly increasing and
// end in an unbounded band so every health factor has a home.
func ValidateBuckets(specs []BucketSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: no buckets", ErrInvalidBuckets)
	}
	for i, s := range specs {
		if s.Label == "" {
			return fmt.Errorf("%w: bucket %d has no label", ErrInvalidBuckets, i)
		}
		if stdmath.IsNaN(s.UpperHealthFactor) {
			return fmt.Errorf("%w: bucket %q upper bound is NaN", ErrInvalidBuckets, s.Label)
		}
		if i > 0 && s.UpperHealthFactor <= specs[i-1].UpperHealthFactor {
			return fmt.Errorf("%w: bucket %q upper bound %v must exceed %v",
				ErrInvalidBuckets, s.Label, s.UpperHealthFactor, specs[i-1].UpperHealthFactor)
		}
	}
	if last := specs[len(specs)-1]; !stdmath.IsInf(last.UpperHealthFactor, 1) {
		return fmt.Errorf("%w: last bucket %q must be unbounded", ErrInvalidBuckets, last.Label)
	}
	return nil
}

// ValidatePosition checks the fields the core relies on being positive.
// The core itself never rejects positions; this is for the ingestion shell.
func ValidatePosition(p Position) error {
	if p.PositionID == "" {
		return fmt.Errorf("position_id is required")
	}
	if !(p.LiquidationThreshold > 0) {
		return fmt.Errorf("liquidation_threshold must be > 0, got %v", p.LiquidationThreshold)
	}
	legs := []struct {
		name string
		v    float64
	}{
		{"base_asset_usd", p.BaseAssetUSD},
		{"quote_asset_usd", p.QuoteAssetUSD},
		{"base_debt_usd", p.BaseDebtUSD},
		{"quote_debt_usd", p.QuoteDebtUSD},
	}
	for _, leg := range legs {
		if stdmath.IsNaN(leg.v) || leg.v < 0 {
			return fmt.Errorf("%s must be a non-negative number, got %v", leg.name, leg.v)
		}
	}
	return nil
}
