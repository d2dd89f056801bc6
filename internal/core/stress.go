package core

import (
	"errors"
	"fmt"
	stdmath "math"

	riskmath "PoolRisk/internal/math"
	"PoolRisk/internal/state"
)

const (
	// ExposureEpsilon is the net base exposure (USD) below which a position
	// is treated as insensitive to the base price.
	ExposureEpsilon = 1e-9

	// MinCliffMultiplier and MinCliffDebtUSD gate cliff candidates.
	MinCliffMultiplier = 2.0
	MinCliffDebtUSD    = 100.0

	// MaxGridPoints bounds the size of a stress sweep.
	MaxGridPoints = 1000
)

var ErrInvalidGrid = errors.New("invalid shock grid")

// ShockGrid is an inclusive sweep of price-change percentages.
type ShockGrid struct {
	MinPct  float64 `json:"min_pct"`
	MaxPct  float64 `json:"max_pct"`
	StepPct float64 `json:"step_pct"`
}

// DefaultShockGrid sweeps -50% to +20% in 2% steps.
var DefaultShockGrid = ShockGrid{MinPct: -50, MaxPct: 20, StepPct: 2}

func (g ShockGrid) Validate() error {
	for _, v := range []float64{g.MinPct, g.MaxPct, g.StepPct} {
		if stdmath.IsNaN(v) || stdmath.IsInf(v, 0) {
			return fmt.Errorf("%w: bounds and step must be finite, got %+v", ErrInvalidGrid, g)
		}
	}
	if !(g.StepPct > 0) {
		return fmt.Errorf("%w: step must be > 0, got %v", ErrInvalidGrid, g.StepPct)
	}
	if !(g.MinPct <= g.MaxPct) {
		return fmt.Errorf("%w: min %v must be <= max %v", ErrInvalidGrid, g.MinPct, g.MaxPct)
	}
	if g.MinPct <= -100 {
		return fmt.Errorf("%w: min must be > -100, got %v", ErrInvalidGrid, g.MinPct)
	}
	// Counted as a float, the same way Points does, so a huge span cannot
	// overflow the int conversion there.
	if n := stdmath.Floor((g.MaxPct-g.MinPct)/g.StepPct+1e-9) + 1; n > MaxGridPoints {
		return fmt.Errorf("%w: more than %d points", ErrInvalidGrid, MaxGridPoints)
	}
	return nil
}

// Points returns the grid percentages in ascending order. Points are
// derived from an integer step count so no rounding drift accumulates.
// The grid must be valid.
func (g ShockGrid) Points() []float64 {
	n := int(stdmath.Floor((g.MaxPct-g.MinPct)/g.StepPct+1e-9)) + 1
	pts := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		pts = append(pts, g.MinPct+float64(i)*g.StepPct)
	}
	return pts
}

// StressCurve runs the simulator at every grid point, ascending by pct.
func StressCurve(positions []state.Position, grid ShockGrid) []SimulationPoint {
	pts := grid.Points()
	curve := make([]SimulationPoint, 0, len(pts))
	for _, pct := range pts {
		curve = append(curve, Simulate(positions, pct))
	}
	return curve
}

// FirstLiquidationPoint is the smallest price drop at which any currently
// safe position is estimated to cross its threshold.
type FirstLiquidationPoint struct {
	PriceChangePct float64 `json:"price_change_pct"`
	PositionID     string  `json:"position_id"`

	// Approximate is set when the position carries base debt. The estimate
	// holds debt fixed, so it can disagree with the swept curve.
	Approximate bool `json:"approximate"`
}

// FirstLiquidation solves, per currently safe position, the linear
// estimate pct = (threshold*debt - collateral) / (base - baseDebt) * 100
// and returns the solution closest to zero among price drops (-100, 0).
// Positions with near-zero net base exposure are skipped. Returns nil when
// no position has a solution.
func FirstLiquidation(positions []state.Position) *FirstLiquidationPoint {
	var best *FirstLiquidationPoint

	for _, p := range positions {
		if state.CurrentValuation(p).Liquidatable {
			continue
		}

		exposure := p.NetBaseExposure()
		if stdmath.Abs(exposure) <= ExposureEpsilon {
			continue
		}

		target := p.LiquidationThreshold * p.TotalDebt()
		pct := (target - p.Collateral()) / exposure * 100

		if !(pct < 0 && pct > -100) {
			continue
		}
		if best == nil || pct > best.PriceChangePct {
			best = &FirstLiquidationPoint{
				PriceChangePct: pct,
				PositionID:     p.PositionID,
				Approximate:    p.BaseDebtUSD != 0,
			}
		}
	}

	return best
}

// Cliff is a shock level where debt-at-risk jumps disproportionately.
type Cliff struct {
	PriceChangePct float64        `json:"price_change_pct"`
	DebtBeforeUSD  float64        `json:"debt_before_usd"`
	DebtAfterUSD   float64        `json:"debt_after_usd"`
	Multiplier     riskmath.Ratio `json:"multiplier"` // unbounded for a jump from zero
}

// DetectCliff walks the curve outward from the 0% baseline on both sides,
// toward the most severe drop and toward the largest rise, and returns the
// largest multiplicative jump in debt-at-risk between neighbouring points
// that is at least 2x and lands above 100 USD. Debt already at risk at 0%
// is part of the baseline, never a jump. Ties keep the first jump found,
// downside before upside and nearer to zero first. Returns nil when
// nothing qualifies.
func DetectCliff(baseline SimulationPoint, curve []SimulationPoint) *Cliff {
	var downside, upside []SimulationPoint
	for _, pt := range curve {
		switch {
		case pt.PriceChangePct < baseline.PriceChangePct:
			downside = append(downside, pt)
		case pt.PriceChangePct > baseline.PriceChangePct:
			upside = append(upside, pt)
		}
	}
	// Curve is ascending; walk the downside from the baseline outward.
	for i, j := 0, len(downside)-1; i < j; i, j = i+1, j-1 {
		downside[i], downside[j] = downside[j], downside[i]
	}

	best := scanCliff(baseline, downside, nil)
	return scanCliff(baseline, upside, best)
}

func scanCliff(baseline SimulationPoint, side []SimulationPoint, best *Cliff) *Cliff {
	prev := baseline
	for _, curr := range side {
		if curr.DebtAtRiskUSD > MinCliffDebtUSD {
			mult := riskmath.Divide(curr.DebtAtRiskUSD, prev.DebtAtRiskUSD)
			if mult.AtLeast(MinCliffMultiplier) && (best == nil || mult.Greater(best.Multiplier)) {
				best = &Cliff{
					PriceChangePct: curr.PriceChangePct,
					DebtBeforeUSD:  prev.DebtAtRiskUSD,
					DebtAfterUSD:   curr.DebtAtRiskUSD,
					Multiplier:     mult,
				}
			}
		}
		prev = curr
	}
	return best
}
