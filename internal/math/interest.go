package math

import (
	stdmath "math"
)

const (
	DaysPerYear = 365

	// SimpleInterestMaxDays is the longest horizon projected with simple
	// interest; longer horizons compound daily.
	SimpleInterestMaxDays = 30

	// PessimisticUtilizationFactor and MinPessimisticUtilization bound the
	// pessimistic scenario: utilization halves, floored at 1%.
	PessimisticUtilizationFactor = 0.5
	MinPessimisticUtilization    = 0.01

	// PessimisticAPYCap caps the pessimistic bound at 80% of current APY.
	PessimisticAPYCap = 0.8
)

// RateCurve is a utilization-based interest curve. Rates are annual
// fractions (0.05 = 5%), utilization and spread are fractions in [0, 1].
type RateCurve struct {
	OptimalUtilization float64
	BaseRate           float64
	BaseSlope          float64
	ExcessSlope        float64 // slope above OptimalUtilization; 0 keeps the curve linear
	ProtocolSpread     float64
}

// BorrowRate returns the annual borrow rate (fraction) at utilization u.
func (c RateCurve) BorrowRate(u float64) float64 {
	if c.ExcessSlope == 0 || u <= c.OptimalUtilization {
		return c.BaseRate + c.BaseSlope*u
	}
	kink := c.BaseRate + c.BaseSlope*c.OptimalUtilization
	return kink + c.ExcessSlope*(u-c.OptimalUtilization)
}

// SupplyAPY returns the supplier APY in percent at utilization u:
// borrow * u * (1 - spread) * 100.
func (c RateCurve) SupplyAPY(u float64) float64 {
	return c.BorrowRate(u) * u * (1 - c.ProtocolSpread) * 100
}

// APYRange holds pessimistic/current/optimistic supply APYs in percent.
type APYRange struct {
	Pessimistic float64 `json:"pessimistic"`
	Current     float64 `json:"current"`
	Optimistic  float64 `json:"optimistic"`
}

// ScenarioAPYs evaluates the curve at the current utilization, at the
// optimal utilization (optimistic) and at half the current utilization
// floored at 1% (pessimistic). No clamping is applied.
func (c RateCurve) ScenarioAPYs(currentUtilization float64) APYRange {
	pessimisticU := stdmath.Max(currentUtilization*PessimisticUtilizationFactor, MinPessimisticUtilization)
	return APYRange{
		Pessimistic: c.SupplyAPY(pessimisticU),
		Current:     c.SupplyAPY(currentUtilization),
		Optimistic:  c.SupplyAPY(c.OptimalUtilization),
	}
}

// ClampAPYRange applies the display guard rails on top of raw curve
// output: optimistic is never below current, pessimistic never above
// 80% of current.
func ClampAPYRange(r APYRange) APYRange {
	return APYRange{
		Pessimistic: stdmath.Min(r.Pessimistic, r.Current*PessimisticAPYCap),
		Current:     r.Current,
		Optimistic:  stdmath.Max(r.Optimistic, r.Current),
	}
}

// DailyRate converts an APY in percent to a daily fractional rate.
func DailyRate(apyPct float64) float64 {
	return apyPct / 100 / DaysPerYear
}

// ProjectEarnings returns the interest earned on amount over days at
// apyPct. Horizons up to 30 days use simple interest, longer ones compound
// daily.
func ProjectEarnings(amount, apyPct float64, days int) float64 {
	daily := DailyRate(apyPct)
	if days <= SimpleInterestMaxDays {
		return amount * daily * float64(days)
	}
	return amount*stdmath.Pow(1+daily, float64(days)) - amount
}
