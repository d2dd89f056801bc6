package math

import (
	stdmath "math"

	"github.com/shopspring/decimal"
)

// OraclePrice is a raw Pyth-style price: mantissa * 10^Expo.
type OraclePrice struct {
	Mantissa int64
	Expo     int32
}

// NewOraclePrice builds a price from a mantissa and a decimals count.
// Feeds report decimals either as a negative exponent (-8) or as a
// positive digit count (8); both mean 10^-8.
func NewOraclePrice(mantissa int64, decimals int32) OraclePrice {
	if decimals > 0 {
		decimals = -decimals
	}
	return OraclePrice{Mantissa: mantissa, Expo: decimals}
}

// IsZero reports whether no price is available.
func (p OraclePrice) IsZero() bool {
	return p.Mantissa == 0
}

// Decimal returns the exact price.
func (p OraclePrice) Decimal() decimal.Decimal {
	return decimal.New(p.Mantissa, p.Expo)
}

// Float64 returns the price as a float for display math.
func (p OraclePrice) Float64() float64 {
	f, _ := p.Decimal().Float64()
	return f
}

// Shocked returns the price level after a pct move, e.g. -35 for a 35% drop.
// A non-finite pct yields zero.
func (p OraclePrice) Shocked(pct float64) decimal.Decimal {
	m := ShockMultiplier(pct)
	if stdmath.IsNaN(m) || stdmath.IsInf(m, 0) {
		return decimal.Zero
	}
	return p.Decimal().Mul(decimal.NewFromFloat(m))
}

// Display renders the price with the given number of decimal places.
func (p OraclePrice) Display(places int32) string {
	return p.Decimal().StringFixed(places)
}

// ShockMultiplier converts a percentage move into a price multiplier.
func ShockMultiplier(pct float64) float64 {
	return 1 + pct/100
}
