package math_test

import (
	"testing"

	riskmath "PoolRisk/internal/math"
)

func TestOraclePrice_Decimals(t *testing.T) {
	// 2.34567890 with expo -8, reported either way
	for _, decimals := range []int32{-8, 8} {
		p := riskmath.NewOraclePrice(234_567_890, decimals)
		if got := p.Display(4); got != "2.3457" {
			t.Errorf("decimals=%d: got %s, want 2.3457", decimals, got)
		}
	}
}

func TestOraclePrice_Shocked(t *testing.T) {
	p := riskmath.NewOraclePrice(200_000_000, -8) // 2.00

	got := p.Shocked(-35).StringFixed(2)
	if got != "1.30" {
		t.Errorf("got %s, want 1.30", got)
	}
}

func TestOraclePrice_Zero(t *testing.T) {
	var p riskmath.OraclePrice
	if !p.IsZero() {
		t.Error("zero value should report IsZero")
	}
	if p.Float64() != 0 {
		t.Errorf("got %v, want 0", p.Float64())
	}
}
