package math

import (
	"encoding/json"
	stdmath "math"
	"strconv"
)

// Ratio is a collateral/debt style ratio that is either a finite value
// or unbounded (zero denominator). Unbounded never compares at-or-below
// any threshold, so it can never be mistaken for a real computed ratio.
type Ratio struct {
	value   float64
	bounded bool
}

// Bounded returns a finite ratio. NaN is kept as-is and propagates.
func Bounded(v float64) Ratio {
	return Ratio{value: v, bounded: true}
}

// Unbounded returns the "no denominator" ratio.
func Unbounded() Ratio {
	return Ratio{}
}

// Divide returns num/den, or Unbounded when den <= 0.
// A NaN denominator is not <= 0, so NaN flows into the bounded value.
func Divide(num, den float64) Ratio {
	if den <= 0 {
		return Unbounded()
	}
	return Bounded(num / den)
}

// Value returns the finite value and whether the ratio is bounded.
func (r Ratio) Value() (float64, bool) {
	return r.value, r.bounded
}

func (r Ratio) IsUnbounded() bool {
	return !r.bounded
}

// AtOrBelow reports r <= threshold. Unbounded and NaN are never at or below.
func (r Ratio) AtOrBelow(threshold float64) bool {
	return r.bounded && r.value <= threshold
}

// AtLeast reports r >= min. Unbounded is at least anything.
func (r Ratio) AtLeast(min float64) bool {
	if !r.bounded {
		return true
	}
	return r.value >= min
}

// Greater orders ratios with Unbounded above every bounded value.
// Two unbounded ratios are equal.
func (r Ratio) Greater(o Ratio) bool {
	switch {
	case !r.bounded:
		return o.bounded
	case !o.bounded:
		return false
	default:
		return r.value > o.value
	}
}

// Scale divides a bounded ratio by s (health factor = ratio / threshold).
func (r Ratio) Scale(s float64) Ratio {
	if !r.bounded {
		return r
	}
	return Bounded(r.value / s)
}

func (r Ratio) String() string {
	if !r.bounded {
		return "unbounded"
	}
	return strconv.FormatFloat(r.value, 'f', -1, 64)
}

// MarshalJSON encodes bounded ratios as numbers and Unbounded as null.
// Non-finite values, which JSON numbers cannot carry, are quoted
// strings ("NaN", "+Inf", "-Inf").
func (r Ratio) MarshalJSON() ([]byte, error) {
	if !r.bounded {
		return []byte("null"), nil
	}
	if stdmath.IsNaN(r.value) || stdmath.IsInf(r.value, 0) {
		return []byte(strconv.Quote(strconv.FormatFloat(r.value, 'g', -1, 64))), nil
	}
	return json.Marshal(r.value)
}

func (r *Ratio) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*r = Unbounded()
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*r = Bounded(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*r = Bounded(v)
	return nil
}
