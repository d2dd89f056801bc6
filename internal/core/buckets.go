package core

import (
	"PoolRisk/internal/state"
)

// Bucket is one band of the risk histogram.
type Bucket struct {
	Label        string  `json:"label"`
	Color        string  `json:"color"`
	Count        int     `json:"count"`
	TotalDebtUSD float64 `json:"total_debt_usd"`
}

// Histogram is the bucketed distribution of current health factors,
// ordered as the bucket specs.
type Histogram []Bucket

// SeriesMode selects what the histogram chart plots per band.
type SeriesMode string

const (
	SeriesCount SeriesMode = "count"
	SeriesDebt  SeriesMode = "debt"
)

// AggregateBuckets places every position in the first band whose upper
// bound is at or above its health factor. Bounds are compared against the
// ratio scaled by the position's threshold, so a bound of 1.0 agrees with
// the simulator's liquidatable test. Unbounded and NaN health factors
// compare true against no finite bound and land in the last band. specs
// must already be validated.
func AggregateBuckets(positions []state.Position, specs []state.BucketSpec) Histogram {
	h := make(Histogram, len(specs))
	for i, s := range specs {
		h[i] = Bucket{Label: s.Label, Color: s.Color}
	}
	if len(specs) == 0 {
		return h
	}

	last := len(specs) - 1
	for _, p := range positions {
		idx := last
		for i := 0; i < last; i++ {
			if state.AtOrBelowHealthFactor(p, specs[i].UpperHealthFactor) {
				idx = i
				break
			}
		}

		h[idx].Count++
		h[idx].TotalDebtUSD += p.TotalDebt()
	}

	return h
}

// Series returns one value per band for the given display mode. Unknown
// modes fall back to counts.
func (h Histogram) Series(mode SeriesMode) []float64 {
	out := make([]float64, len(h))
	for i, b := range h {
		if mode == SeriesDebt {
			out[i] = b.TotalDebtUSD
		} else {
			out[i] = float64(b.Count)
		}
	}
	return out
}

// TotalCount is the number of positions across all bands.
func (h Histogram) TotalCount() int {
	n := 0
	for _, b := range h {
		n += b.Count
	}
	return n
}
