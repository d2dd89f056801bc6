package core

import (
	"fmt"

	"PoolRisk/internal/state"
)

// DefaultHorizonDays is used when a request leaves HorizonDays unset.
const DefaultHorizonDays = 30

// Request is the complete input to one pool evaluation.
type Request struct {
	PoolID    string
	Positions []state.Position

	Grid    ShockGrid          // zero value selects DefaultShockGrid
	Buckets []state.BucketSpec // nil selects DefaultBuckets

	// Rates is nil when the pool's rate curve is not known yet; the
	// earnings section is then omitted.
	Rates *state.InterestRateConfig
	Pool  state.PoolState

	SelectedShockPct float64
	DepositUSD       float64
	HorizonDays      int
}

// Report is the evaluated risk view of a pool. Reports returned by the
// engine may be shared between callers and must not be modified.
type Report struct {
	PoolID         string  `json:"pool_id"`
	TotalPositions int     `json:"total_positions"`
	TotalDebtUSD   float64 `json:"total_debt_usd"`

	Current  SimulationPoint   `json:"current"`
	Selected SimulationPoint   `json:"selected"`
	Curve    []SimulationPoint `json:"curve"`

	FirstLiquidation *FirstLiquidationPoint `json:"first_liquidation"`
	Cliff            *Cliff                 `json:"cliff"`

	Histogram Histogram `json:"histogram"`

	Earnings *EarningsProjection  `json:"earnings,omitempty"`
	Horizons []EarningsProjection `json:"horizons,omitempty"`
}

// Engine evaluates requests and memoizes reports by request content.
type Engine struct {
	cache *ReportCache
}

func NewEngine(cacheSize int, observer CacheObserver) (*Engine, error) {
	cache, err := NewReportCache(cacheSize, observer)
	if err != nil {
		return nil, err
	}
	return &Engine{cache: cache}, nil
}

// Evaluate validates req and returns its report. Only configuration errors
// are returned; position data is never rejected.
func (e *Engine) Evaluate(req Request) (*Report, error) {
	req = req.withDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	key := NewRequestHasher().Sum(req)
	if r, ok := e.cache.Get(key); ok {
		return r, nil
	}

	r, err := evaluate(req)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, r)
	return r, nil
}

func (e *Engine) CacheStats() CacheStats {
	return e.cache.Stats()
}

func (req Request) withDefaults() Request {
	if req.Grid == (ShockGrid{}) {
		req.Grid = DefaultShockGrid
	}
	if req.Buckets == nil {
		req.Buckets = state.DefaultBuckets
	}
	if req.HorizonDays == 0 {
		req.HorizonDays = DefaultHorizonDays
	}
	return req
}

// Validate checks the configuration parts of the request.
func (req Request) Validate() error {
	if err := req.Grid.Validate(); err != nil {
		return err
	}
	if err := state.ValidateBuckets(req.Buckets); err != nil {
		return err
	}
	if req.Rates != nil {
		if err := state.ValidateRateConfig(*req.Rates); err != nil {
			return err
		}
	}
	return ValidateHorizon(req.HorizonDays)
}

func evaluate(req Request) (*Report, error) {
	r := &Report{
		PoolID:         req.PoolID,
		TotalPositions: len(req.Positions),
	}
	for _, p := range req.Positions {
		r.TotalDebtUSD += p.TotalDebt()
	}

	r.Current = Simulate(req.Positions, 0)
	r.Selected = Simulate(req.Positions, req.SelectedShockPct)
	r.Curve = StressCurve(req.Positions, req.Grid)
	r.FirstLiquidation = FirstLiquidation(req.Positions)
	r.Cliff = DetectCliff(r.Current, r.Curve)
	r.Histogram = AggregateBuckets(req.Positions, req.Buckets)

	if req.Rates != nil {
		ep, err := ProjectEarnings(*req.Rates, req.Pool, req.DepositUSD, req.HorizonDays)
		if err != nil {
			return nil, fmt.Errorf("project earnings: %w", err)
		}
		r.Earnings = &ep

		horizons, err := ProjectStandardHorizons(*req.Rates, req.Pool, req.DepositUSD)
		if err != nil {
			return nil, fmt.Errorf("project horizons: %w", err)
		}
		r.Horizons = horizons
	}

	return r, nil
}

// EvalOptions are the caller-selected view parameters of an evaluation.
type EvalOptions struct {
	Grid             ShockGrid          `json:"grid"`
	Buckets          []state.BucketSpec `json:"buckets,omitempty"`
	SelectedShockPct float64            `json:"selected_shock_pct"`
	DepositUSD       float64            `json:"deposit_usd"`
	HorizonDays      int                `json:"horizon_days"`
}

// RequestFromSnapshot combines a pool's latest inputs with view options.
func RequestFromSnapshot(snap state.PoolSnapshot, opts EvalOptions) Request {
	return Request{
		PoolID:           snap.PoolID,
		Positions:        snap.Positions,
		Grid:             opts.Grid,
		Buckets:          opts.Buckets,
		Rates:            snap.Rates,
		Pool:             snap.Pool,
		SelectedShockPct: opts.SelectedShockPct,
		DepositUSD:       opts.DepositUSD,
		HorizonDays:      opts.HorizonDays,
	}
}
