package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"PoolRisk/internal/core"
	"PoolRisk/internal/observability"
	"PoolRisk/internal/state"
)

var ErrUnknownPool = errors.New("unknown pool")

// Reporter re-evaluates pools whose snapshots changed and queues the
// reports for publishing. Bursts of updates for one pool coalesce into a
// single evaluation.
type Reporter struct {
	engine  *core.Engine
	store   *state.SnapshotStore
	opts    core.EvalOptions
	out     chan<- ReportEnvelope
	metrics *observability.Metrics
	log     zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	signal  chan struct{}
}

// NewReporter creates a reporter. out may be nil to only refresh metrics.
func NewReporter(
	engine *core.Engine,
	store *state.SnapshotStore,
	opts core.EvalOptions,
	out chan<- ReportEnvelope,
	metrics *observability.Metrics,
	log zerolog.Logger,
) *Reporter {
	return &Reporter{
		engine:  engine,
		store:   store,
		opts:    opts,
		out:     out,
		metrics: metrics,
		log:     log,
		pending: make(map[string]struct{}),
		signal:  make(chan struct{}, 1),
	}
}

// MarkDirty schedules poolID for re-evaluation. Never blocks.
func (r *Reporter) MarkDirty(poolID string) {
	r.mu.Lock()
	r.pending[poolID] = struct{}{}
	r.mu.Unlock()

	select {
	case r.signal <- struct{}{}:
	default:
	}
}

// Run evaluates dirty pools until ctx is done.
func (r *Reporter) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.signal:
			for _, poolID := range r.drain() {
				r.report(poolID)
			}
		}
	}
}

func (r *Reporter) drain() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.pending))
	for id := range r.pending {
		ids = append(ids, id)
	}
	r.pending = make(map[string]struct{})
	sort.Strings(ids)
	return ids
}

func (r *Reporter) report(poolID string) {
	rep, snap, err := r.EvaluatePool(poolID)
	if err != nil {
		r.log.Error().Err(err).Str("pool", poolID).Msg("evaluate pool failed")
		return
	}

	r.log.Debug().
		Str("pool", poolID).
		Int("positions", rep.TotalPositions).
		Int("liquidatable", rep.Current.LiquidatableCount).
		Float64("debt_at_risk_usd", rep.Current.DebtAtRiskUSD).
		Msg("pool evaluated")

	if r.out == nil {
		return
	}
	select {
	case r.out <- NewReportEnvelope(rep, snap, time.Now()):
	default:
		r.metrics.PublishDrops.Inc()
		r.log.Warn().Str("pool", poolID).Msg("publish queue full, dropping report")
	}
}

// EvaluatePool evaluates the latest snapshot of poolID with the reporter's
// view options.
func (r *Reporter) EvaluatePool(poolID string) (*core.Report, state.PoolSnapshot, error) {
	snap, ok := r.store.Get(poolID)
	if !ok {
		return nil, state.PoolSnapshot{}, fmt.Errorf("%w: %s", ErrUnknownPool, poolID)
	}

	started := time.Now()
	rep, err := r.engine.Evaluate(core.RequestFromSnapshot(snap, r.opts))
	r.metrics.ObserveEvaluation("reporter", started, err)
	if err != nil {
		return nil, snap, fmt.Errorf("evaluate %s: %w", poolID, err)
	}
	r.metrics.ObserveReport(rep)
	return rep, snap, nil
}
