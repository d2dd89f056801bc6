package ingestion_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"PoolRisk/internal/event"
	"PoolRisk/internal/ingestion"
	"PoolRisk/internal/observability"
	"PoolRisk/internal/state"
	"PoolRisk/internal/testutil"
)

func newProcessor(t *testing.T) (*ingestion.Processor, *state.SnapshotStore, *observability.Metrics, *[]string) {
	t.Helper()
	store := state.NewSnapshotStore()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	var updated []string
	p := ingestion.NewProcessor(store, ingestion.DefaultSubjects(), metrics, zerolog.Nop(), func(pool string) {
		updated = append(updated, pool)
	})
	return p, store, metrics, &updated
}

func snapshotRaw(t *testing.T, pool string, seq int64, acked *int) ingestion.RawEvent {
	t.Helper()
	raw := rawFromJSON(t, "poolrisk.positions."+pool, map[string]interface{}{
		"pool_id":   pool,
		"sequence":  seq,
		"positions": []interface{}{positionPayload(fmt.Sprintf("p-%d", seq))},
	})
	raw.AckFunc = func() { *acked++ }
	return raw
}

func TestProcessor_HandleRawAppliesAndAcks(t *testing.T) {
	p, store, metrics, updated := newProcessor(t)
	acked := 0

	p.HandleRaw(snapshotRaw(t, "sui-usdc", 1, &acked))

	snap, ok := store.Get("sui-usdc")
	if !ok || len(snap.Positions) != 1 || snap.PositionSequence != 1 {
		t.Fatalf("store not updated: %+v", snap)
	}
	if acked != 1 {
		t.Errorf("acks: got %d, want 1", acked)
	}
	if len(*updated) != 1 || (*updated)[0] != "sui-usdc" {
		t.Errorf("onUpdate: got %v", *updated)
	}
	if got := promtest.ToFloat64(metrics.IngestMessages.WithLabelValues("PositionSnapshot", "applied")); got != 1 {
		t.Errorf("applied metric: got %v, want 1", got)
	}
}

func TestProcessor_StaleDropped(t *testing.T) {
	p, store, metrics, updated := newProcessor(t)
	acked := 0

	p.HandleRaw(snapshotRaw(t, "a", 5, &acked))
	p.HandleRaw(snapshotRaw(t, "a", 4, &acked))

	snap, _ := store.Get("a")
	if snap.PositionSequence != 5 || snap.Positions[0].PositionID != "p-5" {
		t.Errorf("stale snapshot overwrote store: %+v", snap)
	}
	if acked != 2 {
		t.Errorf("stale messages are still acked: got %d acks", acked)
	}
	if len(*updated) != 1 {
		t.Errorf("onUpdate should fire once, got %v", *updated)
	}
	if got := promtest.ToFloat64(metrics.IngestStale.WithLabelValues("PositionSnapshot")); got != 1 {
		t.Errorf("stale metric: got %v, want 1", got)
	}
}

func TestProcessor_InvalidAndUnroutableAcked(t *testing.T) {
	p, store, _, updated := newProcessor(t)
	acked := 0

	bad := rawFromJSON(t, "poolrisk.positions.a", map[string]interface{}{"pool_id": "a"})
	bad.AckFunc = func() { acked++ }
	p.HandleRaw(bad)

	stray := rawFromJSON(t, "elsewhere.a", map[string]interface{}{})
	stray.AckFunc = func() { acked++ }
	p.HandleRaw(stray)

	if acked != 2 {
		t.Errorf("acks: got %d, want 2", acked)
	}
	if len(store.PoolIDs()) != 0 || len(*updated) != 0 {
		t.Error("invalid messages must not touch the store")
	}
}

func TestProcessor_RunDirectEvents(t *testing.T) {
	p, store, _, _ := newProcessor(t)

	direct := make(chan event.Event, 2)
	svc := ingestion.NewDirectIngestService(direct)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rates := testutil.DefaultRates()
	if _, err := svc.InjectPositions(ctx, "p", testutil.SafePositions(3, 150, 100), 1); err != nil {
		t.Fatalf("inject positions: %v", err)
	}
	if _, err := svc.InjectPool(ctx, "p", &rates, state.PoolState{TotalSupply: 100, TotalBorrow: 50}, 1); err != nil {
		t.Fatalf("inject pool: %v", err)
	}
	close(direct)

	if err := p.Run(ctx, nil, direct); err != nil {
		t.Fatalf("run: %v", err)
	}

	snap, ok := store.Get("p")
	if !ok || len(snap.Positions) != 3 || snap.Rates == nil || snap.Pool.TotalBorrow != 50 {
		t.Errorf("store: got %+v", snap)
	}
}

func TestDirectIngestService_Validates(t *testing.T) {
	svc := ingestion.NewDirectIngestService(make(chan event.Event, 1))
	ctx := context.Background()

	if _, err := svc.InjectPositions(ctx, "", nil, 1); err == nil {
		t.Error("expected error for empty pool id")
	}
	bad := []state.Position{{PositionID: "x"}}
	if _, err := svc.InjectPositions(ctx, "p", bad, 1); err == nil {
		t.Error("expected error for zero threshold")
	}

	rates := testutil.DefaultRates()
	rates.ProtocolSpread = 2
	if _, err := svc.InjectPool(ctx, "p", &rates, state.PoolState{}, 1); err == nil {
		t.Error("expected error for invalid rates")
	}

	evt, err := svc.InjectPool(ctx, "p", nil, state.PoolState{TotalSupply: 1}, 0)
	if err != nil {
		t.Fatalf("inject: %v", err)
	}
	if evt.Sequence <= 0 {
		t.Errorf("zero sequence should be assigned, got %d", evt.Sequence)
	}
}
