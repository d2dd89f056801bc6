package observability_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"PoolRisk/internal/core"
	"PoolRisk/internal/observability"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := observability.ParseLogLevel(tt.in); got != tt.want {
			t.Errorf("ParseLogLevel(%q): got %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerTo_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	log := observability.NewLoggerTo(&buf, "ingest", zerolog.InfoLevel)

	log.Debug().Msg("hidden")
	log.Info().Str("pool", "p1").Msg("hello")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected one JSON line, got %q: %v", buf.String(), err)
	}
	if line["component"] != "ingest" || line["pool"] != "p1" {
		t.Errorf("fields: got %v", line)
	}
}

func TestHealthChecker_Readiness(t *testing.T) {
	h := observability.NewHealthChecker("nats", "snapshots")

	rec := httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status: got %d, want 503", rec.Code)
	}

	h.SetReady("nats", true)
	if got := h.Pending(); len(got) != 1 || got[0] != "snapshots" {
		t.Errorf("pending: got %v", got)
	}

	h.SetReady("snapshots", true)
	rec = httptest.NewRecorder()
	h.ReadinessHandler(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status: got %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.LivenessHandler(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("liveness: got %d, want 200", rec.Code)
	}
}

func TestHealthChecker_NoComponentsNotReady(t *testing.T) {
	if observability.NewHealthChecker().IsReady() {
		t.Error("checker without components must not report ready")
	}
}

func TestMetrics_ObserveReport(t *testing.T) {
	m := observability.NewMetrics(prometheus.NewRegistry())

	r := &core.Report{
		PoolID:           "p1",
		TotalPositions:   3,
		Current:          core.SimulationPoint{LiquidatableCount: 1, DebtAtRiskUSD: 250},
		FirstLiquidation: &core.FirstLiquidationPoint{PriceChangePct: -12.5},
		Cliff:            &core.Cliff{},
	}
	m.ObserveReport(r)

	if got := testutil.ToFloat64(m.PoolDebtAtRisk.WithLabelValues("p1")); got != 250 {
		t.Errorf("debt at risk: got %v, want 250", got)
	}
	if got := testutil.ToFloat64(m.PoolFirstLiquidation.WithLabelValues("p1")); got != -12.5 {
		t.Errorf("first liquidation: got %v, want -12.5", got)
	}
	if got := testutil.ToFloat64(m.PoolCliffs.WithLabelValues("p1")); got != 1 {
		t.Errorf("cliffs: got %v, want 1", got)
	}

	m.CacheHit()
	m.CacheMiss()
	m.CacheMiss()
	if got := testutil.ToFloat64(m.CacheMisses); got != 2 {
		t.Errorf("cache misses: got %v, want 2", got)
	}

	m.ObserveEvaluation("grpc", time.Now(), nil)
	if got := testutil.ToFloat64(m.Evaluations.WithLabelValues("grpc", "ok")); got != 1 {
		t.Errorf("evaluations: got %v, want 1", got)
	}
}
