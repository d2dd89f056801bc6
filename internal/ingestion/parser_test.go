package ingestion_test

import (
	"encoding/json"
	"testing"
	"time"

	"PoolRisk/internal/event"
	"PoolRisk/internal/ingestion"
)

func rawFromJSON(t *testing.T, subject string, v interface{}) ingestion.RawEvent {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return ingestion.RawEvent{
		Subject:   subject,
		Data:      data,
		Timestamp: time.Now(),
		AckFunc:   func() {},
		NakFunc:   func() {},
	}
}

func positionPayload(id string) map[string]interface{} {
	return map[string]interface{}{
		"position_id":           id,
		"owner":                 "0xabc",
		"base_asset_usd":        "150.25",
		"quote_asset_usd":       "10",
		"base_debt_usd":         "0",
		"quote_debt_usd":        "100.10",
		"liquidation_threshold": "1.1",
		"base_pyth_price":       int64(123_456_789),
		"base_pyth_decimals":    int32(-8),
	}
}

func TestParsePositionSnapshot(t *testing.T) {
	payload := map[string]interface{}{
		"pool_id":       "sui-usdc",
		"sequence":      int64(42),
		"fetched_at_us": int64(1700000000000000),
		"positions":     []interface{}{positionPayload("p1")},
	}

	raw := rawFromJSON(t, "poolrisk.positions.sui-usdc", payload)
	evt, err := ingestion.ParseRawEvent(raw, event.EventTypePositionSnapshot)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ps, ok := evt.(*event.PositionSnapshot)
	if !ok {
		t.Fatalf("expected *event.PositionSnapshot, got %T", evt)
	}
	if ps.Pool != "sui-usdc" || ps.Sequence != 42 {
		t.Errorf("header: got pool=%s seq=%d", ps.Pool, ps.Sequence)
	}
	if !ps.FetchedAt.Equal(time.UnixMicro(1700000000000000)) {
		t.Errorf("fetched_at: got %v", ps.FetchedAt)
	}
	if len(ps.Positions) != 1 {
		t.Fatalf("positions: got %d, want 1", len(ps.Positions))
	}

	p := ps.Positions[0]
	if p.BaseAssetUSD != 150.25 || p.QuoteDebtUSD != 100.10 {
		t.Errorf("legs: got base=%v quoteDebt=%v", p.BaseAssetUSD, p.QuoteDebtUSD)
	}
	if p.TotalDebtUSD != 100.10 {
		t.Errorf("total debt should default to leg sum: got %v", p.TotalDebtUSD)
	}
	if p.IsLiquidatable {
		t.Error("160.25 / 100.10 is above 1.1")
	}
	if p.BasePythPrice != 123_456_789 || p.BasePythDecimals != -8 {
		t.Errorf("oracle: got %d / %d", p.BasePythPrice, p.BasePythDecimals)
	}
	if ps.EventType() != event.EventTypePositionSnapshot {
		t.Errorf("event type: got %v", ps.EventType())
	}
}

func TestParsePositionSnapshot_NumbersAndTotalDebt(t *testing.T) {
	pos := positionPayload("p1")
	pos["base_asset_usd"] = 120
	pos["total_debt_usd"] = "110"

	raw := rawFromJSON(t, "poolrisk.positions.x", map[string]interface{}{
		"sequence":  int64(1),
		"positions": []interface{}{pos},
	})
	evt, err := ingestion.ParseRawEvent(raw, event.EventTypePositionSnapshot)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	ps := evt.(*event.PositionSnapshot)
	if ps.Pool != "x" {
		t.Errorf("pool from subject: got %q, want x", ps.Pool)
	}
	p := ps.Positions[0]
	if p.BaseAssetUSD != 120 || p.TotalDebtUSD != 110 {
		t.Errorf("got base=%v total=%v", p.BaseAssetUSD, p.TotalDebtUSD)
	}
	if p.IsLiquidatable {
		t.Error("130 / 110 is above 1.1")
	}
}

func TestParsePositionSnapshot_Rejects(t *testing.T) {
	negative := positionPayload("p1")
	negative["base_debt_usd"] = "-1"

	noThreshold := positionPayload("p1")
	delete(noThreshold, "liquidation_threshold")

	garbage := positionPayload("p1")
	garbage["base_asset_usd"] = "lots"

	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"zero sequence", map[string]interface{}{"pool_id": "p", "positions": []interface{}{}}},
		{"negative leg", map[string]interface{}{"pool_id": "p", "sequence": 1, "positions": []interface{}{negative}}},
		{"missing threshold", map[string]interface{}{"pool_id": "p", "sequence": 1, "positions": []interface{}{noThreshold}}},
		{"bad decimal", map[string]interface{}{"pool_id": "p", "sequence": 1, "positions": []interface{}{garbage}}},
		{"duplicate id", map[string]interface{}{"pool_id": "p", "sequence": 1, "positions": []interface{}{
			positionPayload("dup"), positionPayload("dup"),
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawFromJSON(t, "poolrisk.positions.p", tt.payload)
			if _, err := ingestion.ParseRawEvent(raw, event.EventTypePositionSnapshot); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParsePoolUpdate(t *testing.T) {
	payload := map[string]interface{}{
		"pool_id":  "sui-usdc",
		"sequence": int64(7),
		"interest_rate_config": map[string]interface{}{
			"optimal_utilization": "0.8",
			"base_rate":           "0.02",
			"base_slope":          "0.1",
			"excess_slope":        "0.6",
			"protocol_spread":     "0.1",
		},
		"total_supply": "1000000",
		"total_borrow": "450000.5",
	}

	raw := rawFromJSON(t, "poolrisk.pools.sui-usdc", payload)
	evt, err := ingestion.ParseRawEvent(raw, event.EventTypePoolUpdate)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	pu, ok := evt.(*event.PoolUpdate)
	if !ok {
		t.Fatalf("expected *event.PoolUpdate, got %T", evt)
	}
	if pu.Rates == nil {
		t.Fatal("rates should be set")
	}
	if pu.Rates.OptimalUtilization != 0.8 || pu.Rates.ExcessSlope != 0.6 {
		t.Errorf("rates: got %+v", *pu.Rates)
	}
	if pu.State.TotalBorrow != 450000.5 {
		t.Errorf("borrow: got %v", pu.State.TotalBorrow)
	}
	if pu.IdempotencyKey() != "pool:sui-usdc:7" {
		t.Errorf("idempotency key: got %s", pu.IdempotencyKey())
	}
}

func TestParsePoolUpdate_TotalsOnly(t *testing.T) {
	raw := rawFromJSON(t, "poolrisk.pools.p", map[string]interface{}{
		"pool_id":      "p",
		"sequence":     int64(2),
		"total_supply": "10",
		"total_borrow": "5",
	})
	evt, err := ingestion.ParseRawEvent(raw, event.EventTypePoolUpdate)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if evt.(*event.PoolUpdate).Rates != nil {
		t.Error("missing rate config should stay nil")
	}
}

func TestParsePoolUpdate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]interface{}
	}{
		{"negative supply", map[string]interface{}{"pool_id": "p", "sequence": 1, "total_supply": "-1"}},
		{"bad optimal", map[string]interface{}{"pool_id": "p", "sequence": 1, "interest_rate_config": map[string]interface{}{
			"optimal_utilization": "1.5",
		}}},
		{"not json", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawFromJSON(t, "poolrisk.pools.p", tt.payload)
			if tt.payload == nil {
				raw.Data = []byte("{not json")
			}
			if _, err := ingestion.ParseRawEvent(raw, event.EventTypePoolUpdate); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestParseUnknownEventType(t *testing.T) {
	raw := rawFromJSON(t, "test", map[string]interface{}{})
	if _, err := ingestion.ParseRawEvent(raw, event.EventTypeUnknown); err == nil {
		t.Error("expected error for unknown event type")
	}
}

func TestResolveEventType(t *testing.T) {
	subjects := ingestion.DefaultSubjects()

	tests := []struct {
		subject string
		want    event.EventType
	}{
		{"poolrisk.positions.sui-usdc", event.EventTypePositionSnapshot},
		{"poolrisk.pools.sui-usdc", event.EventTypePoolUpdate},
		{"poolrisk.reports.sui-usdc", event.EventTypeUnknown},
		{"other", event.EventTypeUnknown},
	}
	for _, tt := range tests {
		if got := ingestion.ResolveEventType(tt.subject, subjects); got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.subject, got, tt.want)
		}
	}
}
