package ingestion

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"PoolRisk/internal/event"
	"PoolRisk/internal/state"
)

// ParseRawEvent converts a RawEvent into a typed event.Event. When the
// payload omits pool_id, the pool is taken from the last subject token.
func ParseRawEvent(raw RawEvent, eventType event.EventType) (event.Event, error) {
	switch eventType {
	case event.EventTypePositionSnapshot:
		return parsePositionSnapshot(raw)
	case event.EventTypePoolUpdate:
		return parsePoolUpdate(raw)
	default:
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
}

// --- JSON wire formats ---
// USD amounts and rate parameters arrive as decimal strings (numbers are
// accepted too) so upstream precision survives transport.

type positionJSON struct {
	PositionID           string              `json:"position_id"`
	Owner                string              `json:"owner"`
	BaseAssetUSD         decimal.Decimal     `json:"base_asset_usd"`
	QuoteAssetUSD        decimal.Decimal     `json:"quote_asset_usd"`
	BaseDebtUSD          decimal.Decimal     `json:"base_debt_usd"`
	QuoteDebtUSD         decimal.Decimal     `json:"quote_debt_usd"`
	TotalDebtUSD         decimal.NullDecimal `json:"total_debt_usd"`
	LiquidationThreshold decimal.Decimal     `json:"liquidation_threshold"`
	BasePythPrice        int64               `json:"base_pyth_price"`
	BasePythDecimals     int32               `json:"base_pyth_decimals"`
}

type positionSnapshotJSON struct {
	PoolID      string         `json:"pool_id"`
	Sequence    int64          `json:"sequence"`
	FetchedAtUs int64          `json:"fetched_at_us"`
	Positions   []positionJSON `json:"positions"`
}

func parsePositionSnapshot(raw RawEvent) (*event.PositionSnapshot, error) {
	var j positionSnapshotJSON
	if err := json.Unmarshal(raw.Data, &j); err != nil {
		return nil, fmt.Errorf("parse PositionSnapshot: %w", err)
	}

	pool, err := resolvePool(j.PoolID, raw.Subject)
	if err != nil {
		return nil, err
	}
	if j.Sequence <= 0 {
		return nil, fmt.Errorf("sequence must be > 0, got %d", j.Sequence)
	}

	seen := make(map[string]struct{}, len(j.Positions))
	positions := make([]state.Position, 0, len(j.Positions))
	for i, pj := range j.Positions {
		p := pj.toPosition()
		if err := state.ValidatePosition(p); err != nil {
			return nil, fmt.Errorf("position %d: %w", i, err)
		}
		if _, dup := seen[p.PositionID]; dup {
			return nil, fmt.Errorf("position %d: duplicate position_id %q", i, p.PositionID)
		}
		seen[p.PositionID] = struct{}{}
		positions = append(positions, p)
	}

	return &event.PositionSnapshot{
		Pool:      pool,
		Positions: positions,
		Sequence:  j.Sequence,
		FetchedAt: fetchedAt(j.FetchedAtUs, raw.Timestamp),
	}, nil
}

func (pj positionJSON) toPosition() state.Position {
	p := state.Position{
		PositionID:           pj.PositionID,
		Owner:                pj.Owner,
		BaseAssetUSD:         pj.BaseAssetUSD.InexactFloat64(),
		QuoteAssetUSD:        pj.QuoteAssetUSD.InexactFloat64(),
		BaseDebtUSD:          pj.BaseDebtUSD.InexactFloat64(),
		QuoteDebtUSD:         pj.QuoteDebtUSD.InexactFloat64(),
		LiquidationThreshold: pj.LiquidationThreshold.InexactFloat64(),
		BasePythPrice:        pj.BasePythPrice,
		BasePythDecimals:     pj.BasePythDecimals,
	}
	if pj.TotalDebtUSD.Valid {
		p.TotalDebtUSD = pj.TotalDebtUSD.Decimal.InexactFloat64()
	} else {
		// Sum legs exactly before converting.
		p.TotalDebtUSD = pj.BaseDebtUSD.Add(pj.QuoteDebtUSD).InexactFloat64()
	}
	p.IsLiquidatable = state.CurrentValuation(p).Liquidatable
	return p
}

type rateConfigJSON struct {
	OptimalUtilization decimal.Decimal `json:"optimal_utilization"`
	BaseRate           decimal.Decimal `json:"base_rate"`
	BaseSlope          decimal.Decimal `json:"base_slope"`
	ExcessSlope        decimal.Decimal `json:"excess_slope"`
	ProtocolSpread     decimal.Decimal `json:"protocol_spread"`
}

type poolUpdateJSON struct {
	PoolID             string          `json:"pool_id"`
	Sequence           int64           `json:"sequence"`
	FetchedAtUs        int64           `json:"fetched_at_us"`
	InterestRateConfig *rateConfigJSON `json:"interest_rate_config"`
	TotalSupply        decimal.Decimal `json:"total_supply"`
	TotalBorrow        decimal.Decimal `json:"total_borrow"`
}

func parsePoolUpdate(raw RawEvent) (*event.PoolUpdate, error) {
	var j poolUpdateJSON
	if err := json.Unmarshal(raw.Data, &j); err != nil {
		return nil, fmt.Errorf("parse PoolUpdate: %w", err)
	}

	pool, err := resolvePool(j.PoolID, raw.Subject)
	if err != nil {
		return nil, err
	}
	if j.Sequence <= 0 {
		return nil, fmt.Errorf("sequence must be > 0, got %d", j.Sequence)
	}
	if j.TotalSupply.IsNegative() || j.TotalBorrow.IsNegative() {
		return nil, fmt.Errorf("total_supply and total_borrow must be >= 0")
	}

	u := &event.PoolUpdate{
		Pool: pool,
		State: state.PoolState{
			TotalSupply: j.TotalSupply.InexactFloat64(),
			TotalBorrow: j.TotalBorrow.InexactFloat64(),
		},
		Sequence:  j.Sequence,
		FetchedAt: fetchedAt(j.FetchedAtUs, raw.Timestamp),
	}

	if rc := j.InterestRateConfig; rc != nil {
		rates := state.InterestRateConfig{
			OptimalUtilization: rc.OptimalUtilization.InexactFloat64(),
			BaseRate:           rc.BaseRate.InexactFloat64(),
			BaseSlope:          rc.BaseSlope.InexactFloat64(),
			ExcessSlope:        rc.ExcessSlope.InexactFloat64(),
			ProtocolSpread:     rc.ProtocolSpread.InexactFloat64(),
		}
		if err := state.ValidateRateConfig(rates); err != nil {
			return nil, err
		}
		u.Rates = &rates
	}

	return u, nil
}

func resolvePool(payloadPool, subject string) (string, error) {
	if payloadPool != "" {
		return payloadPool, nil
	}
	if i := strings.LastIndexByte(subject, '.'); i >= 0 && i < len(subject)-1 {
		return subject[i+1:], nil
	}
	return "", fmt.Errorf("pool_id is required (subject=%q)", subject)
}

func fetchedAt(us int64, received time.Time) time.Time {
	if us > 0 {
		return time.UnixMicro(us).UTC()
	}
	return received
}
