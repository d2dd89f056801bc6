package state

import (
	riskmath "PoolRisk/internal/math"
)

// Position is one open margin position as normalized by the fetch layer.
// All USD amounts are already priced; the oracle fields are only used to
// render price levels.
type Position struct {
	PositionID string `json:"position_id"`
	Owner      string `json:"owner,omitempty"`

	BaseAssetUSD  float64 `json:"base_asset_usd"`
	QuoteAssetUSD float64 `json:"quote_asset_usd"`
	BaseDebtUSD   float64 `json:"base_debt_usd"`
	QuoteDebtUSD  float64 `json:"quote_debt_usd"`
	TotalDebtUSD  float64 `json:"total_debt_usd"`

	LiquidationThreshold float64 `json:"liquidation_threshold"`
	IsLiquidatable       bool    `json:"is_liquidatable"`

	BasePythPrice    int64 `json:"base_pyth_price"`
	BasePythDecimals int32 `json:"base_pyth_decimals"`
}

// NewPosition builds a position from its legs, deriving TotalDebtUSD and
// IsLiquidatable.
func NewPosition(
	id string,
	baseAsset, quoteAsset, baseDebt, quoteDebt float64,
	threshold float64,
) Position {
	p := Position{
		PositionID:           id,
		BaseAssetUSD:         baseAsset,
		QuoteAssetUSD:        quoteAsset,
		BaseDebtUSD:          baseDebt,
		QuoteDebtUSD:         quoteDebt,
		LiquidationThreshold: threshold,
	}
	p.TotalDebtUSD = p.TotalDebt()
	p.IsLiquidatable = CurrentValuation(p).Liquidatable
	return p
}

// TotalDebt returns the supplied total debt, or the sum of the legs when
// the upstream record left it empty.
func (p Position) TotalDebt() float64 {
	if p.TotalDebtUSD != 0 {
		return p.TotalDebtUSD
	}
	return p.BaseDebtUSD + p.QuoteDebtUSD
}

// FixedDebt is the debt that does not move with the base price: the
// total debt less the base leg.
func (p Position) FixedDebt() float64 {
	return p.TotalDebt() - p.BaseDebtUSD
}

// Collateral returns the unshocked collateral value.
func (p Position) Collateral() float64 {
	return p.BaseAssetUSD + p.QuoteAssetUSD
}

// NetBaseExposure is base collateral minus base debt: the sensitivity of
// equity to the base price.
func (p Position) NetBaseExposure() float64 {
	return p.BaseAssetUSD - p.BaseDebtUSD
}

// OraclePrice returns the raw base-asset oracle price.
func (p Position) OraclePrice() riskmath.OraclePrice {
	return riskmath.NewOraclePrice(p.BasePythPrice, p.BasePythDecimals)
}
