package testutil

import (
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"PoolRisk/internal/state"
)

// TestNATSURL returns the NATS URL for integration tests.
func TestNATSURL() string {
	if url := os.Getenv("TEST_NATS_URL"); url != "" {
		return url
	}
	return "nats://localhost:4223"
}

// RequireIntegration skips the test if not running integration tests.
func RequireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("INTEGRATION_TEST") == "" {
		t.Skip("skipping integration test (set INTEGRATION_TEST=1 to run)")
	}
}

// ConnectNATS connects to the test NATS server, skipping the test when it
// is not reachable. The connection is closed on cleanup.
func ConnectNATS(t *testing.T) *nats.Conn {
	t.Helper()
	nc, err := nats.Connect(TestNATSURL(), nats.Timeout(2*time.Second))
	if err != nil {
		t.Skipf("test nats not available: %v", err)
	}
	t.Cleanup(nc.Close)
	return nc
}

// QuoteDebtPosition is long base collateral against quote debt: its risk
// ratio falls as the base price drops.
func QuoteDebtPosition(id string, baseUSD, debtUSD, threshold float64) state.Position {
	return state.NewPosition(id, baseUSD, 0, 0, debtUSD, threshold)
}

// BaseDebtPosition holds base collateral against base debt only: its risk
// ratio does not move with the base price.
func BaseDebtPosition(id string, baseUSD, debtUSD, threshold float64) state.Position {
	return state.NewPosition(id, baseUSD, 0, debtUSD, 0, threshold)
}

// SafePositions builds n identical healthy quote-debt positions.
func SafePositions(n int, baseUSD, debtUSD float64) []state.Position {
	out := make([]state.Position, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, QuoteDebtPosition(fmt.Sprintf("pos-%03d", i), baseUSD, debtUSD, 1.1))
	}
	return out
}

// WithOracle sets the base oracle price fields on p.
func WithOracle(p state.Position, mantissa int64, decimals int32) state.Position {
	p.BasePythPrice = mantissa
	p.BasePythDecimals = decimals
	return p
}

// DefaultRates is a typical stable-pool curve: 2% base, 10% slope, 10%
// spread, 80% optimal utilization.
func DefaultRates() state.InterestRateConfig {
	return state.InterestRateConfig{
		OptimalUtilization: 0.8,
		BaseRate:           0.02,
		BaseSlope:          0.10,
		ProtocolSpread:     0.10,
	}
}
