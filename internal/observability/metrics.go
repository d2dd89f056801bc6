package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"PoolRisk/internal/core"
)

// Metrics holds the Prometheus metrics of the risk service.
type Metrics struct {
	// --- Evaluation ---
	Evaluations        *prometheus.CounterVec
	EvaluationDuration *prometheus.HistogramVec
	CacheHits          prometheus.Counter
	CacheMisses        prometheus.Counter

	// --- Pool risk ---
	PoolPositions        *prometheus.GaugeVec
	PoolLiquidatable     *prometheus.GaugeVec
	PoolDebtAtRisk       *prometheus.GaugeVec
	PoolFirstLiquidation *prometheus.GaugeVec
	PoolCliffs           *prometheus.CounterVec

	// --- Ingestion & publishing ---
	IngestMessages   *prometheus.CounterVec
	IngestStale      *prometheus.CounterVec
	ReportsPublished *prometheus.CounterVec
	PublishDrops     prometheus.Counter

	// --- Channels ---
	ChannelSize        *prometheus.GaugeVec
	ChannelCapacity    *prometheus.GaugeVec
	ChannelUtilization *prometheus.GaugeVec

	// --- Query API ---
	QueryRequests *prometheus.CounterVec
	QueryDuration *prometheus.HistogramVec
	QueryErrors   *prometheus.CounterVec
}

// NewMetrics registers all metrics with reg. Pass
// prometheus.DefaultRegisterer in the service and a fresh registry in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	evalBuckets := []float64{
		0.00001, 0.000025, 0.00005, 0.0001, 0.00025,
		0.0005, 0.001, 0.0025, 0.005, 0.01, 0.05,
	}

	return &Metrics{
		Evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "poolrisk_evaluations_total",
			Help: "Pool evaluations by source and result",
		}, []string{"source", "result"}),

		EvaluationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "poolrisk_evaluation_duration_seconds",
			Help:    "Time to evaluate a pool report, including memo lookups",
			Buckets: evalBuckets,
		}, []string{"source"}),

		CacheHits: f.NewCounter(prometheus.CounterOpts{
			Name: "poolrisk_report_cache_hits_total",
			Help: "Evaluations served from the report memo",
		}),

		CacheMisses: f.NewCounter(prometheus.CounterOpts{
			Name: "poolrisk_report_cache_misses_total",
			Help: "Evaluations computed from scratch",
		}),

		PoolPositions: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolrisk_pool_positions",
			Help: "Open positions in the latest snapshot",
		}, []string{"pool"}),

		PoolLiquidatable: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolrisk_pool_liquidatable_positions",
			Help: "Positions liquidatable at the current price",
		}, []string{"pool"}),

		PoolDebtAtRisk: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolrisk_pool_debt_at_risk_usd",
			Help: "Debt of positions liquidatable at the current price",
		}, []string{"pool"}),

		PoolFirstLiquidation: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolrisk_pool_first_liquidation_pct",
			Help: "Smallest price drop (negative pct) that liquidates a safe position",
		}, []string{"pool"}),

		PoolCliffs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "poolrisk_pool_cliffs_detected_total",
			Help: "Evaluations that reported a debt-at-risk cliff",
		}, []string{"pool"}),

		IngestMessages: f.NewCounterVec(prometheus.CounterOpts{
			Name: "poolrisk_ingest_messages_total",
			Help: "Ingested NATS messages by kind and result",
		}, []string{"kind", "result"}),

		IngestStale: f.NewCounterVec(prometheus.CounterOpts{
			Name: "poolrisk_ingest_stale_total",
			Help: "Snapshots dropped for a sequence at or below the last seen",
		}, []string{"kind"}),

		ReportsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "poolrisk_reports_published_total",
			Help: "Reports published to NATS by result",
		}, []string{"result"}),

		PublishDrops: f.NewCounter(prometheus.CounterOpts{
			Name: "poolrisk_publish_drops_total",
			Help: "Reports dropped because the publish queue was full",
		}),

		ChannelSize: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolrisk_channel_size",
			Help: "Current channel buffer occupancy",
		}, []string{"channel"}),

		ChannelCapacity: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolrisk_channel_capacity",
			Help: "Channel buffer capacity",
		}, []string{"channel"}),

		ChannelUtilization: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "poolrisk_channel_utilization",
			Help: "Channel occupancy / capacity",
		}, []string{"channel"}),

		QueryRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "poolrisk_query_requests_total",
			Help: "Query API requests",
		}, []string{"endpoint"}),

		QueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "poolrisk_query_duration_seconds",
			Help:    "Query latency",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}, []string{"endpoint"}),

		QueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "poolrisk_query_errors_total",
			Help: "Query errors",
		}, []string{"endpoint", "code"}),
	}
}

// CacheHit and CacheMiss let Metrics observe the engine's report memo.
func (m *Metrics) CacheHit()  { m.CacheHits.Inc() }
func (m *Metrics) CacheMiss() { m.CacheMisses.Inc() }

var _ core.CacheObserver = (*Metrics)(nil)

// ObserveEvaluation records one evaluation outcome.
func (m *Metrics) ObserveEvaluation(source string, started time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Evaluations.WithLabelValues(source, result).Inc()
	m.EvaluationDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
}

// ObserveReport updates the per-pool gauges from a report.
func (m *Metrics) ObserveReport(r *core.Report) {
	pool := r.PoolID
	m.PoolPositions.WithLabelValues(pool).Set(float64(r.TotalPositions))
	m.PoolLiquidatable.WithLabelValues(pool).Set(float64(r.Current.LiquidatableCount))
	m.PoolDebtAtRisk.WithLabelValues(pool).Set(r.Current.DebtAtRiskUSD)
	if r.FirstLiquidation != nil {
		m.PoolFirstLiquidation.WithLabelValues(pool).Set(r.FirstLiquidation.PriceChangePct)
	} else {
		m.PoolFirstLiquidation.DeleteLabelValues(pool)
	}
	if r.Cliff != nil {
		m.PoolCliffs.WithLabelValues(pool).Inc()
	}
}

// SetChannelMetrics updates channel utilization metrics.
func (m *Metrics) SetChannelMetrics(name string, size, capacity int) {
	m.ChannelSize.WithLabelValues(name).Set(float64(size))
	m.ChannelCapacity.WithLabelValues(name).Set(float64(capacity))
	if capacity > 0 {
		m.ChannelUtilization.WithLabelValues(name).Set(float64(size) / float64(capacity))
	}
}
