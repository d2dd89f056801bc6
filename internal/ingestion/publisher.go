package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"PoolRisk/internal/core"
	"PoolRisk/internal/observability"
	"PoolRisk/internal/state"
)

const (
	ReportsStream        = "POOLRISK_REPORTS"
	reportsSubjectPrefix = "poolrisk.reports"
)

// ReportSubject is the subject evaluated reports of a pool are published on.
func ReportSubject(poolID string) string {
	return reportsSubjectPrefix + "." + poolID
}

// ReportEnvelope is the outbound message for one evaluated report.
type ReportEnvelope struct {
	ReportID         uuid.UUID    `json:"report_id"`
	PoolID           string       `json:"pool_id"`
	PositionSequence int64        `json:"position_sequence"`
	PoolSequence     int64        `json:"pool_sequence"`
	PositionsAsOf    time.Time    `json:"positions_as_of"`
	GeneratedAt      time.Time    `json:"generated_at"`
	Report           *core.Report `json:"report"`
}

// NewReportEnvelope stamps a report with a fresh id and the input
// sequences it was computed from.
func NewReportEnvelope(r *core.Report, snap state.PoolSnapshot, now time.Time) ReportEnvelope {
	return ReportEnvelope{
		ReportID:         uuid.New(),
		PoolID:           snap.PoolID,
		PositionSequence: snap.PositionSequence,
		PoolSequence:     snap.PoolSequence,
		PositionsAsOf:    snap.PositionsAsOf,
		GeneratedAt:      now.UTC(),
		Report:           r,
	}
}

// StreamPublisher is the JetStream publish surface the publisher needs.
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// ReportPublisher publishes evaluated reports to NATS for downstream
// dashboards. The report id doubles as the JetStream message id so
// redelivered publishes are deduplicated by the server.
type ReportPublisher struct {
	js        StreamPublisher
	inputChan <-chan ReportEnvelope
	metrics   *observability.Metrics
	log       zerolog.Logger
}

func NewReportPublisher(js StreamPublisher, inputChan <-chan ReportEnvelope, metrics *observability.Metrics, log zerolog.Logger) *ReportPublisher {
	return &ReportPublisher{
		js:        js,
		inputChan: inputChan,
		metrics:   metrics,
		log:       log,
	}
}

// Run publishes envelopes until ctx is done or the input closes.
func (rp *ReportPublisher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case env, ok := <-rp.inputChan:
			if !ok {
				return nil
			}

			if err := rp.Publish(ctx, env); err != nil {
				rp.metrics.ReportsPublished.WithLabelValues("error").Inc()
				// Non-fatal: the next snapshot produces a fresh report
				rp.log.Warn().Err(err).
					Str("pool", env.PoolID).
					Str("report_id", env.ReportID.String()).
					Msg("report publish failed")
				continue
			}
			rp.metrics.ReportsPublished.WithLabelValues("ok").Inc()
		}
	}
}

func (rp *ReportPublisher) Publish(ctx context.Context, env ReportEnvelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	_, err = rp.js.Publish(ctx, ReportSubject(env.PoolID), data, jetstream.WithMsgID(env.ReportID.String()))
	return err
}

// EnsureReportStream creates the outbound reports stream.
func EnsureReportStream(ctx context.Context, js jetstream.JetStream) error {
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       ReportsStream,
		Subjects:   []string{reportsSubjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     72 * time.Hour,
		Duplicates: 2 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("create report stream: %w", err)
	}
	return nil
}
