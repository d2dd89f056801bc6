package ingestion

import (
	"context"

	"github.com/rs/zerolog"

	"PoolRisk/internal/event"
	"PoolRisk/internal/observability"
	"PoolRisk/internal/state"
)

// Processor turns ingested messages into snapshot store updates. Raw NATS
// messages and directly injected events are applied from a single loop so
// the sequence guard needs no locking.
type Processor struct {
	store    *state.SnapshotStore
	guard    *SequenceGuard
	subjects []SubjectConfig
	metrics  *observability.Metrics
	log      zerolog.Logger
	onUpdate func(poolID string)
}

// NewProcessor creates a processor. onUpdate, if non-nil, is called with
// the pool id after every applied update.
func NewProcessor(
	store *state.SnapshotStore,
	subjects []SubjectConfig,
	metrics *observability.Metrics,
	log zerolog.Logger,
	onUpdate func(poolID string),
) *Processor {
	return &Processor{
		store:    store,
		guard:    NewSequenceGuard(),
		subjects: subjects,
		metrics:  metrics,
		log:      log,
		onUpdate: onUpdate,
	}
}

// Run applies messages until ctx is done or both inputs are closed.
// Either channel may be nil.
func (p *Processor) Run(ctx context.Context, raw <-chan RawEvent, direct <-chan event.Event) error {
	for raw != nil || direct != nil {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg, ok := <-raw:
			if !ok {
				raw = nil
				continue
			}
			p.HandleRaw(msg)

		case evt, ok := <-direct:
			if !ok {
				direct = nil
				continue
			}
			p.Apply(evt)
		}
	}
	return nil
}

// HandleRaw resolves, parses and applies one NATS message. Unroutable and
// unparseable messages are acked so they are not redelivered forever.
func (p *Processor) HandleRaw(raw RawEvent) {
	eventType := ResolveEventType(raw.Subject, p.subjects)
	if eventType == event.EventTypeUnknown {
		p.log.Warn().Str("subject", raw.Subject).Msg("unknown NATS subject")
		p.metrics.IngestMessages.WithLabelValues(eventType.String(), "unroutable").Inc()
		ack(raw)
		return
	}

	evt, err := ParseRawEvent(raw, eventType)
	if err != nil {
		p.log.Warn().Err(err).Str("subject", raw.Subject).Msg("parse event failed")
		p.metrics.IngestMessages.WithLabelValues(eventType.String(), "invalid").Inc()
		ack(raw)
		return
	}

	p.Apply(evt)
	ack(raw)
}

// Apply stores evt unless its sequence is stale. Returns whether the store
// changed.
func (p *Processor) Apply(evt event.Event) bool {
	kind := evt.EventType().String()
	partition := Partition(evt)

	switch p.guard.Check(partition, evt.SourceSequence()) {
	case SequenceStale:
		p.metrics.IngestStale.WithLabelValues(kind).Inc()
		p.log.Debug().
			Str("partition", partition).
			Int64("sequence", evt.SourceSequence()).
			Msg("dropping stale snapshot")
		return false
	case SequenceGap:
		p.log.Warn().
			Str("partition", partition).
			Int64("sequence", evt.SourceSequence()).
			Int64("gaps", p.guard.Gaps(partition)).
			Msg("sequence gap, applying latest snapshot")
	}

	var applied bool
	switch e := evt.(type) {
	case *event.PositionSnapshot:
		applied = p.store.UpdatePositions(e.Pool, e.Positions, e.Sequence, e.FetchedAt)
	case *event.PoolUpdate:
		applied = p.store.UpdatePool(e.Pool, e.Rates, e.State, e.Sequence, e.FetchedAt)
	default:
		p.log.Warn().Str("type", kind).Msg("unsupported event")
		p.metrics.IngestMessages.WithLabelValues(kind, "unsupported").Inc()
		return false
	}

	if !applied {
		p.metrics.IngestStale.WithLabelValues(kind).Inc()
		return false
	}

	p.metrics.IngestMessages.WithLabelValues(kind, "applied").Inc()
	if p.onUpdate != nil {
		p.onUpdate(evt.PoolID())
	}
	return true
}

func ack(raw RawEvent) {
	if raw.AckFunc != nil {
		raw.AckFunc()
	}
}
