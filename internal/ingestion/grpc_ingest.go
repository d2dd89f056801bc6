package ingestion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"PoolRisk/internal/event"
	"PoolRisk/internal/state"
)

// ErrInvalidSnapshot marks a directly submitted snapshot that failed
// validation.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// DirectIngestService injects snapshots without NATS, for the gRPC/HTTP
// admin surface and local tooling. Events join the processor's loop.
type DirectIngestService struct {
	eventChan chan<- event.Event
}

func NewDirectIngestService(eventChan chan<- event.Event) *DirectIngestService {
	return &DirectIngestService{eventChan: eventChan}
}

// InjectPositions queues a position snapshot. A zero sequence is replaced
// by the current time in microseconds.
func (s *DirectIngestService) InjectPositions(
	ctx context.Context,
	poolID string,
	positions []state.Position,
	sequence int64,
) (*event.PositionSnapshot, error) {
	if poolID == "" {
		return nil, fmt.Errorf("%w: pool_id is required", ErrInvalidSnapshot)
	}
	for i := range positions {
		if err := state.ValidatePosition(positions[i]); err != nil {
			return nil, fmt.Errorf("%w: position %d: %v", ErrInvalidSnapshot, i, err)
		}
	}

	now := time.Now()
	if sequence == 0 {
		sequence = now.UnixMicro()
	}

	evt := &event.PositionSnapshot{
		Pool:      poolID,
		Positions: positions,
		Sequence:  sequence,
		FetchedAt: now,
	}
	return evt, s.send(ctx, evt)
}

// InjectPool queues a pool update. rates may be nil to keep the last
// known curve.
func (s *DirectIngestService) InjectPool(
	ctx context.Context,
	poolID string,
	rates *state.InterestRateConfig,
	pool state.PoolState,
	sequence int64,
) (*event.PoolUpdate, error) {
	if poolID == "" {
		return nil, fmt.Errorf("%w: pool_id is required", ErrInvalidSnapshot)
	}
	if rates != nil {
		if err := state.ValidateRateConfig(*rates); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSnapshot, err)
		}
	}
	if pool.TotalSupply < 0 || pool.TotalBorrow < 0 {
		return nil, fmt.Errorf("%w: total_supply and total_borrow must be >= 0", ErrInvalidSnapshot)
	}

	now := time.Now()
	if sequence == 0 {
		sequence = now.UnixMicro()
	}

	evt := &event.PoolUpdate{
		Pool:      poolID,
		Rates:     rates,
		State:     pool,
		Sequence:  sequence,
		FetchedAt: now,
	}
	return evt, s.send(ctx, evt)
}

func (s *DirectIngestService) send(ctx context.Context, evt event.Event) error {
	select {
	case s.eventChan <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
