package event

import (
	"fmt"
	"time"

	"PoolRisk/internal/state"
)

// PositionSnapshot is the full set of open positions of one pool as
// fetched upstream. Each snapshot replaces the previous one.
type PositionSnapshot struct {
	Pool      string
	Positions []state.Position
	Sequence  int64
	FetchedAt time.Time
}

func (s *PositionSnapshot) IdempotencyKey() string {
	return fmt.Sprintf("positions:%s:%d", s.Pool, s.Sequence)
}

func (s *PositionSnapshot) EventType() EventType {
	return EventTypePositionSnapshot
}

func (s *PositionSnapshot) PoolID() string {
	return s.Pool
}

func (s *PositionSnapshot) SourceSequence() int64 {
	return s.Sequence
}

func (s *PositionSnapshot) AsOf() time.Time {
	return s.FetchedAt
}
