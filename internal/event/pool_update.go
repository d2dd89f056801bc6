package event

import (
	"fmt"
	"time"

	"PoolRisk/internal/state"
)

// PoolUpdate carries a pool's supply/borrow totals and, when it changed,
// its interest rate curve.
type PoolUpdate struct {
	Pool      string
	Rates     *state.InterestRateConfig // nil keeps the last known curve
	State     state.PoolState
	Sequence  int64
	FetchedAt time.Time
}

func (u *PoolUpdate) IdempotencyKey() string {
	return fmt.Sprintf("pool:%s:%d", u.Pool, u.Sequence)
}

func (u *PoolUpdate) EventType() EventType {
	return EventTypePoolUpdate
}

func (u *PoolUpdate) PoolID() string {
	return u.Pool
}

func (u *PoolUpdate) SourceSequence() int64 {
	return u.Sequence
}

func (u *PoolUpdate) AsOf() time.Time {
	return u.FetchedAt
}
