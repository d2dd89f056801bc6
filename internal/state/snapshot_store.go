package state

import (
	"sort"
	"sync"
	"time"
)

// PoolSnapshot is the latest known input set for one pool.
type PoolSnapshot struct {
	PoolID string

	Positions        []Position
	PositionSequence int64
	PositionsAsOf    time.Time

	Rates        *InterestRateConfig
	Pool         PoolState
	PoolSequence int64
	PoolAsOf     time.Time
}

// SnapshotStore keeps the latest positions and pool state per pool for the
// host service. Updates with a sequence at or below the stored one are
// ignored (stale or duplicate redelivery). Safe for concurrent use.
type SnapshotStore struct {
	mu    sync.RWMutex
	pools map[string]*PoolSnapshot
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		pools: make(map[string]*PoolSnapshot),
	}
}

func (s *SnapshotStore) getOrCreate(poolID string) *PoolSnapshot {
	snap := s.pools[poolID]
	if snap == nil {
		snap = &PoolSnapshot{PoolID: poolID}
		s.pools[poolID] = snap
	}
	return snap
}

// UpdatePositions replaces the position set of a pool. Returns false when
// the update was stale.
func (s *SnapshotStore) UpdatePositions(poolID string, positions []Position, sequence int64, asOf time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.getOrCreate(poolID)
	if snap.PositionSequence != 0 && sequence <= snap.PositionSequence {
		return false
	}

	cp := make([]Position, len(positions))
	copy(cp, positions)

	snap.Positions = cp
	snap.PositionSequence = sequence
	snap.PositionsAsOf = asOf
	return true
}

// UpdatePool replaces the supply/borrow totals of a pool, and its rate
// config when rates is non-nil. Returns false when the update was stale.
func (s *SnapshotStore) UpdatePool(poolID string, rates *InterestRateConfig, pool PoolState, sequence int64, asOf time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.getOrCreate(poolID)
	if snap.PoolSequence != 0 && sequence <= snap.PoolSequence {
		return false
	}

	if rates != nil {
		r := *rates
		snap.Rates = &r
	}
	snap.Pool = pool
	snap.PoolSequence = sequence
	snap.PoolAsOf = asOf
	return true
}

// Get returns a copy of the pool's snapshot.
func (s *SnapshotStore) Get(poolID string) (PoolSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, ok := s.pools[poolID]
	if !ok {
		return PoolSnapshot{}, false
	}

	out := *snap
	out.Positions = make([]Position, len(snap.Positions))
	copy(out.Positions, snap.Positions)
	if snap.Rates != nil {
		r := *snap.Rates
		out.Rates = &r
	}
	return out, true
}

// PoolIDs returns the known pools in sorted order.
func (s *SnapshotStore) PoolIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.pools))
	for id := range s.pools {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
