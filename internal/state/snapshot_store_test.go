package state_test

import (
	"testing"
	"time"

	"PoolRisk/internal/state"
)

func TestSnapshotStore_UpdateAndGet(t *testing.T) {
	s := state.NewSnapshotStore()
	now := time.Unix(1_700_000_000, 0)

	positions := []state.Position{state.NewPosition("p1", 150, 0, 0, 100, 1.1)}
	if !s.UpdatePositions("SUI_USDC", positions, 1, now) {
		t.Fatal("first update should be applied")
	}

	snap, ok := s.Get("SUI_USDC")
	if !ok {
		t.Fatal("pool should exist")
	}
	if len(snap.Positions) != 1 || snap.PositionSequence != 1 {
		t.Errorf("got %d positions at seq %d", len(snap.Positions), snap.PositionSequence)
	}
	if snap.Rates != nil {
		t.Error("rates should be unset before a pool update")
	}
}

func TestSnapshotStore_StaleUpdatesIgnored(t *testing.T) {
	s := state.NewSnapshotStore()
	now := time.Unix(1_700_000_000, 0)

	s.UpdatePositions("pool", []state.Position{state.NewPosition("new", 1, 0, 0, 1, 1.1)}, 5, now)

	if s.UpdatePositions("pool", nil, 5, now) {
		t.Error("duplicate sequence should be ignored")
	}
	if s.UpdatePositions("pool", nil, 4, now) {
		t.Error("older sequence should be ignored")
	}

	snap, _ := s.Get("pool")
	if len(snap.Positions) != 1 || snap.Positions[0].PositionID != "new" {
		t.Errorf("stale update overwrote positions: %+v", snap.Positions)
	}

	rates := state.InterestRateConfig{OptimalUtilization: 0.8}
	if !s.UpdatePool("pool", &rates, state.PoolState{TotalSupply: 10}, 1, now) {
		t.Error("pool sequence is tracked independently of positions")
	}
	if s.UpdatePool("pool", &rates, state.PoolState{}, 1, now) {
		t.Error("duplicate pool sequence should be ignored")
	}

	// nil rates keeps the last known curve
	if !s.UpdatePool("pool", nil, state.PoolState{TotalSupply: 20, TotalBorrow: 5}, 2, now) {
		t.Fatal("newer pool update should apply")
	}
	snap, _ = s.Get("pool")
	if snap.Rates == nil || snap.Rates.OptimalUtilization != 0.8 {
		t.Errorf("rates dropped by a totals-only update: %+v", snap.Rates)
	}
	if snap.Pool.TotalSupply != 20 {
		t.Errorf("supply: got %v, want 20", snap.Pool.TotalSupply)
	}
}

func TestSnapshotStore_GetReturnsCopy(t *testing.T) {
	s := state.NewSnapshotStore()
	s.UpdatePositions("pool", []state.Position{state.NewPosition("p1", 1, 0, 0, 1, 1.1)}, 1, time.Now())

	snap, _ := s.Get("pool")
	snap.Positions[0].PositionID = "mutated"

	again, _ := s.Get("pool")
	if again.Positions[0].PositionID != "p1" {
		t.Error("Get must return an isolated copy")
	}
}

func TestSnapshotStore_PoolIDsSorted(t *testing.T) {
	s := state.NewSnapshotStore()
	for i, id := range []string{"c", "a", "b"} {
		s.UpdatePositions(id, nil, int64(i+1), time.Now())
	}

	ids := s.PoolIDs()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Errorf("got %v, want [a b c]", ids)
	}
}
