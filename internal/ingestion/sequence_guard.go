package ingestion

import (
	"fmt"

	"PoolRisk/internal/event"
)

// SequenceVerdict is the outcome of a sequence check.
type SequenceVerdict int

const (
	SequenceNext  SequenceVerdict = iota // exactly last+1, or first seen
	SequenceGap                          // ahead of last+1; accepted, snapshots are full state
	SequenceStale                        // at or below last; dropped
)

func (v SequenceVerdict) String() string {
	switch v {
	case SequenceNext:
		return "next"
	case SequenceGap:
		return "gap"
	case SequenceStale:
		return "stale"
	default:
		return "unknown"
	}
}

// SequenceGuard tracks the last accepted upstream sequence per
// (event type, pool) partition. Not thread-safe: only the processor loop
// touches it.
type SequenceGuard struct {
	last  map[string]int64
	gaps  map[string]int64
	stale map[string]int64
}

func NewSequenceGuard() *SequenceGuard {
	return &SequenceGuard{
		last:  make(map[string]int64),
		gaps:  make(map[string]int64),
		stale: make(map[string]int64),
	}
}

// Partition names the ordering domain of an event.
func Partition(evt event.Event) string {
	return fmt.Sprintf("%s:%s", evt.EventType(), evt.PoolID())
}

// Check classifies seq for partition and advances the partition on
// anything but a stale sequence.
func (g *SequenceGuard) Check(partition string, seq int64) SequenceVerdict {
	last, seen := g.last[partition]

	if seen && seq <= last {
		g.stale[partition]++
		return SequenceStale
	}

	g.last[partition] = seq
	if seen && seq > last+1 {
		g.gaps[partition]++
		return SequenceGap
	}
	return SequenceNext
}

// Last returns the last accepted sequence for a partition.
func (g *SequenceGuard) Last(partition string) (int64, bool) {
	seq, ok := g.last[partition]
	return seq, ok
}

func (g *SequenceGuard) Gaps(partition string) int64 {
	return g.gaps[partition]
}

func (g *SequenceGuard) Stale(partition string) int64 {
	return g.stale[partition]
}
