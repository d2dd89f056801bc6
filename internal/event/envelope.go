package event

import (
	"time"
)

// EventType discriminator for ingested payloads
type EventType int32

const (
	EventTypeUnknown EventType = iota
	EventTypePositionSnapshot
	EventTypePoolUpdate
)

// Event is the interface every ingested payload implements.
type Event interface {
	// IdempotencyKey returns the stable dedup key
	IdempotencyKey() string

	// EventType returns the discriminator
	EventType() EventType

	// PoolID returns the lending pool the payload belongs to
	PoolID() string

	// SourceSequence returns the upstream ordering key, monotonic per pool
	// and event type
	SourceSequence() int64

	// AsOf returns the upstream fetch time (not wall-clock)
	AsOf() time.Time
}

func (et EventType) String() string {
	switch et {
	case EventTypePositionSnapshot:
		return "PositionSnapshot"
	case EventTypePoolUpdate:
		return "PoolUpdate"
	default:
		return "Unknown"
	}
}

// ParseEventType is the inverse of EventType.String.
func ParseEventType(s string) EventType {
	switch s {
	case "PositionSnapshot":
		return EventTypePositionSnapshot
	case "PoolUpdate":
		return EventTypePoolUpdate
	default:
		return EventTypeUnknown
	}
}
