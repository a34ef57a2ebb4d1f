package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates all domain event types.
type EventType string

const (
	EventMatchCredited  EventType = "ladder.match.credited"
	EventMatchSubmitted EventType = "ladder.match.submitted"
	EventMatchApproved  EventType = "ladder.match.approved"
	EventMatchDisputed  EventType = "ladder.match.disputed"
	EventPlayerPromoted EventType = "ladder.player.promoted"
	EventSeasonStarted  EventType = "ladder.season.started"
	EventSeasonKicked   EventType = "ladder.season.kicked"
)

// AggregateType enumerates the aggregate root types for outbox events.
type AggregateType string

const (
	AggregateMatch  AggregateType = "match"
	AggregatePlayer AggregateType = "player"
	AggregateSeason AggregateType = "season"
)

// OutboxDraft is the payload written to the event_outbox table.
type OutboxDraft struct {
	ID            int64           `json:"-"`
	EventID       uuid.UUID       `json:"eventId"`
	AggregateType AggregateType   `json:"aggregateType"`
	AggregateID   string          `json:"aggregateId"`
	EventType     EventType       `json:"eventType"`
	PartitionKey  string          `json:"partitionKey"`
	Headers       json.RawMessage `json:"headers"`
	Payload       json.RawMessage `json:"payload"`
	OccurredAt    time.Time       `json:"occurredAt"`
}
