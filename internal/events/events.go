package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type identifiers.
const (
	// EventTypeProgressRecorded is emitted after a progress write commits.
	// Payload: ProgressRecordedPayload.
	EventTypeProgressRecorded = "progress.recorded"

	// EventTypeGraphChanged is emitted after a structural graph mutation
	// (concept or edge created, updated, or removed) commits.
	// Payload: GraphChangedPayload.
	EventTypeGraphChanged = "graph.changed"
)

// ProgressRecordedPayload describes a committed progress write.
type ProgressRecordedPayload struct {
	UserID    uuid.UUID `json:"user_id"`
	ConceptID uuid.UUID `json:"concept_id"`
	Mastery   float64   `json:"mastery"`
	Status    string    `json:"status"`
}

// GraphChangedPayload describes a committed structural change to the
// concept graph.
type GraphChangedPayload struct {
	ConceptIDs []uuid.UUID `json:"concept_ids"`
	Change     string      `json:"change"`
}

// Event represents something that happened in the system. Events are
// emitted only after the underlying transaction commits, so handlers
// never observe state that was later rolled back.
type Event struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what happened; see the EventType constants
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// OccurredAt is the timestamp when the event was created
	OccurredAt time.Time `json:"occurred_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *Event) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent creates an Event of the given type with the payload serialized
// as JSON.
func NewEvent(eventType string, payload interface{}) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:         uuid.New(),
		Type:       eventType,
		Payload:    payloadBytes,
		OccurredAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that react to events,
// such as cache invalidation or background task scheduling.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter defines an interface for components that publish events.
// Services emit through this interface without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *Event) error
}
