package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeTimelineDeleted    Type = "timeline.deleted"
	TypeBlockLengthChanged Type = "block.length_changed"
	TypeBlockRemoved       Type = "block.removed"
	TypeSequenceChanged    Type = "sequence.changed"
	TypeSequenceRepaired   Type = "sequence.repaired"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	Payload   any    `json:"payload"`
	Timestamp string `json:"timestamp"`
	ActorID   string `json:"actor_id,omitempty"` // request id of the write that caused it
}

// New stamps a fresh event with an id and the current time.
func New(t Type, payload any) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Payload:   payload,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type Bus interface {
	Publish(e Event)
	// Subscribe returns a channel and its unsubscribe function. No types means all.
	Subscribe(types ...Type) (<-chan Event, func())
}
