package models

import "time"

// Timer event types.
const (
	EventStart        = "START"
	EventStop         = "STOP"
	EventReset        = "RESET"
	EventSet          = "SET"
	EventPersistFault = "PERSIST_FAULT"
)

// TimerEvent is a single log entry.
type TimerEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // START | STOP | RESET | SET | PERSIST_FAULT
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
