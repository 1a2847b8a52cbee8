package models

import "time"

// Snapshot is a consistent read of the timer state.
type Snapshot struct {
	Counter
	TotalSeconds int64     `json:"total_seconds"`
	Running      bool      `json:"running"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// NewSnapshot builds a snapshot with the derived total filled in.
func NewSnapshot(c Counter, running bool, at time.Time) Snapshot {
	return Snapshot{
		Counter:      c,
		TotalSeconds: c.TotalSeconds(),
		Running:      running,
		UpdatedAt:    at,
	}
}
