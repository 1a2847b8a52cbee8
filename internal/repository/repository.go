package repository

import (
	"context"
	"database/sql"
	"time"

	"elapsed_timer/internal/models"
)

// KVStore is the crash-safe key→integer store the timer persists into.
type KVStore interface {
	Open(ctx context.Context, namespace string, mode OpenMode) (KVHandle, error)
}

// KVHandle is an open namespace. Writes are buffered until Commit.
type KVHandle interface {
	GetInt(ctx context.Context, key string) (int32, error)
	// GetInts reads keys from one consistent view. Absent keys are
	// missing from the result.
	GetInts(ctx context.Context, keys ...string) (map[string]int32, error)
	SetInt(ctx context.Context, key string, value int32) error
	Commit(ctx context.Context) error
	Close() error
}

// EventFilter narrows an event listing. Zero values mean "no bound".
type EventFilter struct {
	From  time.Time
	To    time.Time
	Type  string
	Limit int
}

type EventRepo interface {
	Append(ctx context.Context, e models.TimerEvent) error
	List(ctx context.Context, f EventFilter) ([]models.TimerEvent, error)
}

type Repository struct {
	Store  KVStore
	Events EventRepo
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Store:  NewKVSQLite(db),
		Events: NewEventSQLite(db),
	}
}
