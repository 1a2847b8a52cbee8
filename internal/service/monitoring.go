package service

import (
	"context"
	"time"

	"elapsed_timer/internal/models"
	"elapsed_timer/internal/repository"
)

// Snapshotter is anything that can report the live timer state.
type Snapshotter interface {
	Snapshot() models.Snapshot
}

type MonitoringService struct {
	live      Snapshotter
	store     repository.KVStore
	namespace string
	fromStore bool
}

// NewMonitoringService reports the engine's snapshot. With fromStore set it
// instead reads the persisted counter on every call, the way a display
// attached to the shared store sees it.
func NewMonitoringService(live Snapshotter, store repository.KVStore, namespace string, fromStore bool) *MonitoringService {
	if namespace == "" {
		namespace = repository.DefaultNamespace
	}
	return &MonitoringService{live: live, store: store, namespace: namespace, fromStore: fromStore}
}

// GetState returns the current counter and running flag.
func (s *MonitoringService) GetState(ctx context.Context) (models.Snapshot, error) {
	snap := s.live.Snapshot()
	if !s.fromStore {
		return snap, nil
	}

	c, err := repository.LoadCounter(ctx, s.store, s.namespace)
	if err != nil {
		return models.Snapshot{}, err
	}
	return models.NewSnapshot(c, snap.Running, toUTC(snap.UpdatedAt)), nil
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
