package repository

import (
	"context"
	"errors"
	"math"

	"elapsed_timer/internal/models"
)

// DefaultNamespace holds the four counter keys.
const DefaultNamespace = "storage"

const (
	KeySeconds = "seconds"
	KeyMinutes = "minutes"
	KeyHours   = "hours"
	KeyDays    = "days"
)

// ErrValueOutOfRange is returned for a field that does not fit a stored int32.
var ErrValueOutOfRange = errors.New("value out of int32 range")

// SaveCounter writes the four counter keys and commits them together.
// Any failure is returned as a *models.PersistenceFault and leaves the
// previously committed values in place, including a field that does not
// fit in int32.
func SaveCounter(ctx context.Context, store KVStore, namespace string, c models.Counter) error {
	h, err := store.Open(ctx, namespace, ReadWrite)
	if err != nil {
		return &models.PersistenceFault{Op: "open", Err: err}
	}
	defer func() { _ = h.Close() }()

	for _, kv := range []struct {
		key string
		val int
	}{
		{KeySeconds, c.Seconds},
		{KeyMinutes, c.Minutes},
		{KeyHours, c.Hours},
		{KeyDays, c.Days},
	} {
		if kv.val < math.MinInt32 || kv.val > math.MaxInt32 {
			return &models.PersistenceFault{Op: "set", Key: kv.key, Err: ErrValueOutOfRange}
		}
		if err := h.SetInt(ctx, kv.key, int32(kv.val)); err != nil {
			return &models.PersistenceFault{Op: "set", Key: kv.key, Err: err}
		}
	}
	if err := h.Commit(ctx); err != nil {
		return &models.PersistenceFault{Op: "commit", Err: err}
	}
	return nil
}

// LoadCounter reads the four counter keys in one consistent read. Absent
// keys read as zero and are not an error. A failed read yields the zero
// counter and a *models.PersistenceFault.
func LoadCounter(ctx context.Context, store KVStore, namespace string) (models.Counter, error) {
	var c models.Counter

	h, err := store.Open(ctx, namespace, ReadOnly)
	if err != nil {
		return c, &models.PersistenceFault{Op: "open", Err: err}
	}
	defer func() { _ = h.Close() }()

	vals, err := h.GetInts(ctx, KeySeconds, KeyMinutes, KeyHours, KeyDays)
	if err != nil {
		return c, &models.PersistenceFault{Op: "get", Err: err}
	}
	c.Seconds = int(vals[KeySeconds])
	c.Minutes = int(vals[KeyMinutes])
	c.Hours = int(vals[KeyHours])
	c.Days = int(vals[KeyDays])
	return c, nil
}
