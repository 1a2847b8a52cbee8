package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"elapsed_timer/internal/models"
	"elapsed_timer/internal/repository"
)

const maxLogLimit = 1000

// LogFilter supports history filtering by time range, type and count.
type LogFilter struct {
	From  time.Time // inclusive; zero means no lower bound
	To    time.Time // inclusive; zero means no upper bound
	Type  string    // "", "START", "STOP", "RESET", "SET", "PERSIST_FAULT"
	Limit int       // 0 means no limit
}

type EventLogService struct {
	eventRepo repository.EventRepo
}

func NewEventLogService(eventRepo repository.EventRepo) *EventLogService {
	return &EventLogService{eventRepo: eventRepo}
}

var (
	errInvalidTimeRange = errors.New("invalid time range: From must be <= To")
	errInvalidLimit     = errors.New("invalid limit: must be between 0 and 1000")
)

// normalizeToUTC returns t in UTC, preserving zero time values.
func normalizeToUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

// normalizeEventType trims spaces and uppercases the event type filter.
func normalizeEventType(s string) string {
	return strings.TrimSpace(strings.ToUpper(s))
}

// normalizeAndValidateFilter turns a LogFilter into repository query parameters.
func normalizeAndValidateFilter(f LogFilter) (repository.EventFilter, error) {
	from := normalizeToUTC(f.From)
	to := normalizeToUTC(f.To)

	if !from.IsZero() && !to.IsZero() && from.After(to) {
		return repository.EventFilter{}, errInvalidTimeRange
	}
	if f.Limit < 0 || f.Limit > maxLogLimit {
		return repository.EventFilter{}, errInvalidLimit
	}

	return repository.EventFilter{
		From:  from,
		To:    to,
		Type:  normalizeEventType(f.Type),
		Limit: f.Limit,
	}, nil
}

func (s *EventLogService) List(ctx context.Context, f LogFilter) ([]models.TimerEvent, error) {
	q, err := normalizeAndValidateFilter(f)
	if err != nil {
		return nil, err
	}
	return s.eventRepo.List(ctx, q)
}

// IsValidationError reports whether err came from filter validation.
func IsValidationError(err error) bool {
	return errors.Is(err, errInvalidTimeRange) || errors.Is(err, errInvalidLimit)
}
