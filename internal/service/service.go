package service

import (
	"context"

	"elapsed_timer/internal/link"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/protocol"
	"elapsed_timer/internal/repository"
)

// Timer exposes the commands the engine accepts.
type Timer interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Reset(ctx context.Context) error
	SetDuration(ctx context.Context, c models.Counter, mask models.FieldMask) error
	Dispatch(ctx context.Context, cmd models.Command) error
}

// Monitoring exposes read-only state.
type Monitoring interface {
	GetState(ctx context.Context) (models.Snapshot, error)
}

// EventLog exposes the append-only event history with filtering.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.TimerEvent, error)
}

// Remote applies duration phrases from the web UI.
type Remote interface {
	Apply(ctx context.Context, payload string) (models.Command, error)
}

// Service aggregates all sub-services.
type Service struct {
	Timer
	Monitoring
	EventLog
	Remote

	// Engine is the concrete timer; main owns its Restore/Run lifecycle.
	Engine *TimerEngine
}

// Options carries what the services need beyond the repositories.
type Options struct {
	Engine           EngineOptions
	ParserMode       protocol.Mode
	MonitorFromStore bool
	// Link forwards remote resets to the peer; nil when none is attached.
	Link link.Transport
}

// NewService wires the repository layer into concrete services.
func NewService(repos *repository.Repository, opts Options) *Service {
	engine := NewTimerEngine(repos.Store, repos.Events, opts.Engine)
	remote := NewRemoteService(engine, protocol.NewDurationParser(opts.ParserMode), opts.Link,
		opts.Engine.Recorder, opts.Engine.Logger)
	if opts.MonitorFromStore {
		remote.MergeFromStore(repos.Store, opts.Engine.Namespace)
	}
	return &Service{
		Timer:      engine,
		Monitoring: NewMonitoringService(engine, repos.Store, opts.Engine.Namespace, opts.MonitorFromStore),
		EventLog:   NewEventLogService(repos.Events),
		Remote:     remote,
		Engine:     engine,
	}
}
