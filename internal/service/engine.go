package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/metrics"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/repository"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// PersistencePolicy decides what a failed commit means to the caller.
type PersistencePolicy string

const (
	// BestEffort logs the fault and keeps the in-memory value.
	BestEffort PersistencePolicy = "best-effort"
	// Strict returns the fault and rolls the in-memory value back.
	Strict PersistencePolicy = "strict"
)

const (
	defaultTickPeriod = time.Second
	mailboxSize       = 16
)

var errUnknownCommand = errors.New("unknown command")

// EngineOptions configures a TimerEngine. Zero values pick the defaults.
type EngineOptions struct {
	Namespace string
	Period    time.Duration
	Policy    PersistencePolicy
	Clock     clockwork.Clock
	Recorder  metrics.Recorder
	Logger    *logger.Logger
}

// TimerEngine owns the counter. Every mutation runs on the Run goroutine,
// one message at a time; readers get the last published snapshot.
type TimerEngine struct {
	store     repository.KVStore
	events    repository.EventRepo
	namespace string
	period    time.Duration
	policy    PersistencePolicy
	clock     clockwork.Clock
	rec       metrics.Recorder
	log       *logger.Logger

	mailbox chan request
	snap    atomic.Pointer[models.Snapshot]

	// owned by the Run goroutine
	counter    models.Counter
	running    bool
	generation uint64
	stopTicks  context.CancelFunc
	tickers    sync.WaitGroup
}

type request struct {
	cmd   models.Command
	tick  bool
	gen   uint64 // tick source generation; 0 means the current one
	reply chan error
}

// NewTimerEngine builds an idle engine with a zero counter. Call Restore
// before Run to pick up the persisted value.
func NewTimerEngine(store repository.KVStore, events repository.EventRepo, opts EngineOptions) *TimerEngine {
	e := &TimerEngine{
		store:     store,
		events:    events,
		namespace: opts.Namespace,
		period:    opts.Period,
		policy:    opts.Policy,
		clock:     opts.Clock,
		rec:       opts.Recorder,
		log:       opts.Logger.Named("engine"),
		mailbox:   make(chan request, mailboxSize),
	}
	if e.namespace == "" {
		e.namespace = repository.DefaultNamespace
	}
	if e.period <= 0 {
		e.period = defaultTickPeriod
	}
	if e.policy == "" {
		e.policy = BestEffort
	}
	if e.clock == nil {
		e.clock = clockwork.NewRealClock()
	}
	if e.rec == nil {
		e.rec = metrics.NopRecorder{}
	}
	e.publish()
	return e
}

// Restore loads the counter from the store. Absent or unreadable keys count
// as zero; the engine stays idle until an explicit Start. It must not be
// called concurrently with Run.
func (e *TimerEngine) Restore(ctx context.Context) error {
	c, err := repository.LoadCounter(ctx, e.store, e.namespace)
	if err != nil {
		e.log.Errorw("persist_restore_failed", "err", err, "namespace", e.namespace)
	}
	e.counter = c
	e.publish()
	e.log.Infow("counter_restored",
		"days", c.Days, "hours", c.Hours, "minutes", c.Minutes, "seconds", c.Seconds)
	return err
}

// Run processes commands and ticks until ctx is canceled.
func (e *TimerEngine) Run(ctx context.Context) {
	defer func() {
		e.haltTicks()
		e.tickers.Wait()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-e.mailbox:
			err := e.handle(ctx, req)
			if req.reply != nil {
				req.reply <- err
			}
		}
	}
}

// Snapshot returns the last published state. It never blocks.
func (e *TimerEngine) Snapshot() models.Snapshot {
	return *e.snap.Load()
}

// Dispatch hands cmd to the engine and waits for it to be applied.
func (e *TimerEngine) Dispatch(ctx context.Context, cmd models.Command) error {
	return e.send(ctx, request{cmd: cmd, reply: make(chan error, 1)})
}

func (e *TimerEngine) Start(ctx context.Context) error { return e.Dispatch(ctx, models.StartCommand()) }
func (e *TimerEngine) Stop(ctx context.Context) error  { return e.Dispatch(ctx, models.StopCommand()) }
func (e *TimerEngine) Reset(ctx context.Context) error { return e.Dispatch(ctx, models.ResetCommand()) }

// SetDuration overwrites the fields selected by mask.
func (e *TimerEngine) SetDuration(ctx context.Context, c models.Counter, mask models.FieldMask) error {
	return e.Dispatch(ctx, models.Command{Kind: models.CommandSetDuration, Duration: c, Fields: mask})
}

// Tick applies one tick now if the engine is active; idle engines ignore it.
func (e *TimerEngine) Tick(ctx context.Context) error {
	return e.send(ctx, request{tick: true, reply: make(chan error, 1)})
}

func (e *TimerEngine) send(ctx context.Context, req request) error {
	select {
	case e.mailbox <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *TimerEngine) handle(ctx context.Context, req request) error {
	if req.tick {
		return e.applyTick(ctx, req.gen)
	}

	kind := req.cmd.Kind
	switch kind {
	case models.CommandNone:
		return nil
	case models.CommandStart:
		e.rec.IncCommand(string(kind))
		e.start(ctx)
		return nil
	case models.CommandStop:
		e.rec.IncCommand(string(kind))
		e.stop(ctx)
		return nil
	case models.CommandReset:
		e.rec.IncCommand(string(kind))
		e.stop(ctx)
		err := e.mutate(ctx, func(c *models.Counter) { c.Reset() })
		e.recordEvent(ctx, models.EventReset, "Counter reset", nil)
		return err
	case models.CommandSetDuration:
		e.rec.IncCommand(string(kind))
		d, mask := req.cmd.Duration, req.cmd.Fields
		err := e.mutate(ctx, func(c *models.Counter) {
			m := d.Merge(*c, mask)
			c.Set(m.Days, m.Hours, m.Minutes, m.Seconds)
		})
		cur := e.counter
		e.recordEvent(ctx, models.EventSet, "Duration set", map[string]any{
			"days": cur.Days, "hours": cur.Hours, "minutes": cur.Minutes, "seconds": cur.Seconds,
		})
		return err
	default:
		return fmt.Errorf("%w: %q", errUnknownCommand, kind)
	}
}

func (e *TimerEngine) start(ctx context.Context) {
	if e.running {
		return
	}
	e.running = true
	e.generation++
	tickCtx, cancel := context.WithCancel(ctx)
	e.stopTicks = cancel
	e.tickers.Add(1)
	go e.runTicks(tickCtx, e.generation)

	e.publish()
	e.recordEvent(ctx, models.EventStart, "Counting started", nil)
}

func (e *TimerEngine) stop(ctx context.Context) {
	if !e.running {
		return
	}
	e.running = false
	e.haltTicks()
	e.publish()
	e.recordEvent(ctx, models.EventStop, "Counting stopped", nil)
}

func (e *TimerEngine) haltTicks() {
	if e.stopTicks != nil {
		e.stopTicks()
		e.stopTicks = nil
	}
}

// runTicks only ever posts tick messages; the counter is touched by Run.
func (e *TimerEngine) runTicks(ctx context.Context, gen uint64) {
	defer e.tickers.Done()
	t := e.clock.NewTicker(e.period)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			select {
			case e.mailbox <- request{tick: true, gen: gen}:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (e *TimerEngine) applyTick(ctx context.Context, gen uint64) error {
	if !e.running || (gen != 0 && gen != e.generation) {
		// stale tick queued before a Stop
		return nil
	}
	e.rec.IncTick()
	return e.mutate(ctx, func(c *models.Counter) { c.Tick() })
}

// mutate applies fn, persists the result and publishes a new snapshot.
func (e *TimerEngine) mutate(ctx context.Context, fn func(*models.Counter)) error {
	prev := e.counter
	fn(&e.counter)

	err := repository.SaveCounter(ctx, e.store, e.namespace, e.counter)
	if err != nil {
		e.rec.IncPersist(metrics.ResultFault)
		e.log.Errorw("persist_commit_failed", "err", err, "policy", e.policy)
		e.recordEvent(ctx, models.EventPersistFault, "Counter commit failed", map[string]any{"error": err.Error()})
		if e.policy == Strict {
			e.counter = prev
			e.publish()
			return err
		}
	} else {
		e.rec.IncPersist(metrics.ResultOK)
	}
	e.publish()
	return nil
}

func (e *TimerEngine) publish() {
	s := models.NewSnapshot(e.counter, e.running, e.clock.Now().UTC())
	e.snap.Store(&s)
	e.rec.SetRunning(e.running)
	e.rec.SetTotalSeconds(s.TotalSeconds)
}

func (e *TimerEngine) recordEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	if e.events == nil {
		return
	}
	ev := models.TimerEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  e.clock.Now().UTC(),
		Type:        typ,
		Description: desc,
	}
	if meta != nil {
		ev.Metadata = meta
	}
	if err := e.events.Append(ctx, ev); err != nil {
		e.log.Warnw("event_append_failed", "err", err, "type", typ)
	}
}
