package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type engineFixture struct {
	engine *TimerEngine
	store  *memStore
	events *memEvents
	clock  *clockwork.FakeClock
	ctx    context.Context
}

func newEngineFixture(t *testing.T, policy PersistencePolicy) *engineFixture {
	t.Helper()
	f := &engineFixture{
		store:  newMemStore(),
		events: &memEvents{},
		clock:  clockwork.NewFakeClock(),
	}
	f.engine = NewTimerEngine(f.store, f.events, EngineOptions{
		Period: time.Second,
		Policy: policy,
		Clock:  f.clock,
		Logger: logger.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	f.ctx = ctx
	return f
}

func TestEngine_StartTickStop(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	e := f.engine

	require.NoError(t, e.Start(f.ctx))
	for i := 0; i < 65; i++ {
		require.NoError(t, e.Tick(f.ctx))
	}
	require.NoError(t, e.Stop(f.ctx))

	snap := e.Snapshot()
	assert.Equal(t, models.Counter{Minutes: 1, Seconds: 5}, snap.Counter)
	assert.Equal(t, int64(65), snap.TotalSeconds)
	assert.False(t, snap.Running)

	// one commit per tick, none for start/stop
	assert.Equal(t, 65, f.store.commitCount())
	assert.Equal(t, snap.Counter, f.store.counter("storage"))
}

func TestEngine_TickWhileIdleIsIgnored(t *testing.T) {
	f := newEngineFixture(t, BestEffort)

	require.NoError(t, f.engine.Tick(f.ctx))

	assert.Zero(t, f.engine.Snapshot().TotalSeconds)
	assert.Zero(t, f.store.commitCount())
}

func TestEngine_RedundantStartStopAreNoops(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	e := f.engine

	require.NoError(t, e.Stop(f.ctx))
	require.NoError(t, e.Start(f.ctx))
	require.NoError(t, e.Start(f.ctx))
	assert.True(t, e.Snapshot().Running)
	require.NoError(t, e.Stop(f.ctx))
	require.NoError(t, e.Stop(f.ctx))

	assert.Equal(t, []string{models.EventStart, models.EventStop}, f.events.types())
	assert.Zero(t, f.store.commitCount())
}

func TestEngine_ResetStopsAndZeroes(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	e := f.engine

	require.NoError(t, e.SetDuration(f.ctx, models.Counter{Days: 2, Hours: 3, Minutes: 4, Seconds: 5}, models.AllFields))
	require.NoError(t, e.Start(f.ctx))
	require.NoError(t, e.Reset(f.ctx))

	snap := e.Snapshot()
	assert.Equal(t, models.Counter{}, snap.Counter)
	assert.False(t, snap.Running)
	assert.Equal(t, models.Counter{}, f.store.counter("storage"))

	// reset from idle persists again
	require.NoError(t, e.Reset(f.ctx))
	assert.Equal(t, 3, f.store.commitCount())
}

func TestEngine_SetDurationMergesMaskedFields(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	e := f.engine

	require.NoError(t, e.SetDuration(f.ctx, models.Counter{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}, models.AllFields))
	require.NoError(t, e.SetDuration(f.ctx, models.Counter{Minutes: 5, Seconds: 30}, models.FieldMinutes|models.FieldSeconds))

	assert.Equal(t, models.Counter{Days: 1, Hours: 2, Minutes: 5, Seconds: 30}, e.Snapshot().Counter)
	assert.False(t, e.Snapshot().Running)
}

func TestEngine_SetDurationKeepsRunningFlag(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	e := f.engine

	require.NoError(t, e.Start(f.ctx))
	require.NoError(t, e.Dispatch(f.ctx, models.SetDurationCommand(0, 0, 0, 10)))
	require.NoError(t, e.Tick(f.ctx))

	snap := e.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, models.Counter{Seconds: 11}, snap.Counter)
}

func TestEngine_NoopCommandChangesNothing(t *testing.T) {
	f := newEngineFixture(t, BestEffort)

	require.NoError(t, f.engine.Dispatch(f.ctx, models.Command{}))

	assert.Zero(t, f.store.commitCount())
	assert.Empty(t, f.events.types())
}

func TestEngine_UnknownCommandIsRejected(t *testing.T) {
	f := newEngineFixture(t, BestEffort)

	err := f.engine.Dispatch(f.ctx, models.Command{Kind: "PAUSE"})
	require.ErrorIs(t, err, errUnknownCommand)
}

func TestEngine_StrictPolicyRollsBack(t *testing.T) {
	f := newEngineFixture(t, Strict)
	e := f.engine

	require.NoError(t, e.SetDuration(f.ctx, models.Counter{Minutes: 1}, models.AllFields))
	f.store.failCommits(errBoom)

	err := e.SetDuration(f.ctx, models.Counter{Hours: 9}, models.AllFields)
	var fault *models.PersistenceFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, "commit", fault.Op)
	assert.ErrorIs(t, err, errBoom)

	assert.Equal(t, models.Counter{Minutes: 1}, e.Snapshot().Counter)
	assert.Equal(t, models.Counter{Minutes: 1}, f.store.counter("storage"))
	assert.Contains(t, f.events.types(), models.EventPersistFault)

	require.NoError(t, e.Start(f.ctx))
	require.Error(t, e.Tick(f.ctx))
	assert.Equal(t, models.Counter{Minutes: 1}, e.Snapshot().Counter)
}

func TestEngine_BestEffortKeepsMemoryValue(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	e := f.engine
	f.store.failCommits(errBoom)

	require.NoError(t, e.Start(f.ctx))
	require.NoError(t, e.Tick(f.ctx))
	require.NoError(t, e.Tick(f.ctx))

	assert.Equal(t, models.Counter{Seconds: 2}, e.Snapshot().Counter)
	assert.Equal(t, models.Counter{}, f.store.counter("storage"))

	f.store.failCommits(nil)
	require.NoError(t, e.Tick(f.ctx))
	assert.Equal(t, models.Counter{Seconds: 3}, f.store.counter("storage"))
}

func TestEngine_RestoreReadsPersistedCounterAndStaysIdle(t *testing.T) {
	store := newMemStore()
	require.NoError(t, repository.SaveCounter(context.Background(), store, repository.DefaultNamespace,
		models.Counter{Hours: 4, Minutes: 2}))

	restarted := NewTimerEngine(store, nil, EngineOptions{Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})
	require.NoError(t, restarted.Restore(context.Background()))

	snap := restarted.Snapshot()
	assert.Equal(t, models.Counter{Hours: 4, Minutes: 2}, snap.Counter)
	assert.False(t, snap.Running)
}

func TestEngine_RestoreFirstBootAndFaults(t *testing.T) {
	store := newMemStore()
	e := NewTimerEngine(store, nil, EngineOptions{Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})
	require.NoError(t, e.Restore(context.Background()))
	assert.Equal(t, models.Counter{}, e.Snapshot().Counter)

	store.openErr = errBoom
	err := e.Restore(context.Background())
	var fault *models.PersistenceFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, models.Counter{}, e.Snapshot().Counter)
}

func TestEngine_TickerDrivesCounter(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	e := f.engine

	require.NoError(t, e.Start(f.ctx))
	require.NoError(t, f.clock.BlockUntilContext(f.ctx, 1))

	for want := int64(1); want <= 3; want++ {
		f.clock.Advance(time.Second)
		require.Eventually(t, func() bool {
			return e.Snapshot().TotalSeconds == want
		}, time.Second, time.Millisecond)
	}

	require.NoError(t, e.Stop(f.ctx))
	f.clock.Advance(5 * time.Second)
	require.NoError(t, e.Tick(f.ctx)) // round-trips the mailbox
	assert.Equal(t, int64(3), e.Snapshot().TotalSeconds)
}

func TestEngine_StaleTicksAreDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	e := NewTimerEngine(newMemStore(), nil, EngineOptions{Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})

	// drive the actor by hand; no Run goroutine
	require.NoError(t, e.handle(ctx, request{cmd: models.StartCommand()}))
	oldGen := e.generation
	require.NoError(t, e.handle(ctx, request{cmd: models.StopCommand()}))
	require.NoError(t, e.handle(ctx, request{cmd: models.StartCommand()}))

	require.NoError(t, e.handle(ctx, request{tick: true, gen: oldGen}))
	assert.Zero(t, e.Snapshot().TotalSeconds)

	require.NoError(t, e.handle(ctx, request{tick: true, gen: e.generation}))
	assert.Equal(t, int64(1), e.Snapshot().TotalSeconds)
}

func TestEngine_ConcurrentTickAndSetSerialize(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newEngineFixture(t, BestEffort)
		e := f.engine
		require.NoError(t, e.Start(f.ctx))

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.Tick(f.ctx))
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, e.SetDuration(f.ctx, models.Counter{Seconds: 10}, models.AllFields))
		}()
		wg.Wait()

		// tick-then-set or set-then-tick, never a blend
		got := e.Snapshot().Counter
		assert.Contains(t, []models.Counter{{Seconds: 10}, {Seconds: 11}}, got)
		assert.Equal(t, got, f.store.counter("storage"))
	}
}

func TestEngine_SnapshotsAreNeverTorn(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	e := f.engine
	require.NoError(t, e.Start(f.ctx))

	stop := make(chan struct{})
	var readers sync.WaitGroup
	for r := 0; r < 4; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				s := e.Snapshot()
				if s.TotalSeconds != s.Counter.TotalSeconds() {
					t.Errorf("torn snapshot: %+v", s)
					return
				}
			}
		}()
	}

	for i := 0; i < 500; i++ {
		require.NoError(t, e.Tick(f.ctx))
	}
	close(stop)
	readers.Wait()

	assert.Equal(t, models.Counter{Minutes: 8, Seconds: 20}, e.Snapshot().Counter)
}

func TestEngine_DispatchHonoursContext(t *testing.T) {
	e := NewTimerEngine(newMemStore(), nil, EngineOptions{Clock: clockwork.NewFakeClock(), Logger: logger.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// nobody runs the engine, so only ctx can release the caller
	err := e.Start(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}
