package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/repository"
	"elapsed_timer/internal/repository/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticSnapshot is a Snapshotter that always reports the same state.
type staticSnapshot struct {
	snap models.Snapshot
}

func (s staticSnapshot) Snapshot() models.Snapshot { return s.snap }

func TestMonitoringService_GetState(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, time.March, 1, 12, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	live := staticSnapshot{snap: models.NewSnapshot(models.Counter{Minutes: 2, Seconds: 5}, true, at)}

	cases := []struct {
		name      string
		fromStore bool
		stored    *models.Counter
		openErr   error
		assert    func(t *testing.T, got models.Snapshot, err error)
	}{
		{
			name: "engine source returns the live snapshot",
			assert: func(t *testing.T, got models.Snapshot, err error) {
				require.NoError(t, err)
				assert.Equal(t, live.snap, got)
			},
		},
		{
			name:      "store source reads persisted counter with live running flag",
			fromStore: true,
			stored:    &models.Counter{Days: 1, Seconds: 9},
			assert: func(t *testing.T, got models.Snapshot, err error) {
				require.NoError(t, err)
				assert.Equal(t, models.Counter{Days: 1, Seconds: 9}, got.Counter)
				assert.Equal(t, int64(86409), got.TotalSeconds)
				assert.True(t, got.Running)
				assert.Equal(t, time.UTC, got.UpdatedAt.Location())
			},
		},
		{
			name:      "store source on first boot reads zero",
			fromStore: true,
			assert: func(t *testing.T, got models.Snapshot, err error) {
				require.NoError(t, err)
				assert.Equal(t, models.Counter{}, got.Counter)
			},
		},
		{
			name:      "store fault propagates",
			fromStore: true,
			openErr:   errBoom,
			assert: func(t *testing.T, got models.Snapshot, err error) {
				var fault *models.PersistenceFault
				require.ErrorAs(t, err, &fault)
				assert.Zero(t, got.TotalSeconds)
			},
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			store := newMemStore()
			if tc.stored != nil {
				require.NoError(t, repository.SaveCounter(ctx, store, repository.DefaultNamespace, *tc.stored))
			}
			store.openErr = tc.openErr

			svc := NewMonitoringService(live, store, "", tc.fromStore)
			got, err := svc.GetState(ctx)
			tc.assert(t, got, err)
		})
	}
}

func TestMonitoringService_StoreSourceNeverMixesCommits(t *testing.T) {
	conn, err := db.InitDB(filepath.Join(t.TempDir(), "timer.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	repos := repository.NewRepository(conn)

	engine := NewTimerEngine(repos.Store, repos.Events, EngineOptions{Policy: Strict, Logger: logger.Nop()})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	a := models.Counter{Days: 1, Hours: 1, Minutes: 1, Seconds: 1}
	b := models.Counter{Days: 2, Hours: 2, Minutes: 2, Seconds: 2}
	require.NoError(t, engine.SetDuration(ctx, a, models.AllFields))

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			c := a
			if i%2 == 0 {
				c = b
			}
			if err := engine.SetDuration(ctx, c, models.AllFields); err != nil {
				t.Errorf("SetDuration: %v", err)
				return
			}
		}
	}()
	defer func() {
		close(stop)
		wg.Wait()
	}()

	svc := NewMonitoringService(engine, repos.Store, "", true)
	for i := 0; i < 200; i++ {
		got, err := svc.GetState(ctx)
		require.NoError(t, err)
		if got.Counter != a && got.Counter != b {
			t.Fatalf("read %+v, which no commit produced", got.Counter)
		}
	}
}
