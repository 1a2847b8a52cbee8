package service

import (
	"context"
	"testing"

	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/protocol"
	"elapsed_timer/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteService_ResetIsForwarded(t *testing.T) {
	d := &recordingDispatcher{}
	tr := &scriptedTransport{}
	svc := NewRemoteService(d, protocol.NewDurationParser(protocol.ModeCompat), tr, nil, logger.Nop())

	cmd, err := svc.Apply(context.Background(), protocol.ResetSentinel)
	require.NoError(t, err)
	assert.Equal(t, models.CommandReset, cmd.Kind)
	assert.Equal(t, []models.Command{models.ResetCommand()}, d.commands())
	assert.Equal(t, []string{protocol.ResetPhrase}, tr.sentMessages())
}

func TestRemoteService_ResetForwardFailureIsOnlyLogged(t *testing.T) {
	d := &recordingDispatcher{}
	tr := &scriptedTransport{sendErr: errBoom}
	svc := NewRemoteService(d, protocol.NewDurationParser(protocol.ModeCompat), tr, nil, logger.Nop())

	_, err := svc.Apply(context.Background(), protocol.ResetSentinel)
	require.NoError(t, err)
	assert.Len(t, d.commands(), 1)
}

func TestRemoteService_SetDurationIsNotForwarded(t *testing.T) {
	d := &recordingDispatcher{}
	tr := &scriptedTransport{}
	svc := NewRemoteService(d, protocol.NewDurationParser(protocol.ModeCompat), tr, nil, logger.Nop())

	cmd, err := svc.Apply(context.Background(), "5 minutes 30 seconds")
	require.NoError(t, err)
	assert.Equal(t, models.CommandSetDuration, cmd.Kind)
	require.Len(t, d.commands(), 1)
	assert.Equal(t, models.Counter{Minutes: 5, Seconds: 30}, d.commands()[0].Duration)
	assert.Empty(t, tr.sentMessages())
}

func TestRemoteService_UndefinedBucketIsNoop(t *testing.T) {
	d := &recordingDispatcher{}
	svc := NewRemoteService(d, protocol.NewDurationParser(protocol.ModeCompat), nil, nil, logger.Nop())

	cmd, err := svc.Apply(context.Background(), "1000 seconds")
	require.ErrorIs(t, err, protocol.ErrUndefinedBucket)
	assert.True(t, cmd.IsNoop())
	assert.Empty(t, d.commands())
}

func TestRemoteService_PartialParseIsApplied(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	require.NoError(t, f.engine.SetDuration(f.ctx, models.Counter{Days: 7, Hours: 1, Minutes: 1, Seconds: 1}, models.AllFields))
	svc := NewRemoteService(f.engine, protocol.NewDurationParser(protocol.ModeGrammar), nil, nil, logger.Nop())

	cmd, err := svc.Apply(f.ctx, "3 hours 4 bananas")
	var fault *models.ParseFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, models.CommandSetDuration, cmd.Kind)

	// days defaulted to zero, hours scanned, the rest untouched
	assert.Equal(t, models.Counter{Hours: 3, Minutes: 1, Seconds: 1}, f.engine.Snapshot().Counter)
}

func TestRemoteService_DispatchErrorIsReturned(t *testing.T) {
	d := &recordingDispatcher{err: errBoom}
	svc := NewRemoteService(d, protocol.NewDurationParser(protocol.ModeGrammar), nil, nil, logger.Nop())

	_, err := svc.Apply(context.Background(), "2 minutes")
	require.ErrorIs(t, err, errBoom)
}

func TestRemoteService_PartialParseMergesWithStoredCounter(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	// another node advanced the shared store after this engine restored
	require.NoError(t, repository.SaveCounter(f.ctx, f.store, repository.DefaultNamespace,
		models.Counter{Days: 5, Hours: 6, Minutes: 7, Seconds: 8}))

	svc := NewRemoteService(f.engine, protocol.NewDurationParser(protocol.ModeGrammar), nil, nil, logger.Nop()).
		MergeFromStore(f.store, "")

	_, err := svc.Apply(f.ctx, "3 hours 4 bananas")
	var fault *models.ParseFault
	require.ErrorAs(t, err, &fault)

	want := models.Counter{Hours: 3, Minutes: 7, Seconds: 8}
	assert.Equal(t, want, f.engine.Snapshot().Counter)
	assert.Equal(t, want, f.store.counter(repository.DefaultNamespace))
}

func TestRemoteService_StoreBaseFailureFallsBackToEngine(t *testing.T) {
	f := newEngineFixture(t, BestEffort)
	require.NoError(t, f.engine.SetDuration(f.ctx, models.Counter{Minutes: 9, Seconds: 9}, models.AllFields))
	f.store.openErr = errBoom

	svc := NewRemoteService(f.engine, protocol.NewDurationParser(protocol.ModeGrammar), nil, nil, logger.Nop()).
		MergeFromStore(f.store, "")

	_, err := svc.Apply(f.ctx, "3 hours 4 bananas")
	var fault *models.ParseFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, models.Counter{Hours: 3, Minutes: 9, Seconds: 9}, f.engine.Snapshot().Counter)
}

func TestNewService_StoreMonitoringMergesPartialPhrasesFromStore(t *testing.T) {
	store := newMemStore()
	require.NoError(t, repository.SaveCounter(context.Background(), store, repository.DefaultNamespace,
		models.Counter{Days: 1, Hours: 2, Minutes: 3, Seconds: 4}))

	svc := NewService(&repository.Repository{Store: store, Events: &memEvents{}}, Options{
		Engine:           EngineOptions{Logger: logger.Nop()},
		ParserMode:       protocol.ModeGrammar,
		MonitorFromStore: true,
	})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Engine.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	_, err := svc.Remote.Apply(ctx, "3 hours 4 bananas")
	var fault *models.ParseFault
	require.ErrorAs(t, err, &fault)
	assert.Equal(t, models.Counter{Hours: 3, Minutes: 3, Seconds: 4}, svc.Engine.Snapshot().Counter)
}
