package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"elapsed_timer/internal/logger"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// StatusSink fans a status message out to connected displays.
type StatusSink interface {
	Broadcast(msg string)
}

// Broadcaster periodically pushes the counter's total seconds to a sink.
type Broadcaster struct {
	scheduler gocron.Scheduler
	monitor   Monitoring
	sink      StatusSink
	log       *logger.Logger
}

// NewBroadcaster schedules a push every interval. A nil clock means real time.
func NewBroadcaster(monitor Monitoring, sink StatusSink, interval time.Duration, clock clockwork.Clock, log *logger.Logger) (*Broadcaster, error) {
	opts := []gocron.SchedulerOption{}
	if clock != nil {
		opts = append(opts, gocron.WithClock(clock))
	}
	s, err := gocron.NewScheduler(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	b := &Broadcaster{
		scheduler: s,
		monitor:   monitor,
		sink:      sink,
		log:       log.Named("broadcast"),
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { b.Push(context.Background()) }),
		gocron.WithName("status-broadcast"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("failed to create broadcast job: %w", err)
	}
	return b, nil
}

func (b *Broadcaster) Start() {
	b.log.Infow("broadcaster_started")
	b.scheduler.Start()
}

func (b *Broadcaster) Stop() error {
	b.log.Infow("broadcaster_stopped")
	return b.scheduler.Shutdown()
}

// Push sends the current total seconds once.
func (b *Broadcaster) Push(ctx context.Context) {
	st, err := b.monitor.GetState(ctx)
	if err != nil {
		b.log.Warnw("broadcast_state_failed", "err", err)
		return
	}
	b.sink.Broadcast(StatusMessage(st.TotalSeconds))
}

// StatusMessage is the display payload: total seconds as a decimal string.
func StatusMessage(total int64) string {
	return strconv.FormatInt(total, 10)
}
