package service

import (
	"context"
	"errors"
	"time"

	"elapsed_timer/internal/link"
	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/metrics"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/protocol"
)

const (
	defaultReceiveBackoff = 10 * time.Millisecond
	// maxReceiveBackoff matches the link read timeout.
	maxReceiveBackoff = time.Second
)

// Dispatcher accepts interpreted commands.
type Dispatcher interface {
	Dispatch(ctx context.Context, cmd models.Command) error
}

// CommandListener is the slave's receive loop: link messages in, engine
// commands out.
type CommandListener struct {
	transport link.Transport
	target    Dispatcher
	rec       metrics.Recorder
	log       *logger.Logger
	backoff    time.Duration
	maxBackoff time.Duration
}

func NewCommandListener(t link.Transport, target Dispatcher, rec metrics.Recorder, log *logger.Logger) *CommandListener {
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	return &CommandListener{
		transport: t,
		target:    target,
		rec:       rec,
		log:       log.Named("listener"),
		backoff:    defaultReceiveBackoff,
		maxBackoff: maxReceiveBackoff,
	}
}

// Run receives until ctx is canceled. Link faults never end the loop: the
// delay between retries doubles up to maxBackoff, and only the first fault
// of a run of failures is logged as a warning.
func (l *CommandListener) Run(ctx context.Context) {
	delay := l.backoff
	failures := 0
	for {
		if ctx.Err() != nil {
			return
		}

		msg, err := l.transport.Receive(ctx)
		switch {
		case err == nil, errors.Is(err, link.ErrNoData):
			if failures > 0 {
				l.log.Infow("link_receive_recovered", "failures", failures)
				failures = 0
				delay = l.backoff
			}
			if err == nil {
				l.handle(ctx, msg)
			}
		case ctx.Err() != nil:
			return
		default:
			fault := &models.TransportFault{Op: "receive", Err: err}
			l.rec.IncLinkFault("receive")
			failures++
			if failures == 1 {
				l.log.Warnw("link_receive_failed", "err", fault)
			} else {
				l.log.Debugw("link_receive_failed", "err", fault, "failures", failures, "retry_in", delay)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
			delay = min(delay*2, l.maxBackoff)
		}
	}
}

func (l *CommandListener) handle(ctx context.Context, msg string) {
	l.rec.IncLinkMessage("rx")
	cmd := protocol.ParseControl(msg)
	if cmd.IsNoop() {
		l.log.Debugw("link_message_ignored", "msg", msg)
		return
	}
	l.log.Infow("link_command", "msg", msg, "kind", cmd.Kind)
	if err := l.target.Dispatch(ctx, cmd); err != nil {
		l.log.Errorw("dispatch_failed", "err", err, "kind", cmd.Kind)
	}
}
