package service

import (
	"context"
	"errors"

	"elapsed_timer/internal/link"
	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/metrics"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/protocol"
	"elapsed_timer/internal/repository"
)

// RemoteService applies duration phrases typed into the remote web UI.
type RemoteService struct {
	target    Dispatcher
	parser    *protocol.DurationParser
	transport link.Transport // may be nil when no peer is attached
	rec       metrics.Recorder
	log       *logger.Logger

	// base, when set, is re-read before each partial SetDuration.
	base      repository.KVStore
	namespace string
}

func NewRemoteService(target Dispatcher, parser *protocol.DurationParser, t link.Transport, rec metrics.Recorder, log *logger.Logger) *RemoteService {
	if rec == nil {
		rec = metrics.NopRecorder{}
	}
	return &RemoteService{
		target:    target,
		parser:    parser,
		transport: t,
		rec:       rec,
		log:       log.Named("remote"),
	}
}

// MergeFromStore makes partial phrases fill their unscanned fields from the
// counter last committed to store instead of the engine's in-memory copy.
func (s *RemoteService) MergeFromStore(store repository.KVStore, namespace string) *RemoteService {
	if namespace == "" {
		namespace = repository.DefaultNamespace
	}
	s.base = store
	s.namespace = namespace
	return s
}

// Apply parses payload and applies the result. A partially scanned phrase
// is still applied and its ParseFault returned alongside the command. Resets
// are also forwarded to the peer as "RESET"; a failed forward is only logged.
func (s *RemoteService) Apply(ctx context.Context, payload string) (models.Command, error) {
	cmd, perr := s.parser.Parse(payload)
	if perr != nil {
		s.log.Warnw("remote_parse_fault", "err", perr, "payload", payload, "mode", s.parser.Mode())
	}
	if cmd.IsNoop() {
		return cmd, perr
	}

	if cmd.Kind == models.CommandSetDuration && cmd.Fields != models.AllFields && s.base != nil {
		stored, err := repository.LoadCounter(ctx, s.base, s.namespace)
		if err != nil {
			s.log.Warnw("remote_base_read_failed", "err", err)
		} else {
			cmd.Duration = cmd.Duration.Merge(stored, cmd.Fields)
			cmd.Fields = models.AllFields
		}
	}

	if err := s.target.Dispatch(ctx, cmd); err != nil {
		return cmd, errors.Join(perr, err)
	}

	if cmd.Kind == models.CommandReset && s.transport != nil {
		if err := s.transport.Send(ctx, protocol.ResetPhrase); err != nil {
			s.rec.IncLinkFault("send")
			s.log.Warnw("link_send_failed", "err", &models.TransportFault{Op: "send", Err: err})
		} else {
			s.rec.IncLinkMessage("tx")
		}
	}
	return cmd, perr
}
