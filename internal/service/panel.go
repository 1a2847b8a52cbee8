package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"elapsed_timer/internal/link"
	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/metrics"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/protocol"

	"github.com/jonboulle/clockwork"
)

const defaultPollInterval = 100 * time.Millisecond

// Button is a momentary switch.
type Button interface {
	Pressed() (bool, error)
}

// SysfsButton reads an exported, active-low GPIO line.
type SysfsButton struct {
	path string
}

// NewSysfsButton points at <root>/gpio<pin>/value. The pin must already be
// exported and configured as an input.
func NewSysfsButton(root string, pin int) *SysfsButton {
	return &SysfsButton{path: filepath.Join(root, fmt.Sprintf("gpio%d", pin), "value")}
}

func (b *SysfsButton) Pressed() (bool, error) {
	raw, err := os.ReadFile(b.path)
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(string(raw)) {
	case "0":
		return true, nil
	case "1":
		return false, nil
	default:
		return false, fmt.Errorf("gpio %s: unexpected value %q", b.path, raw)
	}
}

// PanelOptions configures a Panel. Zero values pick the defaults.
type PanelOptions struct {
	PollInterval time.Duration
	Clock        clockwork.Clock
	Recorder     metrics.Recorder
	Logger       *logger.Logger
}

// Panel is the master node: two buttons in, control phrases out.
type Panel struct {
	power     Button
	reset     Button
	transport link.Transport
	interval  time.Duration
	clock     clockwork.Clock
	rec       metrics.Recorder
	log       *logger.Logger

	powerOn   bool
	powerHeld bool
	resetHeld bool
}

func NewPanel(power, reset Button, t link.Transport, opts PanelOptions) *Panel {
	p := &Panel{
		power:     power,
		reset:     reset,
		transport: t,
		interval:  opts.PollInterval,
		clock:     opts.Clock,
		rec:       opts.Recorder,
		log:       opts.Logger.Named("panel"),
	}
	if p.interval <= 0 {
		p.interval = defaultPollInterval
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.rec == nil {
		p.rec = metrics.NopRecorder{}
	}
	return p
}

// PowerOn reports the current power flag.
func (p *Panel) PowerOn() bool { return p.powerOn }

// Run polls the buttons until ctx is canceled.
func (p *Panel) Run(ctx context.Context) {
	t := p.clock.NewTicker(p.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.Chan():
			p.Poll(ctx)
		}
	}
}

// Poll samples both buttons once. An action fires when a button that was
// held on the previous poll is seen released.
func (p *Panel) Poll(ctx context.Context) {
	if p.released(p.power, &p.powerHeld, "power") {
		p.powerOn = !p.powerOn
		kind := models.CommandStop
		if p.powerOn {
			kind = models.CommandStart
		}
		p.send(ctx, kind)
	}
	if p.released(p.reset, &p.resetHeld, "reset") {
		p.send(ctx, models.CommandReset)
	}
}

func (p *Panel) released(b Button, held *bool, name string) bool {
	pressed, err := b.Pressed()
	if err != nil {
		p.log.Warnw("button_read_failed", "button", name, "err", err)
		return false
	}
	fire := *held && !pressed
	*held = pressed
	return fire
}

func (p *Panel) send(ctx context.Context, kind models.CommandKind) {
	phrase, _ := protocol.ControlPhrase(kind)
	if err := p.transport.Send(ctx, phrase); err != nil {
		p.rec.IncLinkFault("send")
		p.log.Warnw("link_send_failed", "err", &models.TransportFault{Op: "send", Err: err}, "msg", phrase)
		return
	}
	p.rec.IncLinkMessage("tx")
	p.log.Infow("link_sent", "msg", phrase, "power_on", p.powerOn)
}

// Monitor logs whatever the peer sends back until ctx is canceled.
func (p *Panel) Monitor(ctx context.Context) {
	for ctx.Err() == nil {
		msg, err := p.transport.Receive(ctx)
		switch {
		case err == nil:
			p.rec.IncLinkMessage("rx")
			p.log.Infow("link_received", "msg", msg)
		case errors.Is(err, link.ErrNoData):
		case ctx.Err() != nil:
			return
		default:
			p.rec.IncLinkFault("receive")
			p.log.Warnw("link_receive_failed", "err", &models.TransportFault{Op: "receive", Err: err})
			select {
			case <-ctx.Done():
				return
			case <-p.clock.After(defaultReceiveBackoff):
			}
		}
	}
}
