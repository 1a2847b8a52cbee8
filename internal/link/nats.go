package link

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// NATSConfig describes a broker-backed link. A node publishes on TxSubject
// and listens on RxSubject; the peer uses the same subjects swapped.
type NATSConfig struct {
	URL         string
	Name        string
	TxSubject   string
	RxSubject   string
	ReadTimeout time.Duration
}

// NATSTransport is a Transport over core NATS pub/sub.
type NATSTransport struct {
	conn    *nats.Conn
	sub     *nats.Subscription
	tx      string
	timeout time.Duration
}

// DialNATS connects and subscribes to the receive subject.
func DialNATS(cfg NATSConfig) (*NATSTransport, error) {
	if cfg.TxSubject == "" || cfg.RxSubject == "" {
		return nil, errors.New("nats link needs both tx and rx subjects")
	}
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %q: %w", cfg.URL, err)
	}
	sub, err := conn.SubscribeSync(cfg.RxSubject)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("subscribe %q: %w", cfg.RxSubject, err)
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	return &NATSTransport{conn: conn, sub: sub, tx: cfg.TxSubject, timeout: timeout}, nil
}

func (t *NATSTransport) Send(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := t.conn.Publish(t.tx, []byte(msg)); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return ErrClosed
		}
		return fmt.Errorf("nats publish %q: %w", t.tx, err)
	}
	return nil
}

func (t *NATSTransport) Receive(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m, err := t.sub.NextMsg(t.timeout)
	if err != nil {
		switch {
		case errors.Is(err, nats.ErrTimeout):
			return "", ErrNoData
		case errors.Is(err, nats.ErrConnectionClosed), errors.Is(err, nats.ErrBadSubscription):
			return "", ErrClosed
		default:
			return "", fmt.Errorf("nats receive: %w", err)
		}
	}
	if len(m.Data) > maxMessageSize {
		return string(m.Data[:maxMessageSize]), nil
	}
	return string(m.Data), nil
}

func (t *NATSTransport) Close() error {
	_ = t.sub.Unsubscribe()
	t.conn.Close()
	return nil
}
