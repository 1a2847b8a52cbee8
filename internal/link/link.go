// Package link carries whole text messages between nodes. Each Send is one
// message and each Receive returns at most one message; framing beyond that
// is left to the underlying channel.
package link

import (
	"context"
	"errors"
)

var (
	// ErrNoData means the read timeout elapsed without a message.
	ErrNoData = errors.New("no data within read timeout")
	// ErrClosed means the transport can no longer be used.
	ErrClosed = errors.New("link closed")
)

// Transport is a bidirectional message channel to the peer node.
type Transport interface {
	Send(ctx context.Context, msg string) error
	// Receive blocks for at most the transport's read timeout.
	Receive(ctx context.Context) (string, error)
	Close() error
}

// maxMessageSize bounds one received message.
const maxMessageSize = 1024
