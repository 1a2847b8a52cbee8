package link

import (
	"context"
	"sync"
	"time"
)

const pipeBuffer = 16

// PipeEnd is one side of an in-process link, used when master and slave run
// in the same process and in tests.
type PipeEnd struct {
	in          <-chan string
	out         chan<- string
	done        chan struct{}
	peerDone    <-chan struct{}
	closeOnce   sync.Once
	readTimeout time.Duration
}

// NewPipe returns two connected ends.
func NewPipe(readTimeout time.Duration) (*PipeEnd, *PipeEnd) {
	if readTimeout <= 0 {
		readTimeout = time.Second
	}
	ab := make(chan string, pipeBuffer)
	ba := make(chan string, pipeBuffer)
	aDone := make(chan struct{})
	bDone := make(chan struct{})

	a := &PipeEnd{in: ba, out: ab, done: aDone, peerDone: bDone, readTimeout: readTimeout}
	b := &PipeEnd{in: ab, out: ba, done: bDone, peerDone: aDone, readTimeout: readTimeout}
	return a, b
}

func (e *PipeEnd) Send(ctx context.Context, msg string) error {
	select {
	case <-e.done:
		return ErrClosed
	case <-e.peerDone:
		return ErrClosed
	default:
	}
	select {
	case e.out <- msg:
		return nil
	case <-e.done:
		return ErrClosed
	case <-e.peerDone:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *PipeEnd) Receive(ctx context.Context) (string, error) {
	select {
	case <-e.done:
		return "", ErrClosed
	case msg := <-e.in:
		return msg, nil
	default:
	}

	timer := time.NewTimer(e.readTimeout)
	defer timer.Stop()

	select {
	case msg := <-e.in:
		return msg, nil
	case <-timer.C:
		return "", ErrNoData
	case <-e.done:
		return "", ErrClosed
	case <-e.peerDone:
		return "", ErrClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (e *PipeEnd) Close() error {
	e.closeOnce.Do(func() { close(e.done) })
	return nil
}
