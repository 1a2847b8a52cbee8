package link

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

// SerialConfig describes a UART link. Frames are 8N1.
type SerialConfig struct {
	Port        string
	Baud        int
	ReadTimeout time.Duration
}

// SerialTransport is a Transport over a serial port.
type SerialTransport struct {
	port io.ReadWriteCloser
	wmu  sync.Mutex
	rmu  sync.Mutex
	buf  []byte
}

// OpenSerial opens and configures the port.
func OpenSerial(cfg SerialConfig) (*SerialTransport, error) {
	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", cfg.Port, err)
	}
	timeout := cfg.ReadTimeout
	if timeout <= 0 {
		timeout = time.Second
	}
	if err := port.SetReadTimeout(timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("set read timeout on %q: %w", cfg.Port, err)
	}
	return newSerialTransport(port), nil
}

func newSerialTransport(port io.ReadWriteCloser) *SerialTransport {
	return &SerialTransport{port: port, buf: make([]byte, maxMessageSize)}
}

func (t *SerialTransport) Send(ctx context.Context, msg string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.wmu.Lock()
	defer t.wmu.Unlock()

	n, err := t.port.Write([]byte(msg))
	if err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	if n != len(msg) {
		return fmt.Errorf("serial write: short write %d of %d bytes", n, len(msg))
	}
	return nil
}

// Receive returns whatever arrived within one read timeout as one message.
func (t *SerialTransport) Receive(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.rmu.Lock()
	defer t.rmu.Unlock()

	n, err := t.port.Read(t.buf)
	if err != nil {
		if err == io.EOF {
			return "", ErrClosed
		}
		return "", fmt.Errorf("serial read: %w", err)
	}
	if n == 0 {
		return "", ErrNoData
	}
	return string(t.buf[:n]), nil
}

func (t *SerialTransport) Close() error {
	return t.port.Close()
}
