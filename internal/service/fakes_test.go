package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"elapsed_timer/internal/link"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/repository"
)

// memStore is an in-memory repository.KVStore that counts commits.
type memStore struct {
	mu        sync.Mutex
	data      map[string]int32
	commits   int
	commitErr error
	openErr   error
}

func newMemStore() *memStore {
	return &memStore{data: map[string]int32{}}
}

func (s *memStore) Open(ctx context.Context, ns string, mode repository.OpenMode) (repository.KVHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &memHandle{store: s, ns: ns, mode: mode, pending: map[string]int32{}}, nil
}

func (s *memStore) commitCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commits
}

func (s *memStore) failCommits(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commitErr = err
}

// counter returns what a cold reader of the store would see.
func (s *memStore) counter(ns string) models.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.Counter{
		Days:    int(s.data[ns+"/"+repository.KeyDays]),
		Hours:   int(s.data[ns+"/"+repository.KeyHours]),
		Minutes: int(s.data[ns+"/"+repository.KeyMinutes]),
		Seconds: int(s.data[ns+"/"+repository.KeySeconds]),
	}
}

type memHandle struct {
	store   *memStore
	ns      string
	mode    repository.OpenMode
	pending map[string]int32
}

func (h *memHandle) GetInt(ctx context.Context, key string) (int32, error) {
	if v, ok := h.pending[key]; ok {
		return v, nil
	}
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	v, ok := h.store.data[h.ns+"/"+key]
	if !ok {
		return 0, repository.ErrKeyNotFound
	}
	return v, nil
}

func (h *memHandle) GetInts(ctx context.Context, keys ...string) (map[string]int32, error) {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	out := make(map[string]int32, len(keys))
	for _, k := range keys {
		if v, ok := h.pending[k]; ok {
			out[k] = v
		} else if v, ok := h.store.data[h.ns+"/"+k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (h *memHandle) SetInt(ctx context.Context, key string, v int32) error {
	if h.mode != repository.ReadWrite {
		return repository.ErrReadOnly
	}
	h.pending[key] = v
	return nil
}

func (h *memHandle) Commit(ctx context.Context) error {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()
	if h.store.commitErr != nil {
		return h.store.commitErr
	}
	for k, v := range h.pending {
		h.store.data[h.ns+"/"+k] = v
	}
	h.pending = map[string]int32{}
	h.store.commits++
	return nil
}

func (h *memHandle) Close() error { return nil }

// memEvents records appended events.
type memEvents struct {
	mu     sync.Mutex
	events []models.TimerEvent
}

func (e *memEvents) Append(ctx context.Context, ev models.TimerEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, ev)
	return nil
}

func (e *memEvents) List(ctx context.Context, q repository.EventFilter) ([]models.TimerEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]models.TimerEvent(nil), e.events...), nil
}

func (e *memEvents) types() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, ev := range e.events {
		out = append(out, ev.Type)
	}
	return out
}

// recordingDispatcher captures dispatched commands.
type recordingDispatcher struct {
	mu   sync.Mutex
	cmds []models.Command
	err  error
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, cmd models.Command) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cmds = append(d.cmds, cmd)
	return d.err
}

func (d *recordingDispatcher) commands() []models.Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.Command(nil), d.cmds...)
}

// scriptedTransport replays queued receive results, then reports ErrNoData.
type scriptedTransport struct {
	mu      sync.Mutex
	inbox   []recvResult
	sent    []string
	sendErr error
}

type recvResult struct {
	msg string
	err error
}

func (t *scriptedTransport) Send(ctx context.Context, msg string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.sendErr != nil {
		return t.sendErr
	}
	t.sent = append(t.sent, msg)
	return nil
}

func (t *scriptedTransport) Receive(ctx context.Context) (string, error) {
	t.mu.Lock()
	if len(t.inbox) > 0 {
		r := t.inbox[0]
		t.inbox = t.inbox[1:]
		t.mu.Unlock()
		return r.msg, r.err
	}
	t.mu.Unlock()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(time.Millisecond):
		return "", link.ErrNoData
	}
}

func (t *scriptedTransport) Close() error { return nil }

func (t *scriptedTransport) sentMessages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.sent...)
}

var errBoom = errors.New("boom")
