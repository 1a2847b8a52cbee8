package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// OpenMode selects read-only or read-write access to a namespace.
type OpenMode int

const (
	ReadOnly OpenMode = iota
	ReadWrite
)

func (m OpenMode) String() string {
	if m == ReadWrite {
		return "readwrite"
	}
	return "readonly"
}

var (
	ErrKeyNotFound    = errors.New("key not found")
	ErrReadOnly       = errors.New("handle is read-only")
	ErrHandleClosed   = errors.New("handle is closed")
	errEmptyNamespace = errors.New("namespace is empty")
	errEmptyKey       = errors.New("key is empty")
)

const (
	selectKVSQL = `SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`

	selectKVManySQL = `SELECT key, value FROM kv_entries WHERE namespace = ? AND key IN `

	upsertKVSQL = `
		INSERT INTO kv_entries (namespace, key, value, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at
	`
)

// KVSQLite stores namespaced int32 values in the kv_entries table.
type KVSQLite struct {
	db *sql.DB
}

func NewKVSQLite(db *sql.DB) *KVSQLite {
	return &KVSQLite{db: db}
}

var _ KVStore = (*KVSQLite)(nil)

// Open returns a handle on namespace. It fails if the database is unreachable.
func (s *KVSQLite) Open(ctx context.Context, namespace string, mode OpenMode) (KVHandle, error) {
	if namespace == "" {
		return nil, errEmptyNamespace
	}
	if err := s.db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("open namespace %q (%s): %w", namespace, mode, err)
	}
	return &kvHandle{
		db:        s.db,
		namespace: namespace,
		mode:      mode,
		pending:   make(map[string]int32),
	}, nil
}

type kvHandle struct {
	db        *sql.DB
	namespace string
	mode      OpenMode
	pending   map[string]int32
	closed    bool
}

// GetInt returns a buffered write if there is one, else the committed value.
func (h *kvHandle) GetInt(ctx context.Context, key string) (int32, error) {
	if h.closed {
		return 0, ErrHandleClosed
	}
	if key == "" {
		return 0, errEmptyKey
	}
	if v, ok := h.pending[key]; ok {
		return v, nil
	}
	var v int32
	err := h.db.QueryRowContext(ctx, selectKVSQL, h.namespace, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrKeyNotFound
		}
		return 0, fmt.Errorf("select %s/%s: %w", h.namespace, key, err)
	}
	return v, nil
}

// GetInts reads every key that has no buffered write in a single SELECT,
// so a concurrent Commit is seen entirely or not at all.
func (h *kvHandle) GetInts(ctx context.Context, keys ...string) (map[string]int32, error) {
	if h.closed {
		return nil, ErrHandleClosed
	}
	out := make(map[string]int32, len(keys))
	args := []any{h.namespace}
	for _, k := range keys {
		if k == "" {
			return nil, errEmptyKey
		}
		if v, ok := h.pending[k]; ok {
			out[k] = v
			continue
		}
		args = append(args, k)
	}
	if len(args) == 1 {
		return out, nil
	}

	query := selectKVManySQL + "(" + strings.TrimSuffix(strings.Repeat("?,", len(args)-1), ",") + ")"
	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", h.namespace, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			k string
			v int32
		)
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", h.namespace, err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", h.namespace, err)
	}
	return out, nil
}

func (h *kvHandle) SetInt(_ context.Context, key string, value int32) error {
	if h.closed {
		return ErrHandleClosed
	}
	if h.mode != ReadWrite {
		return ErrReadOnly
	}
	if key == "" {
		return errEmptyKey
	}
	h.pending[key] = value
	return nil
}

// Commit writes every buffered key in one transaction. On failure nothing
// is written and the buffer is kept so the caller may retry.
func (h *kvHandle) Commit(ctx context.Context) error {
	if h.closed {
		return ErrHandleClosed
	}
	if h.mode != ReadWrite {
		return ErrReadOnly
	}
	if len(h.pending) == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin commit transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	keys := make([]string, 0, len(h.pending))
	for k := range h.pending {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	now := time.Now().UTC()
	for _, k := range keys {
		if _, err := tx.ExecContext(ctx, upsertKVSQL, h.namespace, k, h.pending[k], now); err != nil {
			return fmt.Errorf("upsert %s/%s: %w", h.namespace, k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	clear(h.pending)
	return nil
}

// Close drops uncommitted writes.
func (h *kvHandle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	h.pending = nil
	return nil
}
