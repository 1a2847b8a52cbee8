package handlers

import (
	"context"
	"sync"
	"time"

	"elapsed_timer/internal/logger"
	"elapsed_timer/internal/models"
	"elapsed_timer/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockTimer struct {
	startErr    error
	stopErr     error
	resetErr    error
	setErr      error
	startCalled int
	stopCalled  int
	resetCalled int
	setCalls    int
	lastSet     models.Counter
	lastMask    models.FieldMask
}

func (m *mockTimer) Start(ctx context.Context) error {
	m.startCalled++
	return m.startErr
}
func (m *mockTimer) Stop(ctx context.Context) error {
	m.stopCalled++
	return m.stopErr
}
func (m *mockTimer) Reset(ctx context.Context) error {
	m.resetCalled++
	return m.resetErr
}
func (m *mockTimer) SetDuration(ctx context.Context, c models.Counter, mask models.FieldMask) error {
	m.setCalls++
	m.lastSet = c
	m.lastMask = mask
	return m.setErr
}
func (m *mockTimer) Dispatch(ctx context.Context, cmd models.Command) error { return nil }

type mockMonitoring struct {
	state models.Snapshot
	err   error
}

func (m *mockMonitoring) GetState(ctx context.Context) (models.Snapshot, error) {
	return m.state, m.err
}

type mockEventLog struct {
	resp      []models.TimerEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.TimerEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	m.lastLimit = f.Limit
	return m.resp, m.err
}

type mockRemote struct {
	mu       sync.Mutex
	cmd      models.Command
	err      error
	payloads []string
}

func (m *mockRemote) Apply(ctx context.Context, payload string) (models.Command, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payloads = append(m.payloads, payload)
	return m.cmd, m.err
}

func (m *mockRemote) received() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.payloads...)
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	h := NewHandler(s, nil, nil, logger.Nop())
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}
