package handlers

import (
	"context"
	"net/http"
	"time"

	"elapsed_timer/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 1 << 10 // 1 KB, one duration phrase
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConnect streams total seconds to the client and feeds its text frames
// to the remote control.
func (h *Handler) wsConnect(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Errorw("ws_upgrade_failed", "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	client := h.hub.register()
	defer h.hub.unregister(client)

	// Configure read limits and pong handler to extend read deadline.
	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	ctx := c.Request.Context()

	// Reader goroutine handles inbound phrases and detects disconnects.
	done := make(chan struct{})
	go h.startReader(ctx, conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	// Send initial state immediately.
	if err := h.sendStatus(ctx, conn); err != nil {
		h.log.Infow("ws_write_failed_initial", "err", err)
		return
	}

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.log.Infow("ws_ping_failed", "err", err)
				return
			}
		case msg := <-client.send:
			if err := writeText(conn, msg); err != nil {
				h.log.Infow("ws_write_failed", "err", err)
				return
			}
		}
	}
}

// startReader hands text frames to the remote control until the peer goes away.
func (h *Handler) startReader(ctx context.Context, conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		typ, payload, err := conn.ReadMessage()
		if err != nil {
			h.log.Infow("ws_read_closed", "err", err)
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		cmd, err := h.services.Remote.Apply(ctx, string(payload))
		if err != nil {
			h.log.Warnw("ws_remote_apply_failed", "err", err, "payload", string(payload))
			continue
		}
		h.log.Infow("ws_remote_applied", "kind", cmd.Kind, "payload", string(payload))
	}
}

// sendStatus writes the current total seconds with a write deadline.
func (h *Handler) sendStatus(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	if err != nil {
		h.log.Errorw("ws_get_state_failed", "err", err)
		return err
	}
	return writeText(conn, service.StatusMessage(st.TotalSeconds))
}

func writeText(conn *websocket.Conn, msg string) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(msg))
}
