package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/zeusync/tileboard/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Renderers are served from anywhere during development.
	CheckOrigin: func(*http.Request) bool { return true },
}

const maxCommandSize = 64 * 1024

// WebSocketHandler bridges browser renderers onto a session.
type WebSocketHandler struct {
	session      *Session
	writeTimeout time.Duration
	log          log.Log
}

func NewWebSocketHandler(session *Session, writeTimeout time.Duration, logger log.Log) *WebSocketHandler {
	return &WebSocketHandler{
		session:      session,
		writeTimeout: writeTimeout,
		log:          logger.With(log.String("component", "websocket")),
	}
}

func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("upgrade failed", log.String("remote_addr", r.RemoteAddr), log.Error(err))
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxCommandSize)

	c, err := h.session.attach(r.Context(), "websocket")
	if err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()))
		return
	}
	logger := h.log.With(log.String("client_id", c.id), log.String("remote_addr", r.RemoteAddr))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		err := h.writeLoop(conn, c)
		// Unblocks the reader whichever side ended first.
		_ = conn.Close()
		if err != nil {
			logger.Debug("write loop ended", log.Error(err))
			for range c.send {
			}
		}
	}()

	if err := h.readLoop(r.Context(), conn, c.id); err != nil {
		logger.Debug("read loop ended", log.Error(err))
	}
	h.session.detach(c)
	<-writerDone
}

func (h *WebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, clientID string) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return errors.Wrap(err, "read command")
		}
		if err := h.session.SubmitRaw(ctx, clientID, data); err != nil {
			return errors.Wrap(err, "submit command")
		}
	}
}

func (h *WebSocketHandler) writeLoop(conn *websocket.Conn, c *client) error {
	for data := range c.send {
		if h.writeTimeout > 0 {
			_ = conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return errors.Wrap(err, "write message")
		}
	}
	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return nil
}
