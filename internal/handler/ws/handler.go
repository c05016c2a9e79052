package ws

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"sync"
	"syscall"
	"time"

	"SensorStream/internal/domain/models"
	"SensorStream/internal/service/broadcast"
	applogger "SensorStream/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// ValidationFailedMessage is sent to the producer for every malformed sample.
const ValidationFailedMessage = "Error: Data validation failed."

// Ingester processes one inbound sample payload.
type Ingester interface {
	Process(ctx context.Context, payload []byte) (models.Reading, error)
}

// Config tunes the socket handlers.
type Config struct {
	HeartbeatInterval time.Duration
	WriteTimeout      time.Duration
	ReadLimit         int64
}

// Handler serves the ingest socket (/ws) and the visualization socket
// (/ws_visualization).
type Handler struct {
	ingester  Ingester
	registry  *broadcast.Registry
	upgrader  websocket.Upgrader
	cfg       Config
	heartbeat []byte
	l         *applogger.Logger

	// ingest sockets are hijacked, so the HTTP server cannot close them.
	mu      sync.Mutex
	ingests map[*websocket.Conn]struct{}
}

func NewHandler(ingester Ingester, registry *broadcast.Registry, cfg Config, l *applogger.Logger) *Handler {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	if l == nil {
		l = applogger.NewNop()
	}
	hb, _ := json.Marshal(models.NewHeartbeatEvent())
	return &Handler{
		ingester: ingester,
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// the dashboard may be served from another origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		cfg:       cfg,
		heartbeat: hb,
		l:         l,
		ingests:   make(map[*websocket.Conn]struct{}),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws", h.Ingest)
	e.GET("/ws_visualization", h.Visualize)
}

// closeWith sends a close frame and releases conn. Only the goroutine owning
// writes on conn may call it.
func (h *Handler) closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
	_ = conn.Close()
}

func (h *Handler) track(conn *websocket.Conn) {
	h.mu.Lock()
	h.ingests[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *Handler) untrack(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.ingests, conn)
	h.mu.Unlock()
}

// CloseAll closes every open ingest socket with code. The read loops see the
// closed connection and exit as a disconnect.
func (h *Handler) CloseAll(code int, reason string) {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.ingests))
	for c := range h.ingests {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	for _, c := range conns {
		// WriteControl and Close may run concurrently with the read loop's writes.
		_ = c.WriteControl(websocket.CloseMessage, msg, time.Now().Add(h.cfg.WriteTimeout))
		_ = c.Close()
	}
}

// isPeerClose reports whether err means the session ended from the other
// side or was closed locally: a close frame, EOF, a reset or a closed socket.
func isPeerClose(err error) bool {
	var ce *websocket.CloseError
	switch {
	case errors.As(err, &ce),
		errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, websocket.ErrCloseSent),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.EPIPE):
		return true
	}
	return false
}
