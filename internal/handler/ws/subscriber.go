package ws

import (
	"errors"
	"time"

	"SensorStream/internal/service/broadcast"
	applogger "SensorStream/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Visualize registers a visualization client and keeps it alive with
// heartbeats until it disconnects or a write fails.
func (h *Handler) Visualize(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("visualization upgrade failed", applogger.Error(err))
		return nil
	}
	sub := h.registry.Register(conn)

	// Clients never send data; reading is still needed to process control
	// frames and to notice a peer close.
	readErr := make(chan error, 1)
	go func() {
		conn.SetReadLimit(512)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				readErr <- err
				return
			}
		}
	}()

	ticker := time.NewTicker(h.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case err := <-readErr:
			h.registry.Unregister(sub)
			_ = conn.Close()
			if !isPeerClose(err) {
				h.l.Debug("visualization read ended", applogger.Uint64("subscriber", sub.ID()), applogger.Error(err))
			}
			return nil
		case <-ticker.C:
			err := sub.Send(h.heartbeat)
			if err == nil {
				continue
			}
			if errors.Is(err, broadcast.ErrClosed) {
				// evicted by a broadcast or closed on shutdown
				<-readErr
				return nil
			}
			h.l.Error("heartbeat failed", applogger.Uint64("subscriber", sub.ID()), applogger.Error(err))
			h.registry.Unregister(sub)
			h.closeWith(conn, websocket.CloseInternalServerErr, "internal error")
			<-readErr
			return nil
		}
	}
}
