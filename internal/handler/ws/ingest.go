package ws

import (
	"errors"

	"SensorStream/internal/domain/models"
	applogger "SensorStream/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Ingest reads samples from the producer until it disconnects. Malformed
// samples are answered with ValidationFailedMessage; rate-limited and
// discarded samples get no reply. Any other failure closes the socket with
// 1011.
func (h *Handler) Ingest(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("ingest upgrade failed", applogger.Error(err))
		return nil
	}
	if h.cfg.ReadLimit > 0 {
		conn.SetReadLimit(h.cfg.ReadLimit)
	}

	h.track(conn)
	defer h.untrack(conn)

	remote := conn.RemoteAddr().String()
	h.l.Info("sensor producer connected", applogger.String("remote", remote))
	ctx := c.Request().Context()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if isPeerClose(err) {
				h.l.Info("sensor producer disconnected", applogger.String("remote", remote))
				_ = conn.Close()
				return nil
			}
			h.l.Error("ingest read failed", applogger.String("remote", remote), applogger.Error(err))
			h.closeWith(conn, websocket.CloseInternalServerErr, "internal error")
			return nil
		}

		_, err = h.ingester.Process(ctx, payload)
		switch {
		case err == nil,
			errors.Is(err, models.ErrRateLimited),
			errors.Is(err, models.ErrNotAcquiring):
			continue
		case models.IsValidation(err):
			if werr := conn.WriteMessage(websocket.TextMessage, []byte(ValidationFailedMessage)); werr != nil {
				h.l.Warn("ingest reply failed", applogger.String("remote", remote), applogger.Error(werr))
				_ = conn.Close()
				return nil
			}
		default:
			h.l.Error("ingest failed", applogger.String("remote", remote), applogger.Error(err))
			h.closeWith(conn, websocket.CloseInternalServerErr, "internal error")
			return nil
		}
	}
}
