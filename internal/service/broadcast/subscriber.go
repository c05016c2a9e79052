package broadcast

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned when sending to a subscriber that has been removed.
var ErrClosed = errors.New("subscriber closed")

// Conn is the subset of *websocket.Conn a subscriber writes through.
type Conn interface {
	SetWriteDeadline(t time.Time) error
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Subscriber is one registered visualization connection. gorilla/websocket
// allows a single concurrent writer, so every write goes through mu.
type Subscriber struct {
	id           uint64
	conn         Conn
	writeTimeout time.Duration

	mu     sync.Mutex
	closed bool
}

// ID returns the registry-assigned identifier.
func (s *Subscriber) ID() uint64 { return s.id }

// Send writes one text frame, bounded by the write timeout.
func (s *Subscriber) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.writeTimeout > 0 {
		if err := s.conn.SetWriteDeadline(time.Now().Add(s.writeTimeout)); err != nil {
			return err
		}
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// Close sends a close frame with code and reason and releases the socket.
// It is safe to call more than once.
func (s *Subscriber) Close(code int, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	msg := websocket.FormatCloseMessage(code, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return s.conn.Close()
}

func (s *Subscriber) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
