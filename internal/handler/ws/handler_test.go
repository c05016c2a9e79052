package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http/httptest"
	"os"
	"strings"
	"syscall"
	"testing"
	"time"

	"SensorStream/internal/domain/models"
	"SensorStream/internal/middleware"
	"SensorStream/internal/service/broadcast"
	"SensorStream/internal/service/ratelimit"
	"SensorStream/internal/service/validation"
	"SensorStream/internal/usecase"
	"SensorStream/pkg/metrics"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopStore struct{}

func (nopStore) Save(_ context.Context, name string, _ []models.Reading) (string, error) {
	return name, nil
}
func (nopStore) Backend() string { return "nop" }
func (nopStore) Close() error { return nil }

type fixture struct {
	h        *Handler
	srv      *httptest.Server
	acq      *usecase.Acquisition
	registry *broadcast.Registry
}

func newFixture(t *testing.T, heartbeat time.Duration) *fixture {
	t.Helper()
	registry := broadcast.NewRegistry(broadcast.WithWriteTimeout(time.Second))
	acq := usecase.NewAcquisition(ratelimit.New(1e6), validation.NewSampleValidator(), nopStore{}, registry, metrics.Nop{})
	pipeline := middleware.NewIngestPipeline(acq, metrics.Nop{})
	return newFixtureWith(t, pipeline, registry, acq, heartbeat)
}

func newFixtureWith(t *testing.T, ing Ingester, registry *broadcast.Registry, acq *usecase.Acquisition, heartbeat time.Duration) *fixture {
	t.Helper()
	h := NewHandler(ing, registry, Config{HeartbeatInterval: heartbeat, WriteTimeout: time.Second}, nil)
	e := echo.New()
	h.RegisterRoutes(e)
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return &fixture{h: h, srv: srv, acq: acq, registry: registry}
}

func (f *fixture) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.srv.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, b, err := conn.ReadMessage()
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestIngest_BroadcastsAcceptedSample(t *testing.T) {
	f := newFixture(t, time.Hour)
	viewer := f.dial(t, "/ws_visualization")
	require.Eventually(t, func() bool { return f.registry.Len() == 1 }, time.Second, 10*time.Millisecond)

	f.acq.Start()
	assert.Equal(t, map[string]interface{}{"type": "state", "state": "started"}, readJSON(t, viewer))

	producer := f.dial(t, "/ws")
	require.NoError(t, producer.WriteMessage(websocket.TextMessage, []byte(`{"x":0.1,"y":0.2,"z":9.8,"timestamp":1}`)))

	got := readJSON(t, viewer)
	assert.Equal(t, "data", got["type"])
	assert.Equal(t, 0.1, got["x"])
	assert.Equal(t, 9.8, got["z"])
	assert.Equal(t, 1.0, got["timestamp"])
	assert.Equal(t, 1, f.acq.Len())
}

func TestIngest_RepliesToInvalidSample(t *testing.T) {
	f := newFixture(t, time.Hour)
	f.acq.Start()
	producer := f.dial(t, "/ws")

	require.NoError(t, producer.WriteMessage(websocket.TextMessage, []byte(`{"x":1,"y":2}`)))

	require.NoError(t, producer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := producer.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, ValidationFailedMessage, string(msg))
	assert.Equal(t, 0, f.acq.Len())

	// the session survives a bad sample
	require.NoError(t, producer.WriteMessage(websocket.TextMessage, []byte(`{"x":1,"y":2,"z":3,"timestamp":4}`)))
	require.Eventually(t, func() bool { return f.acq.Len() == 1 }, time.Second, 10*time.Millisecond)
}

func TestIngest_StoppedSampleIsSilent(t *testing.T) {
	f := newFixture(t, time.Hour)
	producer := f.dial(t, "/ws")

	require.NoError(t, producer.WriteMessage(websocket.TextMessage, []byte(`{"x":1,"y":2,"z":3,"timestamp":4}`)))

	require.NoError(t, producer.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := producer.ReadMessage()
	var netErr interface{ Timeout() bool }
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected no reply, got %v", err)
	assert.Equal(t, 0, f.acq.Len())
}

type failingIngester struct{}

func (failingIngester) Process(context.Context, []byte) (models.Reading, error) {
	return models.Reading{}, errors.New("boom")
}

func TestIngest_InternalErrorClosesWith1011(t *testing.T) {
	f := newFixtureWith(t, failingIngester{}, broadcast.NewRegistry(), nil, time.Hour)
	producer := f.dial(t, "/ws")

	require.NoError(t, producer.WriteMessage(websocket.TextMessage, []byte(`{}`)))

	require.NoError(t, producer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := producer.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseInternalServerErr), "got %v", err)
}

func TestVisualize_Heartbeat(t *testing.T) {
	f := newFixture(t, 50*time.Millisecond)
	viewer := f.dial(t, "/ws_visualization")

	assert.Equal(t, map[string]interface{}{"type": "heartbeat"}, readJSON(t, viewer))
}

func TestVisualize_UnregistersOnClose(t *testing.T) {
	f := newFixture(t, time.Hour)
	viewer := f.dial(t, "/ws_visualization")
	require.Eventually(t, func() bool { return f.registry.Len() == 1 }, time.Second, 10*time.Millisecond)

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	require.NoError(t, viewer.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second)))

	require.Eventually(t, func() bool { return f.registry.Len() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestVisualize_CloseAllSendsGoingAway(t *testing.T) {
	f := newFixture(t, time.Hour)
	viewer := f.dial(t, "/ws_visualization")
	require.Eventually(t, func() bool { return f.registry.Len() == 1 }, time.Second, 10*time.Millisecond)

	f.registry.CloseAll(websocket.CloseGoingAway, "server shutdown")

	require.NoError(t, viewer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := viewer.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestIngest_CloseAllSendsGoingAway(t *testing.T) {
	f := newFixture(t, time.Hour)
	producer := f.dial(t, "/ws")
	require.Eventually(t, func() bool {
		f.h.mu.Lock()
		defer f.h.mu.Unlock()
		return len(f.h.ingests) == 1
	}, time.Second, 10*time.Millisecond)

	f.h.CloseAll(websocket.CloseGoingAway, "server shutdown")

	require.NoError(t, producer.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := producer.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
	require.Eventually(t, func() bool {
		f.h.mu.Lock()
		defer f.h.mu.Unlock()
		return len(f.h.ingests) == 0
	}, time.Second, 10*time.Millisecond)
}

func TestIsPeerClose(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{&websocket.CloseError{Code: websocket.CloseNormalClosure}, true},
		{io.EOF, true},
		{io.ErrUnexpectedEOF, true},
		{fmt.Errorf("read tcp: %w", net.ErrClosed), true},
		{&net.OpError{Op: "read", Err: os.NewSyscallError("read", syscall.ECONNRESET)}, true},
		{websocket.ErrReadLimit, false},
		{errors.New("boom"), false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, isPeerClose(c.err), "%v", c.err)
	}
}
