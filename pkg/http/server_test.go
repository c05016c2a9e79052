package http

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
}

func TestServer_ServesRoutesAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := NewServer(pingHandler{}, WithHost("127.0.0.1"), WithPort(0), WithRegistry(reg))
	require.NoError(t, srv.Start())
	defer func() { require.NoError(t, srv.Stop(context.Background())) }()

	base := "http://" + srv.Addr().String()

	resp, err := http.Get(base + "/ping")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "pong", string(body))
	assert.NotEmpty(t, resp.Header.Get(echo.HeaderXRequestID))

	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `http_requests_total{method="GET",route="/ping",status="200"} 1`)
}

func TestServer_StartReportsBindError(t *testing.T) {
	first := NewServer(nil, WithHost("127.0.0.1"), WithPort(0), WithRegistry(prometheus.NewRegistry()))
	require.NoError(t, first.Start())
	defer first.Stop(context.Background())

	second := NewServer(nil,
		WithHost("127.0.0.1"),
		WithPort(first.Addr().(*net.TCPAddr).Port),
		WithRegistry(prometheus.NewRegistry()),
	)
	assert.Error(t, second.Start())
}
