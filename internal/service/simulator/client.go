package simulator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/url"
	"strings"
	"time"

	"SensorStream/internal/domain/models"
	xhttp "SensorStream/pkg/http"
	applogger "SensorStream/pkg/logger"

	"github.com/gorilla/websocket"
)

// Config controls a simulated producer.
type Config struct {
	BaseURL        string        // http(s)://host:port of the server
	Interval       time.Duration // gap between samples
	Count          int           // samples to send; 0 streams until cancelled
	ReconnectDelay time.Duration
	Amplitude      float64 // peak acceleration in m/s^2
	Frequency      float64 // oscillation frequency in Hz
	Noise          float64 // uniform noise added to each axis
}

// Client streams synthetic accelerometer samples to the ingest socket and
// drives the control endpoints.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	http   *xhttp.Client
	rnd    *rand.Rand
	clock  func() time.Time
	l      *applogger.Logger
}

// New creates a simulator client.
func New(cfg Config, l *applogger.Logger) *Client {
	if cfg.Interval <= 0 {
		cfg.Interval = 100 * time.Millisecond
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}
	if cfg.Amplitude == 0 {
		cfg.Amplitude = 9.81
	}
	if cfg.Frequency == 0 {
		cfg.Frequency = 1
	}
	if l == nil {
		l = applogger.NewNop()
	}
	return &Client{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		http:   xhttp.NewClient(xhttp.WithBaseURL(cfg.BaseURL), xhttp.WithTimeout(10*time.Second)),
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:  time.Now,
		l:      l,
	}
}

// IngestURL returns the ws(s) URL of the ingest socket for base.
func IngestURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String(), nil
}

// Sample returns the synthetic reading for t: a sine on x, a cosine on y and
// gravity on z, each with noise. The timestamp is Unix milliseconds.
func (c *Client) Sample(t time.Time) models.Reading {
	sec := float64(t.UnixNano()) / float64(time.Second)
	phase := 2 * math.Pi * c.cfg.Frequency * sec
	return models.Reading{
		X:         c.cfg.Amplitude*math.Sin(phase) + c.noise(),
		Y:         c.cfg.Amplitude*math.Cos(phase) + c.noise(),
		Z:         9.81 + c.noise(),
		Timestamp: float64(t.UnixMilli()),
	}
}

func (c *Client) noise() float64 {
	if c.cfg.Noise == 0 {
		return 0
	}
	return (c.rnd.Float64()*2 - 1) * c.cfg.Noise
}

// Connect dials the ingest socket.
func (c *Client) Connect(ctx context.Context) (*websocket.Conn, error) {
	u, err := IngestURL(c.cfg.BaseURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, fmt.Errorf("simulator connect: %w", err)
	}
	c.l.Info("connected", applogger.String("url", u))
	return conn, nil
}

// Run streams samples until ctx is cancelled or Count samples were sent,
// reconnecting after ReconnectDelay when the connection drops. It returns the
// number of samples written.
func (c *Client) Run(ctx context.Context) (int, error) {
	sent := 0
	for {
		conn, err := c.Connect(ctx)
		if err == nil {
			var n int
			n, err = c.stream(ctx, conn, sent)
			sent += n
			_ = conn.Close()
		}
		if ctx.Err() != nil {
			return sent, nil
		}
		if err == nil {
			return sent, nil
		}
		c.l.Warn("stream interrupted, reconnecting",
			applogger.Error(err), applogger.Duration("delay", c.cfg.ReconnectDelay))

		select {
		case <-ctx.Done():
			return sent, nil
		case <-time.After(c.cfg.ReconnectDelay):
		}
	}
}

// stream writes samples on conn. A nil error means the run is finished.
func (c *Client) stream(ctx context.Context, conn *websocket.Conn, already int) (int, error) {
	readErr := make(chan error, 1)
	go func() {
		// Server replies are validation errors; log them and watch for close.
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			c.l.Warn("server message", applogger.String("message", string(b)))
		}
	}()

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	sent := 0
	for {
		if c.cfg.Count > 0 && already+sent >= c.cfg.Count {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return sent, nil
		}
		select {
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return sent, nil
		case err := <-readErr:
			var ce *websocket.CloseError
			if errors.As(err, &ce) {
				return sent, fmt.Errorf("closed by server: %d %s", ce.Code, ce.Text)
			}
			return sent, fmt.Errorf("simulator read: %w", err)
		case <-ticker.C:
			if err := conn.WriteJSON(c.Sample(c.clock())); err != nil {
				return sent, fmt.Errorf("simulator write: %w", err)
			}
			sent++
		}
	}
}

// Start begins acquisition on the server.
func (c *Client) Start(ctx context.Context) error {
	_, err := c.control(ctx, "/start")
	return err
}

// Stop ends acquisition on the server.
func (c *Client) Stop(ctx context.Context) error {
	_, err := c.control(ctx, "/stop")
	return err
}

// Save flushes the server buffer and returns the stored batch name.
func (c *Client) Save(ctx context.Context) (string, error) {
	resp, err := c.control(ctx, "/save")
	if err != nil {
		return "", err
	}
	return resp.Filename, nil
}

// Status reports the server's acquisition state.
func (c *Client) Status(ctx context.Context) (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := c.http.GetJSON(ctx, "/status", &resp); err != nil {
		return nil, fmt.Errorf("GET /status: %w", err)
	}
	return &resp, nil
}

func (c *Client) control(ctx context.Context, path string) (*models.ControlResponse, error) {
	var resp models.ControlResponse
	if err := c.http.PostJSON(ctx, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	c.l.Info("control", applogger.String("path", path), applogger.String("status", resp.Status))
	return &resp, nil
}
