package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	mid "SensorStream/internal/middleware"
	"SensorStream/pkg/config"
	xhttp "SensorStream/pkg/http"
	applogger "SensorStream/pkg/logger"

	"github.com/gorilla/websocket"
)

// Closer releases one infrastructure resource at shutdown.
type Closer struct {
	Name  string
	Close func() error
}

// SocketCloser sends a close frame to every open websocket it owns.
type SocketCloser interface {
	CloseAll(code int, reason string)
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	handler    xhttp.Handler
	pipeline   *mid.IngestPipeline
	sockets    []SocketCloser
	closers    []Closer
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	pipeline *mid.IngestPipeline,
	sockets []SocketCloser,
	closers ...Closer,
) *App {
	if l == nil {
		l = applogger.NewNop()
	}
	return &App{
		cfg:      cfg,
		l:        l,
		handler:  handler,
		pipeline: pipeline,
		sockets:  sockets,
		closers:  closers,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done or the HTTP
// server fails to start.
func (a *App) RunContext(ctx context.Context) error {
	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins...),
		xhttp.WithLogger(a.l.With(applogger.String("component", "http"))),
	)

	a.pipeline.Start(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.l.Error("http server start error", applogger.Error(err))
		a.shutdown()
		return err
	}
	a.l.Info("sensor stream started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.String("backend", a.cfg.Storage.Backend),
		applogger.Float64("max_rate", a.cfg.Acquisition.MaxRate),
		applogger.Bool("kafka", a.cfg.Kafka.Enabled),
		applogger.Bool("redis", a.cfg.Redis.Enabled),
	)

	<-ctx.Done()
	a.l.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// shutdown gracefully stops all services.
func (a *App) shutdown() {
	a.l.Info("shutting down...")

	// Stop accepting first so no socket is upgraded after the close sweep.
	if a.httpServer != nil {
		if err := a.httpServer.Stop(context.Background()); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
		}
	}

	for _, s := range a.sockets {
		s.CloseAll(websocket.CloseGoingAway, "server shutdown")
	}

	// Drains queued readings to the publisher before it is closed below.
	a.pipeline.Stop()

	a.l.FlushCollector()

	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.l.Warn("close error", applogger.String("resource", c.Name), applogger.Error(err))
		}
	}

	a.l.Info("shutdown complete")
}
