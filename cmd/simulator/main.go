package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SensorStream/internal/service/simulator"
	applogger "SensorStream/pkg/logger"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "server base URL")
	interval := flag.Duration("interval", 100*time.Millisecond, "gap between samples")
	count := flag.Int("count", 0, "samples to send (0 = until interrupted)")
	noise := flag.Float64("noise", 0.2, "uniform noise per axis")
	start := flag.Bool("start", true, "start acquisition before streaming")
	save := flag.Bool("save", false, "stop and save the buffer when done")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	l, err := applogger.New(&applogger.Config{Level: *level, Format: "console", Output: "stdout"})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := simulator.New(simulator.Config{
		BaseURL:  *baseURL,
		Interval: *interval,
		Count:    *count,
		Noise:    *noise,
	}, l)

	if *start {
		if err := c.Start(ctx); err != nil {
			l.Error("start acquisition failed", applogger.Error(err))
			os.Exit(1)
		}
	}

	sent, err := c.Run(ctx)
	if err != nil {
		l.Error("simulator stopped", applogger.Error(err))
	}
	l.Info("samples sent", applogger.Int("count", sent))

	// The run context may already be cancelled by the signal.
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if st, err := c.Status(sctx); err == nil {
		l.Info("server status", applogger.String("state", st.State),
			applogger.Int("buffered", st.Buffered), applogger.Int("subscribers", st.Subscribers))
	}

	if *save {
		if err := c.Stop(sctx); err != nil {
			l.Error("stop acquisition failed", applogger.Error(err))
			os.Exit(1)
		}
		name, err := c.Save(sctx)
		if err != nil {
			l.Error("save failed", applogger.Error(err))
			os.Exit(1)
		}
		l.Info("buffer saved", applogger.String("name", name))
	}
}
