// Command app serves the accelerometer ingest socket, the visualization
// fan-out and the acquisition control API.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"SensorStream/internal/di"
	"SensorStream/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		log.Printf("sensorstream: %v", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	log.Printf("env=%s port=%d backend=%s max_rate=%.1f kafka=%t redis=%t",
		cfg.Environment, cfg.Server.Port, cfg.Storage.Backend, cfg.Acquisition.MaxRate,
		cfg.Kafka.Enabled, cfg.Redis.Enabled)

	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer cleanup()
	return app.Run()
}
