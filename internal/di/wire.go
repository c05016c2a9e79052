//go:build wireinject
// +build wireinject

package di

import (
	"SensorStream/pkg/config"
	"SensorStream/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application with
// a cleanup that releases the infrastructure clients.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, func(), error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCache,

		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Repositories
		ProvideReadingPublisher,
		ProvideSampleStore,
		ProvideVideoStore,
		ProvideVideoIndex,

		// Services and use cases
		ProvideRegistry,
		ProvideAcquisition,
		ProvideIngestPipeline,

		// Transport
		ProvideWSHandler,
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil, nil
}
