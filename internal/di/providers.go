package di

import (
	"context"
	"fmt"
	"log"
	"time"

	"SensorStream/internal/domain/repository"
	"SensorStream/internal/handler/api"
	"SensorStream/internal/handler/ws"
	mid "SensorStream/internal/middleware"
	internalrepo "SensorStream/internal/repository"
	"SensorStream/internal/service/broadcast"
	"SensorStream/internal/service/ratelimit"
	"SensorStream/internal/service/validation"
	"SensorStream/internal/usecase"
	"SensorStream/pkg/cache"
	pkgch "SensorStream/pkg/clickhouse"
	"SensorStream/pkg/config"
	xhttp "SensorStream/pkg/http"
	pkgkafka "SensorStream/pkg/kafka"
	applogger "SensorStream/pkg/logger"
	"SensorStream/pkg/metrics"
	"SensorStream/pkg/server"
)

// ProvideLogger creates the application logger. When Kafka is enabled and
// error shipping is on, error logs are aggregated and sent to the log topic.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if producer != nil && cfg.Kafka.ShipErrorLogs {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          internalrepo.LogTopic(cfg.Kafka.Topic),
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

func nopCleanup() {}

// closeCleanup adapts a Close method to a wire cleanup function.
func closeCleanup(name string, closeFn func() error) func() {
	return func() {
		if err := closeFn(); err != nil {
			log.Printf("close %s: %v", name, err)
		}
	}
}

// ProvideKafkaProducer creates a Kafka producer, or nil when Kafka is disabled.
// The cleanup closes the producer after the logger collector has flushed.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, func(), error) {
	if !cfg.Kafka.Enabled {
		return nil, nopCleanup, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers...),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}

	return producer, closeCleanup("kafka producer", producer.Close), nil
}

// ProvideReadingPublisher mirrors readings to Kafka. It returns nil when
// there is no producer.
func ProvideReadingPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.ReadingPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.Topic)
}

// ProvideClickHouseClient connects to ClickHouse and creates the readings
// table. It returns nil unless the clickhouse storage backend is selected.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, func(), error) {
	if cfg.Storage.Backend != "clickhouse" {
		return nil, nopCleanup, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	stmts := append(
		[]string{"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database},
		internalrepo.ClickHouseSchema(clickHouseTable(cfg))...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, closeCleanup("clickhouse", client.Close), nil
}

func clickHouseTable(cfg *config.Config) string {
	return cfg.ClickHouse.Database + "." + cfg.ClickHouse.Table
}

// ProvideSampleStore selects the flush backend.
func ProvideSampleStore(cfg *config.Config, chClient *pkgch.Client) (repository.SampleStore, error) {
	switch cfg.Storage.Backend {
	case "file":
		return internalrepo.NewFileStore(cfg.Storage.DataDir), nil
	case "clickhouse":
		if chClient == nil {
			return nil, fmt.Errorf("clickhouse backend selected without a client")
		}
		return internalrepo.NewClickHouseStore(chClient.DB(), clickHouseTable(cfg)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// ProvideCache creates the metadata cache: in-process memory, fronting Redis
// when Redis is enabled.
func ProvideCache(cfg *config.Config) (cache.Service, func(), error) {
	if !cfg.Redis.Enabled {
		mc := cache.NewMemoryCache(cache.WithMemoryMaxSize(cfg.Storage.VideoIndex))
		return mc, closeCleanup("cache", mc.Close), nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	remote, err := cache.NewRedisCache(ctx,
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("redis cache: %w", err)
	}
	lc := cache.NewLayeredCache(remote,
		cache.WithLayeredMemorySize(cfg.Storage.VideoIndex),
		cache.WithLayeredLocalTTL(time.Minute),
	)
	return lc, closeCleanup("cache", lc.Close), nil
}

// ProvideVideoStore stores uploads under the upload directory.
func ProvideVideoStore(cfg *config.Config) repository.VideoStore {
	return internalrepo.NewVideoStore(cfg.Storage.UploadDir)
}

// ProvideVideoIndex keeps upload metadata in the cache.
func ProvideVideoIndex(c cache.Service) repository.VideoIndex {
	return internalrepo.NewVideoIndex(c, 0)
}

// ProvideRegistry creates the visualization subscriber registry.
func ProvideRegistry(cfg *config.Config, m repository.Metrics, l *applogger.Logger) *broadcast.Registry {
	return broadcast.NewRegistry(
		broadcast.WithWriteTimeout(cfg.Acquisition.WriteTimeout),
		broadcast.WithLogger(l.With(applogger.String("component", "registry"))),
		broadcast.WithMetrics(m),
	)
}

// ProvideAcquisition creates the acquisition state holder.
func ProvideAcquisition(
	cfg *config.Config,
	registry *broadcast.Registry,
	store repository.SampleStore,
	m repository.Metrics,
	pub repository.ReadingPublisher,
	l *applogger.Logger,
) *usecase.Acquisition {
	return usecase.NewAcquisition(
		ratelimit.New(cfg.Acquisition.MaxRate),
		validation.NewSampleValidator(),
		store,
		registry,
		m,
		usecase.WithAcquisitionLogger(l.With(applogger.String("component", "acquisition"))),
		usecase.WithFlushPublisher(pub),
	)
}

// ProvideIngestPipeline builds the pipeline between the ingest socket and
// the acquisition state.
func ProvideIngestPipeline(
	cfg *config.Config,
	acq *usecase.Acquisition,
	m repository.Metrics,
	pub repository.ReadingPublisher,
	l *applogger.Logger,
) *mid.IngestPipeline {
	return mid.NewIngestPipeline(acq, m,
		mid.WithMirrorBuffer(cfg.Acquisition.MirrorBuffer),
		mid.WithPublisher(pub),
		mid.WithPipelineLogger(l.With(applogger.String("component", "pipeline"))),
	)
}

// ProvideWSHandler creates the ingest and visualization socket handler.
func ProvideWSHandler(
	cfg *config.Config,
	pipeline *mid.IngestPipeline,
	registry *broadcast.Registry,
	l *applogger.Logger,
) *ws.Handler {
	return ws.NewHandler(pipeline, registry, ws.Config{
		HeartbeatInterval: cfg.Acquisition.HeartbeatInterval,
		WriteTimeout:      cfg.Acquisition.WriteTimeout,
		ReadLimit:         cfg.Acquisition.ReadLimit,
	}, l.With(applogger.String("component", "ws")))
}

// ProvideHTTPHandler registers the socket and control routes.
func ProvideHTTPHandler(
	cfg *config.Config,
	sockets *ws.Handler,
	registry *broadcast.Registry,
	acq *usecase.Acquisition,
	videos repository.VideoStore,
	index repository.VideoIndex,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
	l *applogger.Logger,
) xhttp.Handler {
	var checks []api.HealthCheck
	if chClient != nil {
		checks = append(checks, api.HealthCheck{Name: "clickhouse", Check: chClient.Health})
	}
	if producer != nil {
		checks = append(checks, api.HealthCheck{Name: "kafka", Check: producer.Health})
	}
	return xhttp.Handlers{
		sockets,
		api.NewControlHandler(l.With(applogger.String("component", "api")), acq, registry, videos, index, api.ControlConfig{
			StaticDir:   cfg.Storage.StaticDir,
			TemplateDir: cfg.Storage.TemplateDir,
			RPS:         cfg.Control.RPS,
			Burst:       cfg.Control.Burst,
			Checks:      checks,
		}),
	}
}

// ProvideApp creates the application server. Infrastructure clients are
// released by the injector cleanup once Run returns.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	handler xhttp.Handler,
	pipeline *mid.IngestPipeline,
	registry *broadcast.Registry,
	sockets *ws.Handler,
	store repository.SampleStore,
) *server.App {
	return server.New(cfg, l, handler, pipeline,
		[]server.SocketCloser{registry, sockets},
		server.Closer{Name: "store", Close: store.Close},
	)
}
