package middleware

import (
	"context"
	"errors"
	"sync"
	"time"

	"SensorStream/internal/domain/models"
	domrepo "SensorStream/internal/domain/repository"
	applogger "SensorStream/pkg/logger"
)

// Acquirer is the acquisition surface the pipeline drives.
type Acquirer interface {
	Ingest(payload []byte, now time.Time) (models.Reading, error)
}

// IngestPipeline sits between the ingest socket and the acquisition state.
// It stamps arrival time, records the outcome of every sample, and mirrors
// buffered readings to an optional publisher without blocking ingest.
type IngestPipeline struct {
	acq       Acquirer
	publisher domrepo.ReadingPublisher
	metrics   domrepo.Metrics
	l         *applogger.Logger
	clock     func() time.Time

	bufSize int
	mirror  chan models.Reading
	stopCh  chan struct{}
	done    chan struct{}
	started bool
	mu      sync.Mutex
}

const drainTimeout = 5 * time.Second

type PipelineOption func(*IngestPipeline)

// WithMirrorBuffer sets how many readings may wait for the publisher.
func WithMirrorBuffer(n int) PipelineOption {
	return func(p *IngestPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

// WithPublisher mirrors every buffered reading to pub.
func WithPublisher(pub domrepo.ReadingPublisher) PipelineOption {
	return func(p *IngestPipeline) { p.publisher = pub }
}

// WithPipelineClock overrides the arrival clock.
func WithPipelineClock(clock func() time.Time) PipelineOption {
	return func(p *IngestPipeline) {
		if clock != nil {
			p.clock = clock
		}
	}
}

// WithPipelineLogger sets the logger.
func WithPipelineLogger(l *applogger.Logger) PipelineOption {
	return func(p *IngestPipeline) {
		if l != nil {
			p.l = l
		}
	}
}

// NewIngestPipeline creates a new pipeline.
func NewIngestPipeline(acq Acquirer, metrics domrepo.Metrics, opts ...PipelineOption) *IngestPipeline {
	p := &IngestPipeline{
		acq:     acq,
		metrics: metrics,
		l:       applogger.NewNop(),
		clock:   time.Now,
		bufSize: 1024,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.mirror = make(chan models.Reading, p.bufSize)
	return p
}

// Start launches the background publisher. Without a publisher it does nothing.
func (p *IngestPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started || p.publisher == nil {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				p.drain()
				return
			case <-ctx.Done():
				p.drain()
				return
			case r := <-p.mirror:
				if err := p.publisher.PublishReading(ctx, r); err != nil {
					p.metrics.RecordError("pipeline_publish")
					p.l.Warn("failed to mirror reading", applogger.Error(err))
					if backoff < 2*time.Second {
						backoff *= 2
					}
					select {
					case <-time.After(backoff):
					case <-p.stopCh:
						p.drain()
						return
					}
					continue
				}
				backoff = 50 * time.Millisecond
			}
		}
	}()
}

// drain publishes what is still queued, bounded by drainTimeout.
func (p *IngestPipeline) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for {
		select {
		case r := <-p.mirror:
			if err := p.publisher.PublishReading(ctx, r); err != nil {
				p.l.Warn("dropping unpublished readings",
					applogger.Int("pending", len(p.mirror)+1), applogger.Error(err))
				return
			}
		default:
			return
		}
	}
}

// Stop stops the background publisher, publishes queued readings and waits
// for it to exit.
func (p *IngestPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
	<-p.done
}

// Process hands payload to the acquisition state and classifies the result.
// Rate-limited and discarded samples are logged and counted but return the
// underlying sentinel so the caller can stay silent towards the producer.
func (p *IngestPipeline) Process(ctx context.Context, payload []byte) (models.Reading, error) {
	start := time.Now()
	r, err := p.acq.Ingest(payload, p.clock())
	switch {
	case err == nil:
		p.metrics.RecordSample(domrepo.SampleAccepted)
		p.metrics.RecordLatency("ingest", time.Since(start).Seconds())
		p.enqueue(r)
	case errors.Is(err, models.ErrRateLimited):
		p.metrics.RecordSample(domrepo.SampleRateLimited)
		p.l.Debug("sample dropped", applogger.String("reason", "rate_limited"))
	case errors.Is(err, models.ErrNotAcquiring):
		p.metrics.RecordSample(domrepo.SampleDiscarded)
	case models.IsValidation(err):
		p.metrics.RecordSample(domrepo.SampleInvalid)
		p.l.Warn("data validation failed", applogger.Error(err))
	default:
		p.metrics.RecordError("pipeline_ingest")
		p.l.Error("ingest failed", applogger.Error(err))
	}
	return r, err
}

func (p *IngestPipeline) enqueue(r models.Reading) {
	if p.publisher == nil {
		return
	}
	select {
	case p.mirror <- r:
	default:
		p.metrics.RecordError("pipeline_buffer_full")
	}
}

// Pending returns the number of readings waiting for the publisher.
func (p *IngestPipeline) Pending() int { return len(p.mirror) }
