package usecase

import (
	"context"
	"sync"
	"time"

	"SensorStream/internal/domain/models"
	drepo "SensorStream/internal/domain/repository"
	"SensorStream/internal/service/ratelimit"
	applogger "SensorStream/pkg/logger"
	"SensorStream/pkg/util"
)

// SampleValidator parses a raw payload into a Reading.
type SampleValidator interface {
	Validate(payload []byte) (models.Reading, error)
}

// Acquisition owns the acquisition flag, the sample buffer and the ingest
// rate limiter. One mutex guards all three since every ingest touches each.
type Acquisition struct {
	mu      sync.Mutex
	active  bool
	buffer  []models.Reading
	limiter *ratelimit.Limiter

	validator SampleValidator
	store     drepo.SampleStore
	bus       drepo.Broadcaster
	metrics   drepo.Metrics
	publisher drepo.ReadingPublisher
	l         *applogger.Logger
	clock     func() time.Time
}

// AcquisitionOption configures Acquisition.
type AcquisitionOption func(*Acquisition)

// WithClock overrides the clock used to name flushed batches.
func WithClock(clock func() time.Time) AcquisitionOption {
	return func(a *Acquisition) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// WithAcquisitionLogger sets the logger.
func WithAcquisitionLogger(l *applogger.Logger) AcquisitionOption {
	return func(a *Acquisition) {
		if l != nil {
			a.l = l
		}
	}
}

// WithFlushPublisher announces every successful flush on pub.
func WithFlushPublisher(pub drepo.ReadingPublisher) AcquisitionOption {
	return func(a *Acquisition) { a.publisher = pub }
}

// NewAcquisition creates a stopped acquisition with an empty buffer.
func NewAcquisition(
	limiter *ratelimit.Limiter,
	validator SampleValidator,
	store drepo.SampleStore,
	bus drepo.Broadcaster,
	metrics drepo.Metrics,
	opts ...AcquisitionOption,
) *Acquisition {
	a := &Acquisition{
		limiter:   limiter,
		validator: validator,
		store:     store,
		bus:       bus,
		metrics:   metrics,
		l:         applogger.NewNop(),
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Start enables buffering. It is idempotent; the state event is broadcast on
// every call, after the lock is released.
func (a *Acquisition) Start() { a.setActive(true) }

// Stop disables buffering. It is idempotent.
func (a *Acquisition) Stop() { a.setActive(false) }

func (a *Acquisition) setActive(active bool) {
	a.mu.Lock()
	a.active = active
	a.mu.Unlock()

	a.metrics.SetAcquiring(active)
	if active {
		a.l.Info("data acquisition started")
	} else {
		a.l.Info("data acquisition stopped")
	}
	a.bus.Broadcast(models.NewStateEvent(active))
}

// Active reports whether acquisition is started.
func (a *Acquisition) Active() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

// Ingest runs one inbound payload through rate limiting and validation.
// When started, the reading is appended and broadcast while the lock is held,
// so appends and broadcasts appear in the same order to every observer.
//
// Errors: models.ErrRateLimited when throttled, *models.ValidationError when
// malformed, models.ErrNotAcquiring when stopped. The limiter window moves on
// every admitted payload whether or not it is later buffered.
func (a *Acquisition) Ingest(payload []byte, now time.Time) (models.Reading, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.limiter.Admit(now) {
		return models.Reading{}, models.ErrRateLimited
	}

	r, err := a.validator.Validate(payload)
	if err != nil {
		return models.Reading{}, err
	}

	if !a.active {
		return r, models.ErrNotAcquiring
	}

	a.buffer = append(a.buffer, r)
	a.metrics.SetBuffered(len(a.buffer))
	a.bus.Broadcast(models.NewDataEvent(r))
	return r, nil
}

// Flush hands the buffered readings to the store and clears the buffer only
// when the write succeeds. The lock is held across the write so no sample
// can be appended between the snapshot and the clear.
func (a *Acquisition) Flush(ctx context.Context) (string, error) {
	summary, err := a.flush(ctx)
	if err != nil {
		return "", err
	}
	if a.publisher != nil {
		if perr := a.publisher.PublishFlush(ctx, summary); perr != nil {
			a.metrics.RecordError("flush_publish")
			a.l.Warn("failed to publish flush summary", applogger.String("name", summary.Name), applogger.Error(perr))
		}
	}
	return summary.Name, nil
}

func (a *Acquisition) flush(ctx context.Context) (models.FlushSummary, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	now := a.clock()
	name := util.TimestampedName("sensor_data", now, "json")
	count := len(a.buffer)

	stored, err := a.store.Save(ctx, name, a.buffer)
	a.metrics.RecordFlush(a.store.Backend(), count, err)
	if err != nil {
		a.l.Error("error saving data", applogger.String("name", name), applogger.Error(err))
		return models.FlushSummary{}, &models.StorageError{Name: name, Err: err}
	}

	a.buffer = nil
	a.metrics.SetBuffered(0)
	a.metrics.RecordLatency("flush", time.Since(start).Seconds())
	a.l.Info("data saved", applogger.String("name", stored), applogger.Int("count", count))
	return models.FlushSummary{Name: stored, Count: count, Backend: a.store.Backend(), SavedAt: now}, nil
}

// Snapshot returns a copy of the buffered readings.
func (a *Acquisition) Snapshot() []models.Reading {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.Reading, len(a.buffer))
	copy(out, a.buffer)
	return out
}

// Len returns the number of buffered readings.
func (a *Acquisition) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buffer)
}
