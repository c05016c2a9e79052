package repository

import (
	"context"
	"io"

	"SensorStream/internal/domain/models"
)

// SampleStore persists a flushed batch of readings under a name.
// It returns the name actually used, which may differ on collision.
type SampleStore interface {
	Save(ctx context.Context, name string, readings []models.Reading) (string, error)
	Backend() string
	Close() error
}

// ReadingPublisher mirrors buffered readings and flush summaries to a stream.
type ReadingPublisher interface {
	PublishReading(ctx context.Context, r models.Reading) error
	PublishFlush(ctx context.Context, s models.FlushSummary) error
	Close() error
}

// VideoStore keeps uploaded video files.
type VideoStore interface {
	Save(ctx context.Context, name string, r io.Reader) (stored string, size int64, err error)
	Path(name string) (string, error)
}

// VideoIndex records metadata for uploaded videos.
type VideoIndex interface {
	Put(ctx context.Context, meta models.VideoMeta) error
	Get(ctx context.Context, name string) (*models.VideoMeta, error)
}

// Broadcaster delivers an event to every live subscriber.
type Broadcaster interface {
	Broadcast(event any)
}

type Metrics interface {
	RecordSample(result string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordFlush(backend string, count int, err error)
	SetAcquiring(active bool)
	SetBuffered(n int)
	SetSubscribers(n int)
	RecordEviction()
}

// Sample results recorded by RecordSample.
const (
	SampleAccepted    = "accepted"
	SampleRateLimited = "rate_limited"
	SampleInvalid     = "invalid"
	SampleDiscarded   = "discarded"
)
