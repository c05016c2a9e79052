package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu      sync.Mutex
	topic   string
	batches [][]AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func TestNewWriterEmitsStructuredFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug")

	l.Info("sample accepted", String("conn", "c1"), Float64("x", 1.5), Int("n", 3), Bool("ok", true))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "sample accepted", line["message"])
	assert.Equal(t, "c1", line["conn"])
	assert.Equal(t, 1.5, line["x"])
	assert.Equal(t, float64(3), line["n"])
	assert.Equal(t, true, line["ok"])
}

func TestWithCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info").With(String("channel", "ingest"))

	l.Warn("rate exceeded")

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "ingest", line["channel"])
	assert.Equal(t, "warn", line["level"])
}

func TestCollectorAggregatesDuplicateErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "sensor.logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("flush failed", Error(errors.New("disk full")))
	}
	assert.Equal(t, 1, l.collector.Pending())

	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "sensor.logs", pub.topic)
	require.Len(t, pub.batches[0], 1)
	assert.Equal(t, 3, pub.batches[0][0].Count)
	assert.Equal(t, "flush failed", pub.batches[0][0].Message)
}

func TestErrorFieldHandlesNil(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info")

	l.Info("flush ok", Error(nil), Duration("took_ms", 1500*time.Millisecond))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Nil(t, line["error"])
	assert.Equal(t, float64(1500), line["took_ms"])
}

func TestFlushCollectorKeepsChildLoggersUsable(t *testing.T) {
	pub := &capturePublisher{}
	l := NewNop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "sensor.logs", Publisher: pub})
	child := l.With(String("component", "acquisition"))

	child.Error("store write failed", Error(errors.New("timeout")))
	l.FlushCollector()
	l.FlushCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.Len(t, pub.batches, 1)
	assert.Equal(t, "store write failed", pub.batches[0][0].Message)
	assert.Equal(t, "timeout", pub.batches[0][0].Fields["error"])
}
