package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Samples(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordSample("accepted")
	r.RecordSample("accepted")
	r.RecordSample("rate_limited")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.samplesTotal.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.samplesTotal.WithLabelValues("rate_limited")))
}

func TestRecorder_Flush(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.RecordFlush("file", 7, nil)
	r.RecordFlush("file", 3, errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(r.flushesTotal.WithLabelValues("file", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.flushesTotal.WithLabelValues("file", "error")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.flushedTotal.WithLabelValues("file")))
}

func TestRecorder_Gauges(t *testing.T) {
	r := NewWithRegisterer(prometheus.NewRegistry())

	r.SetAcquiring(true)
	r.SetBuffered(12)
	r.SetSubscribers(3)
	r.RecordEviction()

	assert.Equal(t, 1.0, testutil.ToFloat64(r.acquiring))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.buffered))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.subscribers))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.evictions))

	r.SetAcquiring(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.acquiring))
}

func TestRecorder_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		NewWithRegisterer(prometheus.NewRegistry())
		NewWithRegisterer(prometheus.NewRegistry())
	})
}
