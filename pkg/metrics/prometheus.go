package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	samplesTotal *prometheus.CounterVec
	errorsTotal  *prometheus.CounterVec
	flushesTotal *prometheus.CounterVec
	flushedTotal *prometheus.CounterVec
	evictions    prometheus.Counter
	acquiring    prometheus.Gauge
	buffered     prometheus.Gauge
	subscribers  prometheus.Gauge
	latency      *prometheus.HistogramVec
}

// New creates a Prometheus metrics recorder on the default registry.
func New() *Recorder {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates a recorder whose collectors are registered on reg.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		samplesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sensorstream_samples_total",
				Help: "Inbound samples by outcome",
			},
			[]string{"result"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sensorstream_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		flushesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sensorstream_flushes_total",
				Help: "Flush attempts by backend and status",
			},
			[]string{"backend", "status"},
		),
		flushedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sensorstream_flushed_readings_total",
				Help: "Readings written by successful flushes",
			},
			[]string{"backend"},
		),
		evictions: f.NewCounter(prometheus.CounterOpts{
			Name: "sensorstream_subscriber_evictions_total",
			Help: "Subscribers removed after a failed send",
		}),
		acquiring: f.NewGauge(prometheus.GaugeOpts{
			Name: "sensorstream_acquiring",
			Help: "1 while acquisition is started",
		}),
		buffered: f.NewGauge(prometheus.GaugeOpts{
			Name: "sensorstream_buffered_readings",
			Help: "Readings held in the acquisition buffer",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "sensorstream_subscribers",
			Help: "Connected visualization clients",
		}),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sensorstream_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSample counts an inbound sample by outcome.
func (r *Recorder) RecordSample(result string) {
	r.samplesTotal.WithLabelValues(result).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordFlush records a flush attempt.
func (r *Recorder) RecordFlush(backend string, count int, err error) {
	if err != nil {
		r.flushesTotal.WithLabelValues(backend, "error").Inc()
		return
	}
	r.flushesTotal.WithLabelValues(backend, "ok").Inc()
	r.flushedTotal.WithLabelValues(backend).Add(float64(count))
}

func (r *Recorder) SetAcquiring(active bool) {
	if active {
		r.acquiring.Set(1)
		return
	}
	r.acquiring.Set(0)
}

func (r *Recorder) SetBuffered(n int) { r.buffered.Set(float64(n)) }
func (r *Recorder) SetSubscribers(n int) { r.subscribers.Set(float64(n)) }
func (r *Recorder) RecordEviction() { r.evictions.Inc() }

// Nop discards all measurements.
type Nop struct{}

func (Nop) RecordSample(string) {}
func (Nop) RecordError(string) {}
func (Nop) RecordLatency(string, float64) {}
func (Nop) RecordFlush(string, int, error) {}
func (Nop) SetAcquiring(bool) {}
func (Nop) SetBuffered(int) {}
func (Nop) SetSubscribers(int) {}
func (Nop) RecordEviction() {}
