package broadcast

import (
	"encoding/json"
	"sync"
	"time"

	drepo "SensorStream/internal/domain/repository"
	applogger "SensorStream/pkg/logger"
)

// Registry is the set of live subscribers. Membership changes and broadcasts
// are serialized by mu; the acquisition lock is never taken here.
type Registry struct {
	mu           sync.RWMutex
	subs         map[uint64]*Subscriber
	nextID       uint64
	writeTimeout time.Duration

	l       *applogger.Logger
	metrics drepo.Metrics
}

// RegistryOption configures Registry.
type RegistryOption func(*Registry)

// WithWriteTimeout bounds each per-subscriber send.
func WithWriteTimeout(d time.Duration) RegistryOption {
	return func(r *Registry) {
		if d > 0 {
			r.writeTimeout = d
		}
	}
}

// WithLogger sets the registry logger.
func WithLogger(l *applogger.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.l = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m drepo.Metrics) RegistryOption {
	return func(r *Registry) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		subs:         make(map[uint64]*Subscriber),
		writeTimeout: 5 * time.Second,
		l:            applogger.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds an already-accepted connection and returns its handle.
func (r *Registry) Register(conn Conn) *Subscriber {
	r.mu.Lock()
	r.nextID++
	s := &Subscriber{id: r.nextID, conn: conn, writeTimeout: r.writeTimeout}
	r.subs[s.id] = s
	n := len(r.subs)
	r.mu.Unlock()

	r.observe(n)
	r.l.Info("visualization client connected", applogger.Uint64("subscriber", s.id), applogger.Int("subscribers", n))
	return s
}

// Unregister removes s. It reports whether s was present; removing an absent
// handle is a no-op. After Unregister returns no broadcast writes to s.
func (r *Registry) Unregister(s *Subscriber) bool {
	if s == nil {
		return false
	}
	r.mu.Lock()
	_, ok := r.subs[s.id]
	if ok {
		delete(r.subs, s.id)
		s.markClosed()
	}
	n := len(r.subs)
	r.mu.Unlock()

	if ok {
		r.observe(n)
		r.l.Info("visualization client disconnected", applogger.Uint64("subscriber", s.id), applogger.Int("subscribers", n))
	}
	return ok
}

// Len returns the number of registered subscribers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// Broadcast serializes event once and writes it to every subscriber
// concurrently. Subscribers whose write fails or times out are evicted after
// all writes finish. Broadcast itself never fails.
func (r *Registry) Broadcast(event any) {
	data, err := json.Marshal(event)
	if err != nil {
		r.l.Error("broadcast marshal failed", applogger.Error(err))
		return
	}

	var (
		failedMu sync.Mutex
		failed   []*Subscriber
		wg       sync.WaitGroup
	)

	// Holding the read lock for the whole fan-out keeps Unregister from
	// returning while a write to the removed handle is still in flight.
	r.mu.RLock()
	for _, s := range r.subs {
		wg.Add(1)
		go func(s *Subscriber) {
			defer wg.Done()
			if err := s.Send(data); err != nil {
				r.l.Error("error sending message to visualization client",
					applogger.Uint64("subscriber", s.id), applogger.Error(err))
				failedMu.Lock()
				failed = append(failed, s)
				failedMu.Unlock()
			}
		}(s)
	}
	wg.Wait()
	r.mu.RUnlock()

	for _, s := range failed {
		if r.Unregister(s) {
			if r.metrics != nil {
				r.metrics.RecordEviction()
			}
			_ = s.conn.Close()
		}
	}
}

// CloseAll closes every subscriber with code and empties the registry.
func (r *Registry) CloseAll(code int, reason string) {
	r.mu.Lock()
	subs := make([]*Subscriber, 0, len(r.subs))
	for id, s := range r.subs {
		subs = append(subs, s)
		delete(r.subs, id)
	}
	r.mu.Unlock()

	for _, s := range subs {
		_ = s.Close(code, reason)
	}
	r.observe(0)
}

func (r *Registry) observe(n int) {
	if r.metrics != nil {
		r.metrics.SetSubscribers(n)
	}
}
