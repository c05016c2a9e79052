package ratelimit

import "time"

// DefaultMaxRate is the default admitted samples per second.
const DefaultMaxRate = 10

// Limiter admits events separated by at least 1/maxRate seconds.
//
// A single Limiter is shared by all ingest traffic. It is not safe for
// concurrent use on its own; the acquisition state guards it with the same
// lock that protects the sample buffer.
type Limiter struct {
	minGap time.Duration
	last   time.Time // zero value admits the first event
}

// New creates a Limiter for maxRate events per second.
func New(maxRate float64) *Limiter {
	if maxRate <= 0 {
		maxRate = DefaultMaxRate
	}
	return &Limiter{minGap: time.Duration(float64(time.Second) / maxRate)}
}

// Admit reports whether an event arriving at now may pass. Only admitted
// events move the window; rejected ones leave it untouched.
func (l *Limiter) Admit(now time.Time) bool {
	if !l.last.IsZero() && now.Sub(l.last) < l.minGap {
		return false
	}
	l.last = now
	return true
}

// MinGap returns the minimum spacing between admitted events.
func (l *Limiter) MinGap() time.Duration { return l.minGap }

// LastAdmitted returns the time of the last admitted event, zero if none.
func (l *Limiter) LastAdmitted() time.Time { return l.last }
