package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(sec float64) time.Time {
	return t0.Add(time.Duration(sec * float64(time.Second)))
}

func TestFirstEventAlwaysAdmitted(t *testing.T) {
	l := New(10)
	assert.True(t, l.Admit(at(0)))
	assert.Equal(t, at(0), l.LastAdmitted())
}

func TestMinGap(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, New(10).MinGap())
	assert.Equal(t, 50*time.Millisecond, New(20).MinGap())
	assert.Equal(t, 100*time.Millisecond, New(0).MinGap())
}

func TestRejectionDoesNotMoveWindow(t *testing.T) {
	l := New(10)
	assert.True(t, l.Admit(at(0)))
	assert.False(t, l.Admit(at(0.05)))
	assert.False(t, l.Admit(at(0.09)))
	assert.Equal(t, at(0), l.LastAdmitted())
	// measured from 0.0, not from the rejected 0.09
	assert.True(t, l.Admit(at(0.10)))
}

func TestScenarioThreeSamples(t *testing.T) {
	l := New(10)
	admitted := 0
	for _, ts := range []float64{0.0, 0.05, 0.20} {
		if l.Admit(at(ts)) {
			admitted++
		}
	}
	assert.Equal(t, 2, admitted)
}

func TestAdmittedCountBoundedByRate(t *testing.T) {
	l := New(10)
	admitted := 0
	// 1000 events over one second, every millisecond
	for i := 0; i < 1000; i++ {
		if l.Admit(t0.Add(time.Duration(i) * time.Millisecond)) {
			admitted++
		}
	}
	elapsed := 0.999
	assert.LessOrEqual(t, float64(admitted), elapsed*10+1)
	assert.Equal(t, 10, admitted)
}
