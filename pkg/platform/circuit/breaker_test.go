package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_StartsClosed(t *testing.T) {
	b := New("practice_hours")
	assert.Equal(t, "practice_hours", b.Name())
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())
}

// outcome is one recorded call: true for success, false for failure.
type outcome bool

const (
	ok   outcome = true
	fail outcome = false
)

func TestBreaker_Transitions(t *testing.T) {
	tests := []struct {
		name     string
		opts     []Option
		calls    []outcome
		wantOpen bool
	}{
		{"below failure threshold", []Option{WithFailureThreshold(3)}, []outcome{fail, fail}, false},
		{"reaches failure threshold", []Option{WithFailureThreshold(3)}, []outcome{fail, fail, fail}, true},
		{"success resets failure streak", []Option{WithFailureThreshold(3)}, []outcome{fail, fail, ok, fail, fail}, false},
		{"one success is not enough to close", []Option{WithFailureThreshold(1), WithSuccessThreshold(2)}, []outcome{fail, ok}, true},
		{"success threshold closes", []Option{WithFailureThreshold(1), WithSuccessThreshold(2)}, []outcome{fail, ok, ok}, false},
		{"failure while open restarts the success count", []Option{WithFailureThreshold(1), WithSuccessThreshold(2)}, []outcome{fail, ok, fail, ok}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("cpd", tt.opts...)
			for _, c := range tt.calls {
				if c == ok {
					b.RecordSuccess()
				} else {
					b.RecordFailure()
				}
			}
			assert.Equal(t, tt.wantOpen, b.IsOpen())
		})
	}
}

func TestBreaker_ReportsStateChangesOnce(t *testing.T) {
	b := New("feedback", WithFailureThreshold(2), WithSuccessThreshold(1))

	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.False(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback, "still degraded while open")
	assert.False(t, change.Opened, "already open")

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)
}

func TestBreaker_Reset(t *testing.T) {
	b := New("training", WithFailureThreshold(1))
	b.RecordFailure()
	assert.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_AllowsTrialAfterCooldown(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	b := New("cpd", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(func() time.Time { return now }))

	b.RecordFailure()
	assert.False(t, b.Allow(), "open breaker refuses during cooldown")

	now = now.Add(time.Minute)
	assert.True(t, b.Allow(), "one trial call after cooldown")
	assert.False(t, b.Allow(), "second trial call waits another cooldown")

	b.RecordSuccess()
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
}
