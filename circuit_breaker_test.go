package taskstream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerOpensAtFailureThreshold(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 3, SuccessThreshold: 1, OpenTimeout: time.Minute})

	b.RecordFailure()
	b.RecordFailure()
	assert.Equal(t, BreakerClosed, b.State())
	assert.True(t, b.Allow())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
	assert.Greater(t, b.RetryAfter(), time.Duration(0))
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 2, SuccessThreshold: 1, OpenTimeout: time.Minute})

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	// Failures are consecutive, so a success in between keeps us closed.
	assert.Equal(t, BreakerClosed, b.State())
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Millisecond})

	b.RecordFailure()
	require.Equal(t, BreakerOpen, b.State())
	require.False(t, b.Allow())

	time.Sleep(15 * time.Millisecond)

	// Allow performs the OPEN -> HALF_OPEN transition once the cooldown elapses.
	require.True(t, b.Allow())
	require.Equal(t, BreakerHalfOpen, b.State())

	b.RecordSuccess()
	assert.Equal(t, BreakerHalfOpen, b.State())
	b.RecordSuccess()
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.Failures())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, SuccessThreshold: 2, OpenTimeout: 10 * time.Millisecond})

	b.RecordFailure()
	time.Sleep(15 * time.Millisecond)
	require.True(t, b.Allow())
	require.Equal(t, BreakerHalfOpen, b.State())

	b.RecordFailure()
	assert.Equal(t, BreakerOpen, b.State())
	assert.False(t, b.Allow())
}

func TestBreakerReset(t *testing.T) {
	b := NewBreaker(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})
	b.RecordFailure()
	require.Equal(t, BreakerOpen, b.State())

	b.Reset()
	assert.Equal(t, BreakerClosed, b.State())
	assert.Equal(t, 0, b.Failures())
	assert.Equal(t, time.Duration(0), b.RetryAfter())
}

func TestBreakerStateString(t *testing.T) {
	assert.Equal(t, "CLOSED", BreakerClosed.String())
	assert.Equal(t, "OPEN", BreakerOpen.String())
	assert.Equal(t, "HALF_OPEN", BreakerHalfOpen.String())
}

func TestBreakerRegistryIsolatesEndpoints(t *testing.T) {
	r := NewBreakerRegistry(BreakerConfig{FailureThreshold: 1, OpenTimeout: time.Minute})

	r.Get("/tasks").RecordFailure()

	assert.Equal(t, BreakerOpen, r.Get("/tasks").State())
	assert.Equal(t, BreakerClosed, r.Get("/projects").State())

	states := r.States()
	assert.Len(t, states, 2)
	assert.Equal(t, BreakerOpen, states["/tasks"])

	r.ResetAll()
	assert.Equal(t, BreakerClosed, r.Get("/tasks").State())
}

func TestBreakerConfigDefaults(t *testing.T) {
	b := NewBreaker(BreakerConfig{})
	assert.Equal(t, defaultFailureThreshold, b.cfg.FailureThreshold)
	assert.Equal(t, defaultSuccessThreshold, b.cfg.SuccessThreshold)
	assert.Equal(t, defaultOpenTimeout, b.cfg.OpenTimeout)
}
