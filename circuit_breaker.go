// circuit_breaker.go
// ------------------
// This file defines the Breaker type and the BreakerRegistry that stores one
// breaker per logical endpoint key. The registry replaces module-level state:
// it is owned by a Client instance, so independent clients (and tests) never
// share breaker state.
//
// State machine:
//
//	CLOSED --[failures >= FailureThreshold]--> OPEN
//	OPEN   --[OpenTimeout elapsed]-----------> HALF_OPEN
//	HALF_OPEN --[SuccessThreshold successes]-> CLOSED (failure count reset)
//	HALF_OPEN --[any failure]----------------> OPEN
package taskstream

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker state for an endpoint key.
type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "CLOSED"
	case BreakerOpen:
		return "OPEN"
	case BreakerHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

const (
	defaultFailureThreshold = 5
	defaultSuccessThreshold = 2
	defaultOpenTimeout      = 30 * time.Second
)

// BreakerConfig controls when a breaker trips and how it recovers.
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failureThreshold"` // consecutive failures before opening
	SuccessThreshold int           `mapstructure:"successThreshold"` // consecutive successes to close from half-open
	OpenTimeout      time.Duration `mapstructure:"openTimeout"`      // cooldown before a trial request is allowed
}

// DefaultBreakerConfig returns the thresholds used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: defaultFailureThreshold,
		SuccessThreshold: defaultSuccessThreshold,
		OpenTimeout:      defaultOpenTimeout,
	}
}

func (c *BreakerConfig) applyDefaults() {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = defaultFailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = defaultSuccessThreshold
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = defaultOpenTimeout
	}
}

// Breaker guards one endpoint key. Safe for concurrent use.
//
// Allow is the single authoritative gate: callers must not pre-check State()
// and make their own decision, since the two reads would not be atomic.
type Breaker struct {
	mu        sync.Mutex
	cfg       BreakerConfig
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
}

// NewBreaker creates a closed breaker, filling zero config values with defaults.
func NewBreaker(cfg BreakerConfig) *Breaker {
	cfg.applyDefaults()
	return &Breaker{cfg: cfg, state: BreakerClosed}
}

// Allow reports whether a request may proceed, transitioning OPEN to
// HALF_OPEN when the cooldown has elapsed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed, BreakerHalfOpen:
		return true
	case BreakerOpen:
		if time.Since(b.openedAt) >= b.cfg.OpenTimeout {
			b.state = BreakerHalfOpen
			b.successes = 0
			return true
		}
		return false
	default:
		return false
	}
}

// RecordSuccess registers a successful call. In HALF_OPEN, enough consecutive
// successes close the breaker and reset the failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	}
}

// RecordFailure registers a failed call. Reaching the failure threshold in
// CLOSED, or any failure in HALF_OPEN, opens the breaker.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.successes = 0

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.state = BreakerOpen
			b.openedAt = time.Now()
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.openedAt = time.Now()
	}
}

// State returns the current state without side effects.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the current failure count.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

// RetryAfter returns the remaining cooldown when OPEN, 0 otherwise.
func (b *Breaker) RetryAfter() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != BreakerOpen {
		return 0
	}
	remaining := b.cfg.OpenTimeout - time.Since(b.openedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset forces the breaker back to CLOSED with counters cleared.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.successes = 0
}

// BreakerRegistry holds one breaker per endpoint key, created on demand with
// a shared default configuration.
type BreakerRegistry struct {
	mu       sync.Mutex
	cfg      BreakerConfig
	breakers map[string]*Breaker
}

// NewBreakerRegistry creates an empty registry.
func NewBreakerRegistry(cfg BreakerConfig) *BreakerRegistry {
	cfg.applyDefaults()
	return &BreakerRegistry{
		cfg:      cfg,
		breakers: make(map[string]*Breaker),
	}
}

// Get returns the breaker for an endpoint key, creating it if needed.
func (r *BreakerRegistry) Get(key string) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.breakers[key]
	if !ok {
		b = NewBreaker(r.cfg)
		r.breakers[key] = b
	}
	return b
}

// States snapshots the state of every known breaker.
func (r *BreakerRegistry) States() map[string]BreakerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]BreakerState, len(r.breakers))
	for key, b := range r.breakers {
		out[key] = b.State()
	}
	return out
}

// ResetAll forces every breaker back to CLOSED.
func (r *BreakerRegistry) ResetAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.breakers {
		b.Reset()
	}
}
