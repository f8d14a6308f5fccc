package resilience

import (
	"sync"
	"time"

	"github.com/vietddude/gridpulse/internal/core/domain"
	"github.com/vietddude/gridpulse/internal/infra/metrics"
)

// CircuitState is the breaker state for one downstream resource.
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half_open"
)

// BreakerConfig defines trip behavior.
type BreakerConfig struct {
	Threshold int           `yaml:"threshold"`
	Window    time.Duration `yaml:"window"`
	Cooldown  time.Duration `yaml:"cooldown"`
}

// DefaultBreakerConfig provides sensible defaults.
var DefaultBreakerConfig = BreakerConfig{
	Threshold: 5,
	Window:    60 * time.Second,
	Cooldown:  60 * time.Second,
}

// circuit holds state for one resource. Each circuit has its own lock so
// unrelated resources are never serialized against each other.
type circuit struct {
	mu            sync.Mutex
	state         CircuitState
	failureCount  int
	windowStart   time.Time
	openedAt      time.Time
	probeInFlight bool
}

// Breaker is a registry of per-resource circuits. Safe for concurrent use.
type Breaker struct {
	cfg BreakerConfig

	mu       sync.RWMutex
	circuits map[string]*circuit

	now func() time.Time // overridable in tests
}

// NewBreaker creates a breaker registry.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultBreakerConfig.Threshold
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultBreakerConfig.Window
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultBreakerConfig.Cooldown
	}
	return &Breaker{
		cfg:      cfg,
		circuits: make(map[string]*circuit),
		now:      time.Now,
	}
}

func (b *Breaker) get(resource string) *circuit {
	b.mu.RLock()
	c, ok := b.circuits[resource]
	b.mu.RUnlock()
	if ok {
		return c
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.circuits[resource]; ok {
		return c
	}
	c = &circuit{state: StateClosed, windowStart: b.now()}
	b.circuits[resource] = c
	return c
}

// Allow decides whether a call to the resource may proceed. An Open circuit
// moves to HalfOpen once the cooldown has elapsed, and exactly one probe is
// admitted; every other caller gets ErrCircuitOpen until the probe resolves.
func (b *Breaker) Allow(resource string) error {
	c := b.get(resource)
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(c.openedAt) < b.cfg.Cooldown {
			return domain.ErrCircuitOpen
		}
		c.state = StateHalfOpen
		c.probeInFlight = true
		b.exportState(resource, StateHalfOpen)
		return nil
	case StateHalfOpen:
		if c.probeInFlight {
			return domain.ErrCircuitOpen
		}
		c.probeInFlight = true
		return nil
	}
	return nil
}

// ReportSuccess records a successful call. A HalfOpen probe success closes
// the circuit and resets the failure window.
func (b *Breaker) ReportSuccess(resource string) {
	c := b.get(resource)
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateHalfOpen {
		c.state = StateClosed
		c.failureCount = 0
		c.windowStart = b.now()
		c.probeInFlight = false
		b.exportState(resource, StateClosed)
	}
}

// ReportFailure records a failed call. A HalfOpen probe failure reopens the
// circuit and restarts the cooldown; in Closed state the sliding window is
// rolled over before counting, and the circuit trips at the threshold.
func (b *Breaker) ReportFailure(resource string) {
	c := b.get(resource)
	c.mu.Lock()
	defer c.mu.Unlock()

	now := b.now()

	switch c.state {
	case StateHalfOpen:
		c.state = StateOpen
		c.openedAt = now
		c.probeInFlight = false
		b.exportState(resource, StateOpen)
	case StateClosed:
		if now.Sub(c.windowStart) > b.cfg.Window {
			c.failureCount = 0
			c.windowStart = now
		}
		c.failureCount++
		if c.failureCount >= b.cfg.Threshold {
			c.state = StateOpen
			c.openedAt = now
			b.exportState(resource, StateOpen)
		}
	case StateOpen:
		// Already open; nothing to count.
	}
}

// State returns the current state for a resource.
func (b *Breaker) State(resource string) CircuitState {
	c := b.get(resource)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the state of every known resource.
func (b *Breaker) Snapshot() map[string]CircuitState {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make(map[string]CircuitState, len(b.circuits))
	for resource, c := range b.circuits {
		c.mu.Lock()
		out[resource] = c.state
		c.mu.Unlock()
	}
	return out
}

func (b *Breaker) exportState(resource string, state CircuitState) {
	var v float64
	switch state {
	case StateHalfOpen:
		v = 1
	case StateOpen:
		v = 2
	}
	metrics.BreakerState.WithLabelValues(resource).Set(v)
}
