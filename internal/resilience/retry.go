package resilience

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/vietddude/gridpulse/internal/core/domain"
	"github.com/vietddude/gridpulse/internal/infra/metrics"
)

// RetryConfig defines retry behavior for downstream calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// DefaultRetryConfig provides sensible defaults.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	BaseDelay:   1 * time.Second,
	MaxDelay:    30 * time.Second,
}

// Operation is one downstream call guarded by the retrier.
type Operation func(ctx context.Context) error

// Result reports the outcome of a guarded call. Err is nil on success.
// Events holds one ErrorEvent per failed attempt; the last event's RetryCount
// equals the number of attempts that failed.
type Result struct {
	Attempts     int
	Events       []domain.ErrorEvent
	TerminalKind domain.ErrorKind
	Err          error
}

// LastEvent returns the most recent error event, if any.
func (r Result) LastEvent() *domain.ErrorEvent {
	if len(r.Events) == 0 {
		return nil
	}
	return &r.Events[len(r.Events)-1]
}

// Retrier wraps downstream calls with classification-driven retry, backoff
// with jitter, and circuit-breaker consultation.
type Retrier struct {
	cfg     RetryConfig
	breaker *Breaker
	log     *slog.Logger

	// jitter and sleep are injectable for tests.
	jitter func(d time.Duration) time.Duration
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRetrier creates a retrier bound to a breaker registry.
func NewRetrier(cfg RetryConfig, breaker *Breaker) *Retrier {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultRetryConfig.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultRetryConfig.BaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultRetryConfig.MaxDelay
	}
	return &Retrier{
		cfg:     cfg,
		breaker: breaker,
		log:     slog.Default(),
		jitter: func(d time.Duration) time.Duration {
			// Bounded random jitter, at most 50% of the computed delay.
			return time.Duration(rand.Int63n(int64(d)/2 + 1))
		},
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

// Do executes the operation under retry and circuit-breaker protection.
// An Open circuit fails immediately without invoking the call. Permanent
// failures are terminal on the first attempt; transient, throttling and
// unknown failures are retried with exponential backoff up to MaxAttempts.
func (r *Retrier) Do(ctx context.Context, ectx domain.ErrorContext, op Operation) Result {
	var res Result

	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		if err := r.breaker.Allow(ectx.Resource); err != nil {
			res.Err = err
			res.TerminalKind = domain.ErrorKindCircuitOpen
			res.Events = append(res.Events, r.newEvent(domain.ErrorKindCircuitOpen, err, ectx, attempt-1))
			r.log.Warn("Downstream call blocked by open circuit",
				"resource", ectx.Resource, "operation", ectx.Operation)
			return res
		}

		res.Attempts = attempt
		err := op(ctx)
		if err == nil {
			r.breaker.ReportSuccess(ectx.Resource)
			return res
		}

		r.breaker.ReportFailure(ectx.Resource)
		kind := Classify(err)
		metrics.DownstreamErrors.WithLabelValues(ectx.Resource, string(kind)).Inc()
		res.Events = append(res.Events, r.newEvent(kind, err, ectx, attempt))
		res.TerminalKind = kind
		res.Err = err

		if kind == domain.ErrorKindUnknown {
			// Unclassified failures retry like transients but are logged
			// distinctly so the classifier can be extended.
			r.log.Warn("Unclassified downstream error",
				"resource", ectx.Resource, "operation", ectx.Operation,
				"attempt", attempt, "error", err)
		}

		if !kind.Retryable() {
			r.log.Error("Permanent downstream failure",
				"resource", ectx.Resource, "operation", ectx.Operation,
				"attempt", attempt, "error", err)
			return res
		}

		if attempt == r.cfg.MaxAttempts {
			break
		}

		delay := r.backoff(attempt)
		r.log.Warn("Downstream call failed, retrying",
			"resource", ectx.Resource, "operation", ectx.Operation,
			"attempt", attempt, "kind", kind, "delay", delay, "error", err)
		metrics.DownstreamRetries.WithLabelValues(ectx.Resource).Inc()

		if err := r.sleep(ctx, delay); err != nil {
			res.Err = err
			return res
		}
	}

	r.log.Error("Downstream call exhausted retries",
		"resource", ectx.Resource, "operation", ectx.Operation,
		"attempts", res.Attempts, "kind", res.TerminalKind, "error", res.Err)
	return res
}

// backoff computes base * 2^(attempt-1) plus jitter, capped at MaxDelay.
func (r *Retrier) backoff(attempt int) time.Duration {
	delay := float64(r.cfg.BaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(r.cfg.MaxDelay) {
		delay = float64(r.cfg.MaxDelay)
	}
	return time.Duration(delay) + r.jitter(time.Duration(delay))
}

func (r *Retrier) newEvent(
	kind domain.ErrorKind,
	err error,
	ectx domain.ErrorContext,
	retryCount int,
) domain.ErrorEvent {
	return domain.ErrorEvent{
		ID:         uuid.New().String(),
		Kind:       kind,
		Message:    err.Error(),
		Context:    ectx,
		RetryCount: retryCount,
		Timestamp:  time.Now().UTC(),
	}
}
