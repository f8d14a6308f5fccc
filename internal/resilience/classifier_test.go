package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		err    error
		expect domain.ErrorKind
	}{
		{errors.New("429 Too Many Requests"), domain.ErrorKindThrottling},
		{errors.New("rate limit exceeded"), domain.ErrorKindThrottling},
		{errors.New("request was throttled"), domain.ErrorKindThrottling},
		{errors.New("403 Forbidden"), domain.ErrorKindPermanent},
		{errors.New("401 unauthorized"), domain.ErrorKindPermanent},
		{errors.New("400 invalid request body"), domain.ErrorKindPermanent},
		{errors.New("500 Internal Server Error"), domain.ErrorKindTransient},
		{errors.New("503 service unavailable"), domain.ErrorKindTransient},
		{errors.New("dial tcp: connection refused"), domain.ErrorKindTransient},
		{errors.New("read: connection reset by peer"), domain.ErrorKindTransient},
		{errors.New("request timed out"), domain.ErrorKindTransient},
		{context.DeadlineExceeded, domain.ErrorKindTransient},
		{fmt.Errorf("op failed: %w", domain.ErrCircuitOpen), domain.ErrorKindCircuitOpen},
		{errors.New("something inexplicable happened"), domain.ErrorKindUnknown},
	}

	for _, tt := range tests {
		if got := Classify(tt.err); got != tt.expect {
			t.Errorf("Classify(%q) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestUnknownIsRetryable(t *testing.T) {
	if !domain.ErrorKindUnknown.Retryable() {
		t.Error("unknown errors must be retried like transients")
	}
	if domain.ErrorKindPermanent.Retryable() {
		t.Error("permanent errors must not be retried")
	}
	if domain.ErrorKindCircuitOpen.Retryable() {
		t.Error("circuit-open errors must not be retried")
	}
}
