// Package resilience guards downstream calls with error classification,
// retry/backoff and per-resource circuit breaking.
package resilience

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/vietddude/gridpulse/internal/core/domain"
)

var throttlePatterns = []string{
	"429",
	"too many requests",
	"rate limit",
	"throttl",
	"quota exceeded",
	"slow down",
}

var permanentPatterns = []string{
	"400", "401", "403", "404", "409", "422",
	"unauthorized",
	"forbidden",
	"access denied",
	"invalid request",
	"malformed",
	"conditional check failed",
}

var transientPatterns = []string{
	"500", "502", "503", "504",
	"timeout",
	"timed out",
	"connection refused",
	"connection reset",
	"broken pipe",
	"unexpected eof",
	"no such host",
	"service unavailable",
	"i/o error",
}

// Classify maps a downstream failure into the error taxonomy. Rate-limit
// signals win over generic 4xx matching; anything unrecognized is Unknown,
// which callers retry like a transient but log distinctly.
func Classify(err error) domain.ErrorKind {
	if err == nil {
		return domain.ErrorKindUnknown
	}
	if errors.Is(err, domain.ErrCircuitOpen) {
		return domain.ErrorKindCircuitOpen
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return domain.ErrorKindTransient
	}

	msg := strings.ToLower(err.Error())

	for _, p := range throttlePatterns {
		if strings.Contains(msg, p) {
			return domain.ErrorKindThrottling
		}
	}
	for _, p := range permanentPatterns {
		if strings.Contains(msg, p) {
			return domain.ErrorKindPermanent
		}
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return domain.ErrorKindTransient
		}
	}

	return domain.ErrorKindUnknown
}
