package domain

import (
	"errors"
	"time"
)

// ErrCircuitOpen is returned without touching the downstream call when the
// resource's circuit breaker is Open.
var ErrCircuitOpen = errors.New("circuit open")

// ErrorKind is the failure taxonomy for downstream calls.
type ErrorKind string

const (
	ErrorKindValidation  ErrorKind = "validation"
	ErrorKindTransient   ErrorKind = "transient"
	ErrorKindPermanent   ErrorKind = "permanent"
	ErrorKindThrottling  ErrorKind = "throttling"
	ErrorKindCircuitOpen ErrorKind = "circuit_open"
	ErrorKindUnknown     ErrorKind = "unknown"
)

// Retryable reports whether calls failing with this kind may be re-attempted.
// Unknown is treated as transient for retry purposes.
func (k ErrorKind) Retryable() bool {
	switch k {
	case ErrorKindTransient, ErrorKindThrottling, ErrorKindUnknown:
		return true
	}
	return false
}

// Well-known downstream resource identifiers.
const (
	ResourceEnergyStore  = "energy_store"
	ResourceAlertChannel = "alert_channel"
)

// ErrorContext identifies where a failure happened.
type ErrorContext struct {
	Resource  string `json:"resource"`
	Operation string `json:"operation"`
	SiteID    string `json:"site_id,omitempty"`
	SourceKey string `json:"source_key,omitempty"`
}

// ErrorEvent records one failed downstream attempt. Terminal once logged.
type ErrorEvent struct {
	ID         string       `json:"id"`
	Kind       ErrorKind    `json:"kind"`
	Message    string       `json:"message"`
	Context    ErrorContext `json:"context"`
	RetryCount int          `json:"retry_count"`
	Timestamp  time.Time    `json:"timestamp"`
}
