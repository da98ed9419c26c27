package carrier

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Category classifies a carrier failure. The set is closed: callers drive
// retry and surfacing decisions off it.
type Category string

const (
	// Validation means caller input was malformed or the carrier rejected
	// the data of the request.
	Validation Category = "Validation"
	// Auth means authentication or authorization failed.
	Auth Category = "Auth"
	// RateLimit means the carrier throttled us.
	RateLimit Category = "RateLimit"
	// Transient means a retry may succeed: 5xx, network, timeout.
	Transient Category = "Transient"
	// Permanent means the carrier or the adapter declared the failure final.
	Permanent Category = "Permanent"
)

// Error is a typed failure from a carrier adapter.
type Error struct {
	Carrier     string
	Category    Category
	Message     string
	CarrierCode string
	RetryAfter  time.Duration
	Raw         any
	Cause       error
}

func (e *Error) Error() string {
	prefix := "carrier"
	if e.Carrier != "" {
		prefix = e.Carrier
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", prefix, e.Category, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches category probes, so callers can write
// errors.Is(err, &carrier.Error{Category: carrier.Transient}).
// A target carrying a message is a distinct sentinel like
// ErrCarrierNotFound and only ever matches its own wrap chain.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message != "" {
		return e == t
	}
	return e.Category == t.Category
}

// NewError creates a new typed carrier error.
func NewError(carrierID string, category Category, message string) *Error {
	return &Error{Carrier: carrierID, Category: category, Message: message}
}

// WithCode attaches the carrier-native error code.
func (e *Error) WithCode(code string) *Error {
	e.CarrierCode = code
	return e
}

// WithRaw attaches the raw carrier payload.
func (e *Error) WithRaw(raw any) *Error {
	e.Raw = raw
	return e
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithRetryAfter preserves the carrier's Retry-After hint.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// FromHTTPStatus maps an HTTP status to the error taxonomy:
// 400/404 and other data 4xx to Validation, 401/403 to Auth,
// 429 to RateLimit, 5xx to Transient.
func FromHTTPStatus(carrierID string, status int, message string) *Error {
	var category Category
	switch {
	case status == 401 || status == 403:
		category = Auth
	case status == 429:
		category = RateLimit
	case status >= 500:
		category = Transient
	case status >= 400:
		category = Validation
	default:
		category = Permanent
	}
	if message == "" {
		message = fmt.Sprintf("carrier returned HTTP %d", status)
	}
	return NewError(carrierID, category, message)
}

// WrapError promotes any error into a typed carrier error. Typed errors
// pass through unchanged; context and network failures become Transient,
// as does everything unrecognized.
func WrapError(carrierID string, err error) *Error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewError(carrierID, Transient, "request timed out").WithCause(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return NewError(carrierID, Transient, "network error").WithCause(err)
	}
	return NewError(carrierID, Transient, err.Error()).WithCause(err).WithRaw(err)
}

// CategoryOf extracts the category of an error, Transient if untyped.
func CategoryOf(err error) Category {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Category
	}
	return Transient
}

// IsRetryable reports whether the caller may reasonably retry.
func IsRetryable(err error) bool {
	switch CategoryOf(err) {
	case Transient, RateLimit:
		return true
	}
	return false
}
