package forecast

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownLocation is returned when a name is not in the registry.
	ErrUnknownLocation = errors.New("unknown location")

	// ErrUpstreamUnavailable covers network failures and non-2xx responses
	// from the upstream API. Transient; retried by the coordinator.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")

	// ErrUpstreamNotFound is a 404 from the upstream. On a forecast fetch it
	// signals a stale grid reference rather than a transient outage.
	ErrUpstreamNotFound = errors.New("upstream resource not found")

	// ErrUpstreamShape is returned when the upstream responded 2xx but the
	// payload is missing fields the client depends on.
	ErrUpstreamShape = errors.New("unexpected upstream response shape")

	// ErrValidation marks malformed forecast payloads rejected by the
	// normalizer. Match with errors.Is; the concrete *ValidationError
	// carries the offending field path.
	ErrValidation = errors.New("forecast validation failed")

	// ErrCacheIO wraps local storage failures.
	ErrCacheIO = errors.New("cache i/o failure")

	// ErrNotFound is returned by a store when no record exists for a
	// location. Explicit absence, not a failure.
	ErrNotFound = errors.New("no cached forecast for location")
)

// ValidationError reports a missing or malformed required field in an
// upstream forecast payload, identified by its JSON path.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid forecast payload: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}
