package proxy

import (
	"errors"
	"fmt"
)

// Sentinel errors for upstream operations.
var (
	// ErrUpstreamUnreachable indicates that the upstream could not be reached.
	ErrUpstreamUnreachable = errors.New("upstream unreachable")

	// ErrUpstreamTimeout indicates that the upstream request timed out.
	ErrUpstreamTimeout = errors.New("upstream request timed out")

	// ErrMalformedBody indicates that an upstream success response carried a
	// body that could not be decoded.
	ErrMalformedBody = errors.New("malformed upstream response body")
)

// FetchError represents an upstream fetch failure with details. Cause is one
// of the package sentinels so callers can classify with errors.Is; Message
// preserves the underlying transport or decode detail.
type FetchError struct {
	Op      string // operation that failed
	Target  string // target URL if applicable
	Message string // underlying detail
	Cause   error  // sentinel classification
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("upstream error [%s] target=%s: %v: %s",
			e.Op, e.Target, e.Cause, e.Message)
	}
	return fmt.Sprintf("upstream error [%s]: %v: %s", e.Op, e.Cause, e.Message)
}

// Unwrap returns the sentinel classification.
func (e *FetchError) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target.
func (e *FetchError) Is(target error) bool {
	_, ok := target.(*FetchError)
	return ok || errors.Is(e.Cause, target)
}

// NewUnreachableError creates an error for a failed upstream connection.
func NewUnreachableError(target string, cause error) *FetchError {
	return &FetchError{
		Op:      "fetch",
		Target:  target,
		Message: cause.Error(),
		Cause:   ErrUpstreamUnreachable,
	}
}

// NewTimeoutError creates an error for an upstream request that timed out.
func NewTimeoutError(target string, cause error) *FetchError {
	return &FetchError{
		Op:      "fetch",
		Target:  target,
		Message: cause.Error(),
		Cause:   ErrUpstreamTimeout,
	}
}

// NewMalformedBodyError creates an error for an undecodable upstream body.
func NewMalformedBodyError(target string, cause error) *FetchError {
	return &FetchError{
		Op:      "decode",
		Target:  target,
		Message: cause.Error(),
		Cause:   ErrMalformedBody,
	}
}

// IsUnreachable checks if an error indicates an unreachable upstream.
func IsUnreachable(err error) bool {
	return errors.Is(err, ErrUpstreamUnreachable)
}

// IsTimeout checks if an error indicates an upstream timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout)
}

// IsMalformedBody checks if an error indicates an undecodable upstream body.
func IsMalformedBody(err error) bool {
	return errors.Is(err, ErrMalformedBody)
}
