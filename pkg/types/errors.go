package types

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by every component
var (
	// ErrValidation indicates malformed caller input (mismatched lengths, bad topK)
	ErrValidation = errors.New("validation failed")
	// ErrAuth indicates a missing or rejected credential for an external service
	ErrAuth = errors.New("authentication failed")
	// ErrRateLimited indicates an upstream threshold was hit; safe to retry later
	ErrRateLimited = errors.New("rate limited")
	// ErrUpstream indicates a non-retryable upstream failure
	ErrUpstream = errors.New("upstream failure")
	// ErrEmptyInput indicates an attempt to embed blank text
	ErrEmptyInput = errors.New("empty input")
)

// Search result errors
var (
	ErrInvalidResultID = errors.New("result ID is required")
	ErrInvalidRank     = errors.New("rank must be >= 0")
	ErrInvalidDistance = errors.New("distance must be between 0 and 2")
	ErrEmptyContent    = errors.New("content cannot be empty")
)

// ValidationErrorf builds an error wrapping ErrValidation
func ValidationErrorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// UpstreamError describes a failed call to an external service.
// Err is one of ErrAuth, ErrRateLimited, ErrValidation or ErrUpstream.
type UpstreamError struct {
	Service    string
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %v (status %d): %s", e.Service, e.Err, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: %v: %s", e.Service, e.Err, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether a later retry can succeed (rate limits only)
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// ErrorClass groups errors by what the caller should do about them
type ErrorClass string

const (
	ClassConfiguration ErrorClass = "configuration" // fix credentials or settings
	ClassTransient     ErrorClass = "transient"     // retry later
	ClassPermanent     ErrorClass = "permanent"     // fix the request
	ClassUnknown       ErrorClass = "unknown"
)

// Classify maps an error onto an ErrorClass
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassUnknown
	case errors.Is(err, ErrAuth):
		return ClassConfiguration
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	case errors.Is(err, ErrValidation),
		errors.Is(err, ErrEmptyInput),
		errors.Is(err, ErrUpstream):
		return ClassPermanent
	default:
		return ClassUnknown
	}
}

// Hint returns a short user-facing suggestion for an error class
func (c ErrorClass) Hint() string {
	switch c {
	case ClassConfiguration:
		return "check the configured credentials"
	case ClassTransient:
		return "temporary condition, retry shortly"
	case ClassPermanent:
		return "the request cannot succeed as written"
	default:
		return "unexpected failure, see server logs"
	}
}
