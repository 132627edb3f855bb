package model

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidPosting marks a posting that is missing required fields.
	ErrInvalidPosting = errors.New("invalid posting")
	// ErrInvalidSubscriber marks subscriber preferences that break the data model.
	ErrInvalidSubscriber = errors.New("invalid subscriber")
	// ErrUnknownValue is returned when parsing an enum value fails.
	ErrUnknownValue = errors.New("unknown value")
	// ErrNotFound is returned by lookups that match no row.
	ErrNotFound = errors.New("not found")
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
