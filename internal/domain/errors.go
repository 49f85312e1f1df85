package domain

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors
var (
	// ErrInvalidRepoURL indicates the repository identifier lacks namespace and project
	ErrInvalidRepoURL = errors.New("invalid repository URL")

	// ErrUnparseableSSH indicates an SSH identifier could not be split into host and path
	ErrUnparseableSSH = errors.New("unable to parse SSH URL")

	// ErrInvalidPattern indicates a glob pattern failed to compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrBranchesUnavailable indicates the branch list could not be fetched or was empty
	ErrBranchesUnavailable = errors.New("failed to fetch branches")

	// ErrNoMatchingRef indicates no branch or commit matched the URL
	ErrNoMatchingRef = errors.New("invalid branch or commit reference")

	// ErrRateLimited indicates rate limiting was encountered
	ErrRateLimited = errors.New("rate limited")

	// ErrBinaryContent indicates a file could not be decoded as text
	ErrBinaryContent = errors.New("binary file or encoding issue")

	// ErrUnsupportedHost indicates an unknown host kind
	ErrUnsupportedHost = errors.New("unsupported host kind")
)

// APIError represents a non-success response from the hosting service
type APIError struct {
	Op         string
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d", e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError, keeping at most 200 bytes of body
func NewAPIError(op, url string, statusCode int, body []byte) *APIError {
	if len(body) > 200 {
		body = body[:200]
	}
	return &APIError{
		Op:         op,
		URL:        url,
		StatusCode: statusCode,
		Body:       string(body),
	}
}

// RateLimitError carries the host's hint about when to retry
type RateLimitError struct {
	Op string
	// Reset is the absolute time the limit lifts. Zero when unknown.
	Reset time.Time
	// RetryAfter is a relative wait. Zero when unknown.
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	switch {
	case !e.Reset.IsZero():
		return fmt.Sprintf("%s: rate limit exceeded, resets at %s", e.Op, e.Reset.Format(time.RFC3339))
	case e.RetryAfter > 0:
		return fmt.Sprintf("%s: rate limit exceeded, retry after %s", e.Op, e.RetryAfter)
	default:
		return fmt.Sprintf("%s: rate limit exceeded", e.Op)
	}
}

func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// Wait returns how long to sleep before retrying, never less than minExtra
func (e *RateLimitError) Wait(now time.Time, minExtra time.Duration) time.Duration {
	var wait time.Duration
	if !e.Reset.IsZero() {
		wait = e.Reset.Sub(now)
	} else {
		wait = e.RetryAfter
	}
	if wait < 0 {
		wait = 0
	}
	return wait + minExtra
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var rl *RateLimitError
	if errors.As(err, &rl) {
		return true
	}
	return StatusCode(err) == http.StatusTooManyRequests || errors.Is(err, ErrRateLimited)
}

// StatusCode extracts the HTTP status from an APIError chain, 0 if absent
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
