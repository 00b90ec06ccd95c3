package inference

import (
	"errors"
	"fmt"
)

// TransientError marks a failure worth retrying, like a timeout or a rate
// limit.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// FatalError marks a failure retrying cannot fix, like a bad API key or a
// malformed request.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as retryable.
func NewTransientError(err error) error {
	return &TransientError{Err: err}
}

// NewFatalError wraps an error as non-retryable.
func NewFatalError(err error) error {
	return &FatalError{Err: err}
}

// IsTransient reports whether the error chain contains a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsFatal reports whether the error chain contains a FatalError.
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// classifyHTTPError turns a provider HTTP status into a transient or fatal
// error. Rate limits and server-side failures retry; auth and request
// errors do not.
func classifyHTTPError(statusCode int, body string) error {
	if len(body) > 200 {
		body = body[:200] + "..."
	}

	switch {
	case statusCode == 429:
		return NewTransientError(fmt.Errorf("rate limited (HTTP %d): %s", statusCode, body))
	case statusCode == 502 || statusCode == 503 || statusCode == 504:
		return NewTransientError(fmt.Errorf("upstream unavailable (HTTP %d): %s", statusCode, body))
	case statusCode >= 500:
		return NewTransientError(fmt.Errorf("server error (HTTP %d): %s", statusCode, body))
	case statusCode == 401 || statusCode == 403:
		return NewFatalError(fmt.Errorf("authentication failed (HTTP %d): %s", statusCode, body))
	case statusCode == 400:
		return NewFatalError(fmt.Errorf("bad request (HTTP %d): %s", statusCode, body))
	default:
		return NewFatalError(fmt.Errorf("unexpected status (HTTP %d): %s", statusCode, body))
	}
}
