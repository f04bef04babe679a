package agent

import "fmt"

// ValidationError reports malformed user input: empty, whitespace-only or
// oversized queries, or a missing required entity. It is always the caller's
// input at fault, never the system.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErrorf(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ClassificationError reports that the language model failed to produce a
// usable structured query: the upstream call errored after retries, or the
// response was not valid JSON, or required fields were missing. It is kept
// distinct from plain upstream errors because an incomplete response is a
// contract violation, not a network issue.
type ClassificationError struct {
	Message string
	Cause   error
}

func (e *ClassificationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClassificationError) Unwrap() error { return e.Cause }

// APIError wraps a failure from an external provider, carrying the provider
// name and HTTP status when available.
type APIError struct {
	Service    string
	StatusCode int
	Message    string
	Cause      error
}

func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API error (status %d): %s", e.Service, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: %s", e.Service, e.Message)
}

func (e *APIError) Unwrap() error { return e.Cause }
