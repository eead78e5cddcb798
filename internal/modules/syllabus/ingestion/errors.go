package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/lectureplanner-backend/internal/modules/syllabus/validation"
)

type attempts struct {
	Attempts int
}

func (a *attempts) setAttempts(n int) { a.Attempts = n }

// GetAttempts reports how many round trips ran before the error was returned.
func (a attempts) GetAttempts() int { return a.Attempts }

type attemptCounter interface{ setAttempts(int) }

// ConfigurationError means the pipeline cannot run at all, e.g. no API key.
type ConfigurationError struct {
	attempts
	Reason string
}

func (e *ConfigurationError) Error() string { return "ingestion not configured: " + e.Reason }

// InputError means the caller's request is unusable.
type InputError struct {
	attempts
	Err error
}

func (e *InputError) Error() string { return "invalid input: " + e.Err.Error() }
func (e *InputError) Unwrap() error { return e.Err }

// ConnectivityError covers DNS failures and transport errors that never
// reached the provider.
type ConnectivityError struct {
	attempts
	Host  string
	Stage string
	Err   error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("provider %s unreachable (%s) after %d attempt(s): %v", e.Host, e.Stage, e.Attempts, e.Err)
}
func (e *ConnectivityError) Unwrap() error { return e.Err }

// UpstreamError is a provider response that was not a usable reply.
// Body holds at most the first 500 bytes of the response.
type UpstreamError struct {
	attempts
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider returned status %d after %d attempt(s): %s", e.StatusCode, e.Attempts, e.Body)
	}
	return fmt.Sprintf("provider reply unusable after %d attempt(s): %v", e.Attempts, e.Err)
}
func (e *UpstreamError) Unwrap() error { return e.Err }

// ValidationError wraps a parse, schema or tree failure of the model reply.
type ValidationError struct {
	attempts
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("model reply rejected after %d attempt(s): %v", e.Attempts, e.Err)
}
func (e *ValidationError) Unwrap() error { return e.Err }

// SchemaError returns the structural error behind a ValidationError, if any.
func (e *ValidationError) SchemaError() *validation.SchemaError {
	var se *validation.SchemaError
	if errors.As(e.Err, &se) {
		return se
	}
	return nil
}

const (
	KindInput         = "input"
	KindConfiguration = "configuration"
	KindConnectivity  = "connectivity"
	KindUpstream      = "upstream"
	KindValidation    = "validation"
	KindCanceled      = "canceled"
	KindTimeout       = "timeout"
	KindInternal      = "internal"
)

// Kind classifies err into one of the Kind constants.
func Kind(err error) string {
	var (
		inErr   *InputError
		cfgErr  *ConfigurationError
		connErr *ConnectivityError
		upErr   *UpstreamError
		valErr  *ValidationError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &inErr):
		return KindInput
	case errors.As(err, &cfgErr):
		return KindConfiguration
	case errors.As(err, &connErr):
		return KindConnectivity
	case errors.As(err, &upErr):
		return KindUpstream
	case errors.As(err, &valErr):
		return KindValidation
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, context.Canceled):
		return KindCanceled
	default:
		return KindInternal
	}
}

func retryable(err error) bool {
	switch Kind(err) {
	case KindConnectivity, KindUpstream, KindValidation:
		return true
	default:
		return false
	}
}
