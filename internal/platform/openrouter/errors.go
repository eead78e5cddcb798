package openrouter

import (
	"errors"
	"fmt"
)

// MaxErrorBody bounds how much of a failed response body is kept.
const MaxErrorBody = 500

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "upstream http error"
	}
	if e.Body == "" {
		return fmt.Sprintf("upstream http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("upstream http error: status=%d body=%s", e.StatusCode, e.Body)
}

// TransportError means the request never produced an HTTP response
// (dial, TLS, reset, timeout).
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return "provider transport: " + e.Err.Error() }
func (e *TransportError) Unwrap() error { return e.Err }

var (
	ErrMissingAPIKey = errors.New("openrouter: api key required")
	ErrEmptyReply    = errors.New("openrouter: reply has no message content")
)

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
