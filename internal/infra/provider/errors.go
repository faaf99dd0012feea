package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// HTTPStatusError is returned when the provider answers with a non-200 status.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// RemoteError carries the err_msg of a JSON error response.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error: %s", e.Message)
}

// UnexpectedContentTypeError is returned for responses that are neither JSON
// nor a zip archive.
type UnexpectedContentTypeError struct {
	ContentType string
}

func (e *UnexpectedContentTypeError) Error() string {
	return fmt.Sprintf("unexpected content type %q", e.ContentType)
}

// IsTransient reports whether a fetch error is worth retrying within the same
// cycle: network failures, timeouts, throttling and server-side errors.
// Remote error messages and content-type mismatches are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests ||
			statusErr.StatusCode == http.StatusRequestTimeout ||
			statusErr.StatusCode >= 500
	}

	var remoteErr *RemoteError
	var ctErr *UnexpectedContentTypeError
	if errors.As(err, &remoteErr) || errors.As(err, &ctErr) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var transportErr *TransportError
	return errors.As(err, &transportErr)
}

// TransportError wraps a failure to complete the HTTP exchange.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("provider request: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
