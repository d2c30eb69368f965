package evaluator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/spigell/fitcheck/internal/utils"
)

const maxBodyInError = 500

var (
	ErrValidation        = errors.New("missing required input")
	ErrUnreachable       = errors.New("backend unreachable")
	ErrBackend           = errors.New("backend error")
	ErrMalformedResponse = errors.New("malformed response")
	ErrResponseTooLarge  = fmt.Errorf("response is larger than %d bytes", maxResponseBytes)
)

// ValidationError lists the request fields that were blank after trimming.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransportError covers DNS failures, refused connections and timeouts.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s %s: %v", ErrUnreachable, e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error { return []error{ErrUnreachable, e.Err} }

// Timeout reports whether the request ran out of time.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

// BackendError is a non-2xx answer. Body is kept verbatim for diagnostics
// and is never parsed.
type BackendError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *BackendError) Error() string {
	status := strings.TrimSpace(e.Status)
	if status == "" {
		status = fmt.Sprintf("%d", e.StatusCode)
	}

	body := utils.TruncateForLog(e.Body, maxBodyInError)
	if body == "" {
		return fmt.Sprintf("%s: status %s", ErrBackend, status)
	}
	return fmt.Sprintf("%s: status %s: %s", ErrBackend, status, body)
}

func (e *BackendError) Unwrap() error { return ErrBackend }

// MalformedResponseError is a 2xx answer whose body is not a JSON object.
type MalformedResponseError struct {
	Body string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() []error { return []error{ErrMalformedResponse, e.Err} }
