package backend

import (
	"errors"
	"net/http"
)

// ErrTransport matches every failure to reach the backend or to finish
// reading one of its responses.
var ErrTransport = errors.New("transport error")

// TransportError carries the operation that could not complete.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return e.Op + " failed: " + e.Err.Error()
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}

// ServerError is a non-2xx response. Message is the backend's {error: ...}
// text when it sent one.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.StatusCode)
}

func transportError(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}
