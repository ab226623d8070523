package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransport is matched by every TransportError
	ErrTransport = errors.New("transport error")
	// ErrNotFound is matched by a ServerError with status 404
	ErrNotFound = errors.New("resource not found")
	// ErrConflict is matched by a ServerError with status 409
	ErrConflict = errors.New("resource already exists")
)

// TransportError is returned when an exchange did not complete. The outcome
// on the server is unknown, so only the whole delivery may be retried.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %s: %v", e.Method, e.URL, ErrTransport, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrTransport
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// ServerError is returned for non-2xx responses. Code, Message and Type come
// from the gateway error payload when one was present. Verified is false
// when the response carried no signature.
type ServerError struct {
	Status   int
	Code     string
	Message  string
	Type     string
	Location string
	Verified bool
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("server returned %d %s", e.Status, http.StatusText(e.Status))
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if !e.Verified {
		msg += " (unverified)"
	}
	return msg
}

// Is matches ErrNotFound for 404 and ErrConflict for 409
func (e *ServerError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrConflict:
		return e.Status == http.StatusConflict
	}
	return false
}
