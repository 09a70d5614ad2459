package errs

import (
	"errors"
	"fmt"
)

// ErrEmptyCapture is returned when a snapshot is requested on a blank raster.
var ErrEmptyCapture = errors.New("canvas is empty")

// ErrNoCapture is returned when submitting before a capture was confirmed.
var ErrNoCapture = errors.New("no capture to submit")

// ErrBusy is returned when a recognition is already outstanding.
var ErrBusy = errors.New("recognition already in progress")

// ConfigMissingError reports a required setting left blank.
type ConfigMissingError struct {
	Field string
}

func (e *ConfigMissingError) Error() string {
	return fmt.Sprintf("setting %q must not be empty", e.Field)
}

// TransportError wraps a network failure that kept a request from completing.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RemoteError is a non-success HTTP answer.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote error [%d]: %s", e.Status, e.Message)
}

// MalformedResponseError is a success answer whose body could not be used.
type MalformedResponseError struct {
	Reason string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed response: %s: %v", e.Reason, e.Err)
	}
	return "malformed response: " + e.Reason
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
