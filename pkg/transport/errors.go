package transport

import (
	"errors"
	"fmt"
)

// Transport errors.
var (
	ErrEntryPointNotFound = errors.New("entry point not found")
	ErrMalformedResponse  = errors.New("malformed response")
	ErrUnexpectedStatus   = errors.New("unexpected http status")
)

// CommunicationError is a channel-level failure: the request could not be
// delivered or the device failed before producing a SOAP answer.
type CommunicationError struct {
	Endpoint string
	Action   string

	// StatusCode is the HTTP status, or 0 when no response arrived.
	StatusCode int

	Err error
}

// Error implements the error interface.
func (e *CommunicationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("communication with %s (%s) failed: http %d: %v", e.Endpoint, e.Action, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("communication with %s (%s) failed: %v", e.Endpoint, e.Action, e.Err)
}

// Unwrap returns the underlying error.
func (e *CommunicationError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEntryPointNotFound) {
		return true
	}
	var ce *CommunicationError
	return errors.As(err, &ce)
}
