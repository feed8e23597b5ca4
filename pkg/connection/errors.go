package connection

import (
	"errors"
	"fmt"
)

// Session errors.
var (
	ErrNotConnected  = errors.New("not connected")
	ErrManagerClosed = errors.New("session manager closed")
)

// OperationFailedError wraps any failure of a remote operation with the
// host and operation it concerned.
type OperationFailedError struct {
	Host      string
	Operation string

	// Attempts is the number of calls made, 0 when not tracked.
	Attempts int

	Err error
}

// Error implements the error interface.
func (e *OperationFailedError) Error() string {
	msg := fmt.Sprintf("the requested external operation on %s (%s) failed", e.Host, e.Operation)
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" after %d attempts", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *OperationFailedError) Unwrap() error {
	return e.Err
}

// IsOperationFailed reports whether err is or wraps an OperationFailedError.
func IsOperationFailed(err error) bool {
	var of *OperationFailedError
	return errors.As(err, &of)
}

func operationFailed(host, op string, err error) error {
	var of *OperationFailedError
	if errors.As(err, &of) {
		return err
	}
	return &OperationFailedError{Host: host, Operation: op, Err: err}
}

// PartialError is returned together with the successful subset of a bulk
// operation when some items failed. Err combines the per-item failures.
type PartialError struct {
	Operation string
	Succeeded int
	Failed    int
	Err       error
}

// Error implements the error interface.
func (e *PartialError) Error() string {
	return fmt.Sprintf("%s: %d of %d failed: %v", e.Operation, e.Failed, e.Succeeded+e.Failed, e.Err)
}

// Unwrap returns the combined failures.
func (e *PartialError) Unwrap() error {
	return e.Err
}
