package udirectory

import (
	"errors"
	"fmt"
)

var (
	// ErrNameRequired is returned when adding an entry without a name.
	ErrNameRequired = errors.New("entry name is required")

	// ErrEntryNotFound is returned when the device has no entry with the
	// requested ID.
	ErrEntryNotFound = errors.New("address book entry not found")

	// ErrNotCreated is returned for entries that have no ID yet, and when
	// the device accepted a create without returning one.
	ErrNotCreated = errors.New("address book entry not created")

	// ErrDuplicateEntry is matched by DuplicateEntryError.
	ErrDuplicateEntry = errors.New("duplicate address book entry")
)

// DuplicateEntryError is returned when the device rejects a new entry,
// typically because the user code is already in use.
type DuplicateEntryError struct {
	Host     string
	Usercode string
	Name     string
	Err      error
}

// Error implements the error interface.
func (e *DuplicateEntryError) Error() string {
	msg := fmt.Sprintf("the address book entry %q / authentication code %q is already in use (%s)", e.Name, e.Usercode, e.Host)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *DuplicateEntryError) Unwrap() error {
	return e.Err
}

// Is matches ErrDuplicateEntry.
func (e *DuplicateEntryError) Is(target error) bool {
	return target == ErrDuplicateEntry
}
