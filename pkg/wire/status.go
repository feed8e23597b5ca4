package wire

import "strings"

// Status is the returnValue code reported by the device.
type Status string

const (
	// StatusOK indicates the operation completed successfully.
	StatusOK Status = "OK"

	// StatusTruncated indicates the result was cut short by the device.
	StatusTruncated Status = "TRUNCATED"

	// StatusEndOfDirectory indicates a search has no more rows.
	StatusEndOfDirectory Status = "EOD"

	// StatusServerFault indicates a generic SOAP server failure.
	StatusServerFault Status = "COMMON_SOAP_SERVER"

	// StatusBadParameter indicates a request parameter was rejected.
	StatusBadParameter Status = "COMMON_BAD_PARAMETER"

	// StatusDirectoryInconsistent is reported when a directory write
	// collides with an existing entry.
	StatusDirectoryInconsistent Status = "UDIRECTORY_DIRECTORY_INCONSISTENT"

	// StatusBadObjectID is reported by older firmware when a field that
	// claims to be writable is not.
	StatusBadObjectID Status = "MANAGEMENT_BAD_OBJECT_ID"
)

// String returns the status code.
func (s Status) String() string {
	if s == "" {
		return "EMPTY"
	}
	return string(s)
}

// IsOK returns true if the status is empty or OK (case-insensitive).
// Some firmware omits the returnValue on success.
func (s Status) IsOK() bool {
	trimmed := strings.TrimSpace(string(s))
	return trimmed == "" || strings.EqualFold(trimmed, string(StatusOK))
}

// IsEndOfDirectory returns true for the search terminal status.
func (s Status) IsEndOfDirectory() bool {
	return strings.EqualFold(strings.TrimSpace(string(s)), string(StatusEndOfDirectory))
}

// IsError returns true if the status is neither OK nor end of directory.
func (s Status) IsError() bool {
	return !s.IsOK() && !s.IsEndOfDirectory()
}

// StatusError reports a response whose returnValue is not acceptable for
// the operation.
type StatusError struct {
	Action string
	Status Status
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return "unexpected status " + e.Status.String() + " from " + e.Action
}
