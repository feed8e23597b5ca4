package devicemanagement

import "github.com/gheeres/ricoh-go/pkg/model"

// EventType identifies a service event.
type EventType uint8

const (
	// EventCounterRetrieved - a user counter was read.
	EventCounterRetrieved EventType = iota

	// EventCounterReset - a user counter was cleared.
	EventCounterReset

	// EventAccessControlRetrieved - a user restriction was read.
	EventAccessControlRetrieved

	// EventAccessControlChanged - a user restriction was written.
	EventAccessControlChanged

	// EventObjectFailed - reading or writing one object failed.
	EventObjectFailed
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventCounterRetrieved:
		return "COUNTER_RETRIEVED"
	case EventCounterReset:
		return "COUNTER_RESET"
	case EventAccessControlRetrieved:
		return "ACCESS_CONTROL_RETRIEVED"
	case EventAccessControlChanged:
		return "ACCESS_CONTROL_CHANGED"
	case EventObjectFailed:
		return "OBJECT_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Event is a service event.
type Event struct {
	Type EventType

	// Host is the device host.
	Host string

	// ObjectID is the object concerned.
	ObjectID uint32

	// Counter is set for counter events. It is nil for counters cleared by
	// ClearAll, which never reads them.
	Counter *model.UserCounter

	// AccessControl is set for access control events. After a change it
	// holds the written state.
	AccessControl *model.UserAccessControl

	// Category is the category changed (access control changes only).
	Category model.Category

	// Error is set for EventObjectFailed.
	Error error
}

// EventHandler handles service events.
type EventHandler func(Event)
