package udirectory

import (
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// EventType identifies a service event.
type EventType uint8

const (
	// EventEntryRetrieved - an entry was read.
	EventEntryRetrieved EventType = iota

	// EventEntryAdded - an entry was created.
	EventEntryAdded

	// EventEntryRemoved - an entry was deleted.
	EventEntryRemoved

	// EventEntryInvalid - a row could not be read as an entry.
	EventEntryInvalid
)

// String returns the event type name.
func (e EventType) String() string {
	switch e {
	case EventEntryRetrieved:
		return "ENTRY_RETRIEVED"
	case EventEntryAdded:
		return "ENTRY_ADDED"
	case EventEntryRemoved:
		return "ENTRY_REMOVED"
	case EventEntryInvalid:
		return "ENTRY_INVALID"
	default:
		return "UNKNOWN"
	}
}

// Event is a service event.
type Event struct {
	Type EventType

	// Host is the device host.
	Host string

	// ID is the entry concerned (0 for invalid rows without one).
	ID uint32

	// Entry is set for retrieved and added entries.
	Entry *model.AddressBookEntry

	// Properties holds the raw row of an invalid entry.
	Properties wire.PropertyList

	// Error is set for invalid entries.
	Error error
}

// EventHandler handles service events.
type EventHandler func(Event)
