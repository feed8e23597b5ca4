package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

// ErrInvalidEntry is wrapped by InvalidEntryError.
var ErrInvalidEntry = errors.New("invalid address book entry")

// Address book property names.
const (
	PropID            = "id"
	PropEntryType     = "entryType"
	PropName          = "name"
	PropUsercode      = "auth:name"
	PropDisplayName   = "longName"
	PropEmail         = "mail:address"
	PropTagID         = "tagId"
	PropIsDestination = "isDestination"
	PropIsSender      = "isSender"
	PropLabel         = "label"
)

// EntryType is the kind of directory entry.
type EntryType uint8

const (
	EntryTypeNone EntryType = iota
	EntryTypeUser
	EntryTypeGroup
)

// String returns the external value ("user" or "group"). None renders as
// "user".
func (t EntryType) String() string {
	if t == EntryTypeGroup {
		return "group"
	}
	return "user"
}

// ParseEntryType parses an external entry type, returning EntryTypeNone for
// anything else.
func ParseEntryType(s string) EntryType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return EntryTypeUser
	case "group":
		return EntryTypeGroup
	default:
		return EntryTypeNone
	}
}

// InvalidEntryError reports a directory row that is not a usable entry.
type InvalidEntryError struct {
	Properties wire.PropertyList
	Err        error
}

// Error implements the error interface.
func (e *InvalidEntryError) Error() string {
	pairs := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		pairs[i] = p.Name + "=" + p.Value
	}
	msg := "the specified address book entry is invalid [" + strings.Join(pairs, ",") + "]"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the cause.
func (e *InvalidEntryError) Unwrap() error {
	return e.Err
}

// Is matches ErrInvalidEntry.
func (e *InvalidEntryError) Is(target error) bool {
	return target == ErrInvalidEntry
}

// AddressBookEntry is an ordered, mutable property bag for one directory
// entry. Property names are case-insensitive. It is safe for concurrent
// use.
type AddressBookEntry struct {
	mu      sync.RWMutex
	props   wire.PropertyList
	changed map[string]struct{}
}

// NewAddressBookEntry creates an empty entry of type t.
func NewAddressBookEntry(t EntryType) *AddressBookEntry {
	e := &AddressBookEntry{changed: make(map[string]struct{})}
	e.Set(PropEntryType, t.String())
	return e
}

// EntryFromProperties validates a directory row: it needs a positive
// numeric id, a user or group entry type and a name. Failures return an
// *InvalidEntryError.
func EntryFromProperties(props wire.PropertyList) (*AddressBookEntry, error) {
	if len(props) == 0 {
		return nil, &InvalidEntryError{Err: errors.New("no properties")}
	}
	invalid := func(err error) error {
		return &InvalidEntryError{Properties: append(wire.PropertyList(nil), props...), Err: err}
	}

	id, err := strconv.ParseUint(strings.TrimSpace(props.Value(PropID)), 10, 32)
	if err != nil {
		return nil, invalid(fmt.Errorf("id: %w", err))
	}
	if id == 0 {
		return nil, invalid(errors.New("id must be positive"))
	}
	if ParseEntryType(props.Value(PropEntryType)) == EntryTypeNone {
		return nil, invalid(fmt.Errorf("unknown entry type %q", props.Value(PropEntryType)))
	}
	if props.Value(PropName) == "" {
		return nil, invalid(errors.New("name is empty"))
	}

	return &AddressBookEntry{
		props:   append(wire.PropertyList(nil), props...),
		changed: make(map[string]struct{}),
	}, nil
}

// ID returns the entry ID, 0 for entries not yet created.
func (e *AddressBookEntry) ID() uint32 {
	n, err := strconv.ParseUint(e.Get(PropID), 10, 32)
	if err != nil {
		return 0
	}
	return uint32(n)
}

// SetID sets the entry ID.
func (e *AddressBookEntry) SetID(id uint32) {
	e.Set(PropID, strconv.FormatUint(uint64(id), 10))
}

func (e *AddressBookEntry) EntryType() EntryType { return ParseEntryType(e.Get(PropEntryType)) }
func (e *AddressBookEntry) Name() string         { return e.Get(PropName) }
func (e *AddressBookEntry) Usercode() string     { return e.Get(PropUsercode) }
func (e *AddressBookEntry) DisplayName() string  { return e.Get(PropDisplayName) }
func (e *AddressBookEntry) Email() string        { return e.Get(PropEmail) }

func (e *AddressBookEntry) SetName(v string)        { e.Set(PropName, v) }
func (e *AddressBookEntry) SetUsercode(v string)    { e.Set(PropUsercode, v) }
func (e *AddressBookEntry) SetDisplayName(v string) { e.Set(PropDisplayName, v) }
func (e *AddressBookEntry) SetEmail(v string)       { e.Set(PropEmail, v) }

// Get returns the named property value, or "".
func (e *AddressBookEntry) Get(name string) string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.props.Value(name)
}

// Set updates or appends a property and marks it changed. Empty names are
// ignored.
func (e *AddressBookEntry) Set(name, value string) {
	if name == "" {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.changed == nil {
		e.changed = make(map[string]struct{})
	}
	e.changed[strings.ToLower(name)] = struct{}{}
	for i := range e.props {
		if strings.EqualFold(e.props[i].Name, name) {
			e.props[i].Value = value
			return
		}
	}
	e.props = append(e.props, wire.Property{Name: name, Value: value})
}

// Clear removes a property and reports whether it existed.
func (e *AddressBookEntry) Clear(name string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.props {
		if strings.EqualFold(e.props[i].Name, name) {
			e.props = append(e.props[:i], e.props[i+1:]...)
			delete(e.changed, strings.ToLower(name))
			return true
		}
	}
	return false
}

// Properties returns a copy of the properties in order, limited to
// supported names when supported is not nil.
func (e *AddressBookEntry) Properties(supported []string) wire.PropertyList {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(wire.PropertyList, 0, len(e.props))
	for _, p := range e.props {
		if supported == nil || containsFold(supported, p.Name) {
			out = append(out, p)
		}
	}
	return out
}

// Changes returns the properties set since the entry was loaded or last
// marked clean, in property order.
func (e *AddressBookEntry) Changes() wire.PropertyList {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out wire.PropertyList
	for _, p := range e.props {
		if _, ok := e.changed[strings.ToLower(p.Name)]; ok {
			out = append(out, p)
		}
	}
	return out
}

// MarkClean forgets all pending changes.
func (e *AddressBookEntry) MarkClean() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.changed = make(map[string]struct{})
}

// Map returns the properties as a map.
func (e *AddressBookEntry) Map() map[string]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	m := make(map[string]string, len(e.props))
	for _, p := range e.props {
		m[p.Name] = p.Value
	}
	return m
}

// String implements fmt.Stringer.
func (e *AddressBookEntry) String() string {
	return fmt.Sprintf("[%04d] %-5s %s", e.ID(), e.EntryType(), e.Name())
}

// Truncate returns a copy of props with each property shortened to the
// limit given for its name. Non-positive limits are ignored.
func Truncate(props wire.PropertyList, limits map[string]int) wire.PropertyList {
	out := make(wire.PropertyList, len(props))
	for i, p := range props {
		for name, limit := range limits {
			if limit > 0 && strings.EqualFold(name, p.Name) {
				if r := []rune(p.Value); len(r) > limit {
					p.Value = string(r[:limit])
				}
				break
			}
		}
		out[i] = p
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
