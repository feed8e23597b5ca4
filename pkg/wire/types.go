package wire

import (
	"fmt"
	"strings"
)

// SessionType selects the lock mode requested when a session starts.
type SessionType uint8

const (
	// SessionShared allows concurrent readers. This is the default.
	SessionShared SessionType = iota

	// SessionExclusive locks the service for writes.
	SessionExclusive
)

// String returns the session type name.
func (t SessionType) String() string {
	switch t {
	case SessionShared:
		return "shared"
	case SessionExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// LockMode returns the external lockMode value ("S" or "X").
func (t SessionType) LockMode() string {
	if t == SessionExclusive {
		return "X"
	}
	return "S"
}

// ParseSessionType parses a session type name or lock mode.
func ParseSessionType(s string) (SessionType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "s", "shared":
		return SessionShared, nil
	case "x", "exclusive":
		return SessionExclusive, nil
	default:
		return SessionShared, fmt.Errorf("unknown session type %q", s)
	}
}

// Property is a single name/value pair.
type Property struct {
	Name  string `xml:"propName"`
	Value string `xml:"propVal"`
}

// PropertyList is an ordered list of properties.
type PropertyList []Property

// Get returns the first property whose name matches (case-insensitive).
func (l PropertyList) Get(name string) (Property, bool) {
	for _, p := range l {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return Property{}, false
}

// Value returns the value of the named property, or "" if absent.
func (l PropertyList) Value(name string) string {
	p, _ := l.Get(name)
	return p.Value
}

// Names returns the property names in order.
func (l PropertyList) Names() []string {
	names := make([]string, len(l))
	for i, p := range l {
		names[i] = p.Name
	}
	return names
}

// Row is one result row of a directory search.
type Row struct {
	Properties PropertyList `xml:"item"`
}

// Field is an untyped field as transmitted: a name, a type tag and the
// string form of the value.
type Field struct {
	Name  string `xml:"name"`
	Type  string `xml:"type"`
	Value string `xml:"value"`
}

// FieldCapability describes one field of an object as declared by the device.
type FieldCapability struct {
	Name      string   `xml:"name"`
	Type      string   `xml:"type"`
	Readable  bool     `xml:"readable"`
	Writable  bool     `xml:"writable"`
	RangeType string   `xml:"rangeType,omitempty"`
	Min       string   `xml:"min,omitempty"`
	Max       string   `xml:"max,omitempty"`
	ValueEnum []string `xml:"valueEnum>item,omitempty"`
	Value     string   `xml:"value,omitempty"`
}

// ObjectCapability is the capability schema of a single object.
type ObjectCapability struct {
	Name     string            `xml:"name"`
	ObjectID uint32            `xml:"oid"`
	Fields   []FieldCapability `xml:"fieldList>item"`
}

// FieldNames returns the names of all declared fields in order.
func (c *ObjectCapability) FieldNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.Name
	}
	return names
}

// Object is a device management object with its field values.
type Object struct {
	Name     string  `xml:"name"`
	Class    string  `xml:"class"`
	ObjectID uint32  `xml:"oid"`
	Fields   []Field `xml:"fieldList>item"`
}
