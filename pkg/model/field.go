package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

// Field type tags.
const (
	TypeString      = "DM_FIELD_STRING"
	TypeUnsignedInt = "DM_FIELD_UNSIGNED_INT"
	TypeEnum        = "DM_FIELD_ENUM"
)

// Enum literals.
const (
	On  = "ON"
	Off = "OFF"
)

// Access flags for fields.
type Access uint8

const (
	// AccessRead allows reading the field.
	AccessRead Access = 1 << iota

	// AccessWrite allows writing the field.
	AccessWrite

	// AccessReadWrite is read and write.
	AccessReadWrite = AccessRead | AccessWrite
)

// CanRead returns true if reading is allowed.
func (a Access) CanRead() bool { return a&AccessRead != 0 }

// CanWrite returns true if writing is allowed.
func (a Access) CanWrite() bool { return a&AccessWrite != 0 }

// String returns the access flags as a string.
func (a Access) String() string {
	var s string
	if a.CanRead() {
		s += "R"
	}
	if a.CanWrite() {
		s += "W"
	}
	if s == "" {
		return "-"
	}
	return s
}

// AccessOf returns the access declared by a capability. A nil capability
// grants nothing.
func AccessOf(c *wire.FieldCapability) Access {
	var a Access
	if c == nil {
		return a
	}
	if c.Readable {
		a |= AccessRead
	}
	if c.Writable {
		a |= AccessWrite
	}
	return a
}

// Kind is the Go type carried by a Field.
type Kind uint8

const (
	KindString Kind = iota
	KindUint
	KindBool
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindUint:
		return "uint32"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Field is a typed device field.
type Field struct {
	// Name is the field name as reported by the device.
	Name string

	// ExternalType is the type tag the value is sent back with.
	ExternalType string

	Access Access

	kind Kind
	str  string
	num  uint32
	flag bool
}

// StringField creates a string field.
func StringField(name, value string, access Access) Field {
	return Field{Name: name, ExternalType: TypeString, Access: access, kind: KindString, str: value}
}

// UintField creates an unsigned integer field.
func UintField(name string, value uint32, access Access) Field {
	return Field{Name: name, ExternalType: TypeUnsignedInt, Access: access, kind: KindUint, num: value}
}

// BoolField creates an enum field holding ON or OFF.
func BoolField(name string, value bool, access Access) Field {
	return Field{Name: name, ExternalType: TypeEnum, Access: access, kind: KindBool, flag: value}
}

// Kind returns the Go type of the value.
func (f Field) Kind() Kind {
	return f.kind
}

// Value returns the value as string, uint32 or bool.
func (f Field) Value() any {
	switch f.kind {
	case KindUint:
		return f.num
	case KindBool:
		return f.flag
	default:
		return f.str
	}
}

// Text returns the value when the field holds a string.
func (f Field) Text() (string, bool) {
	return f.str, f.kind == KindString
}

// Uint returns the value when the field holds a number.
func (f Field) Uint() (uint32, bool) {
	return f.num, f.kind == KindUint
}

// Bool returns the value when the field holds a boolean.
func (f Field) Bool() (bool, bool) {
	return f.flag, f.kind == KindBool
}

// IsNumeric returns true for number fields.
func (f Field) IsNumeric() bool {
	return f.kind == KindUint
}

// Is returns true if the field name matches one of names (case-insensitive).
func (f Field) Is(names ...string) bool {
	for _, n := range names {
		if strings.EqualFold(n, f.Name) {
			return true
		}
	}
	return false
}

// ExternalValue renders the value the way the device expects it. Booleans
// of enum fields become ON or OFF.
func (f Field) ExternalValue() string {
	switch f.kind {
	case KindBool:
		if strings.EqualFold(f.ExternalType, TypeEnum) {
			if f.flag {
				return On
			}
			return Off
		}
		return strconv.FormatBool(f.flag)
	case KindUint:
		return strconv.FormatUint(uint64(f.num), 10)
	default:
		return f.str
	}
}

// Wire converts the field back to its transmitted form.
func (f Field) Wire() wire.Field {
	return wire.Field{Name: f.Name, Type: f.ExternalType, Value: f.ExternalValue()}
}

// WithValue returns a copy holding v, which must match the field kind.
func (f Field) WithValue(v any) (Field, error) {
	switch val := v.(type) {
	case string:
		if f.kind == KindString {
			f.str = val
			return f, nil
		}
	case uint32:
		if f.kind == KindUint {
			f.num = val
			return f, nil
		}
	case bool:
		if f.kind == KindBool {
			f.flag = val
			return f, nil
		}
	}
	return f, fmt.Errorf("%w: %T for %s field %s", ErrInvalidValue, v, f.kind, f.Name)
}

// Fields is an ordered list of typed fields.
type Fields []Field

// Get returns the first field whose name matches (case-insensitive).
func (fs Fields) Get(name string) (Field, bool) {
	for _, f := range fs {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return Field{}, false
}

// Uint returns the named number, or 0.
func (fs Fields) Uint(name string) uint32 {
	f, ok := fs.Get(name)
	if !ok {
		return 0
	}
	v, _ := f.Uint()
	return v
}

// FirstBool returns the value of the first boolean field matching one of
// names, and false when there is none.
func (fs Fields) FirstBool(names ...string) (value, found bool) {
	for _, f := range fs {
		if v, ok := f.Bool(); ok && f.Is(names...) {
			return v, true
		}
	}
	return false, false
}

// Sum adds the numeric fields matching names.
func (fs Fields) Sum(names ...string) uint32 {
	var total uint32
	for _, f := range fs {
		if v, ok := f.Uint(); ok && f.Is(names...) {
			total += v
		}
	}
	return total
}

// Writable returns the writable fields accepted by filter (nil accepts
// all) in transmitted form.
func (fs Fields) Writable(filter func(Field) bool) []wire.Field {
	var out []wire.Field
	for _, f := range fs {
		if !f.Access.CanWrite() {
			continue
		}
		if filter != nil && !filter(f) {
			continue
		}
		out = append(out, f.Wire())
	}
	return out
}

// Names returns the field names in order.
func (fs Fields) Names() []string {
	names := make([]string, len(fs))
	for i, f := range fs {
		names[i] = f.Name
	}
	return names
}

// String renders name=value pairs for logging.
func (fs Fields) String() string {
	parts := make([]string, len(fs))
	for i, f := range fs {
		parts[i] = f.Name + "=" + f.ExternalValue()
	}
	return strings.Join(parts, ",")
}
