package model

import (
	"strings"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

// FindCapability returns the capability named name (case-insensitive), or
// nil.
func FindCapability(capabilities []wire.FieldCapability, name string) *wire.FieldCapability {
	for i := range capabilities {
		if strings.EqualFold(capabilities[i].Name, name) {
			return &capabilities[i]
		}
	}
	return nil
}

// IsNumericCapability returns true if the capability declares a number.
func IsNumericCapability(c *wire.FieldCapability) bool {
	return c != nil && strings.EqualFold(c.Type, TypeUnsignedInt)
}

// WritableCapabilities returns the writable capabilities accepted by filter
// (nil accepts all) as fields carrying value.
func WritableCapabilities(capabilities []wire.FieldCapability, value string, filter func(*wire.FieldCapability) bool) []wire.Field {
	var out []wire.Field
	for i := range capabilities {
		c := &capabilities[i]
		if !c.Writable {
			continue
		}
		if filter != nil && !filter(c) {
			continue
		}
		out = append(out, wire.Field{Name: c.Name, Type: c.Type, Value: value})
	}
	return out
}

// IsClearableCounter reports whether a counter field may be reset. The
// *Account and *Total fields claim to be writable but older firmware
// rejects them with MANAGEMENT_BAD_OBJECT_ID.
func IsClearableCounter(name string, numeric bool) bool {
	lower := strings.ToLower(name)
	return numeric &&
		!strings.HasSuffix(lower, "account") &&
		!strings.HasSuffix(lower, "total")
}

// SetValue returns a copy of fields with every value replaced by value.
func SetValue(fields []wire.Field, value string) []wire.Field {
	out := make([]wire.Field, len(fields))
	for i, f := range fields {
		f.Value = value
		out[i] = f
	}
	return out
}
