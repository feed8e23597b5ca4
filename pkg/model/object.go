package model

import (
	"strconv"
	"strings"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

// Object classes of the device management service.
const (
	ClassApplicationRestrict = "usageControl.applRestrict"
	ClassUserRestrict        = "usageControl.userRestrict"
	ClassUserCounter         = "usageCounter.userCounter"
)

// Object ID bases per class. An object ID is the base followed by the
// slot index.
const (
	BaseUserCounter  uint32 = 111002
	BaseUserRestrict uint32 = 110002
)

// Field names mapped onto Object rather than kept as fields.
const (
	fieldAuthName = "authname"
	fieldUserName = "username"
)

// ExtractIndex strips base from the leading digits of id and returns the
// remainder:
//
//	digits = floor(log10(id) + 1)
//	index  = id - base * 10^(digits-6)
//
// IDs shorter than six digits or below the base are returned unchanged.
func ExtractIndex(id, base uint32) uint32 {
	digits := len(strconv.FormatUint(uint64(id), 10))
	if id == 0 || digits < 6 {
		return id
	}
	scaled := uint64(base)
	for i := 6; i < digits; i++ {
		scaled *= 10
	}
	if scaled > uint64(id) {
		return id
	}
	return uint32(uint64(id) - scaled)
}

// Object is a snapshot of one device management object.
type Object struct {
	// ID is the object ID (>= 1).
	ID uint32

	// Base is the ID base of the object class.
	Base uint32

	Class string

	// Authentication is the user code (authname field).
	Authentication string

	// Username is the display name (username field).
	Username string

	Fields Fields
}

// NewObject builds an object from raw fields. The authname and username
// fields populate Authentication and Username; the rest are resolved
// against capabilities.
func NewObject(r *Resolver, class string, base, id uint32, raws []wire.Field, capabilities []wire.FieldCapability) Object {
	o := Object{ID: id, Base: base, Class: class}
	rest := make([]wire.Field, 0, len(raws))
	for _, raw := range raws {
		switch strings.ToLower(raw.Name) {
		case fieldAuthName:
			o.Authentication = raw.Value
		case fieldUserName:
			o.Username = raw.Value
		default:
			rest = append(rest, raw)
		}
	}
	o.Fields = r.ResolveAll(rest, capabilities)
	return o
}

// Index returns the slot index derived from the object ID.
func (o Object) Index() uint32 {
	return ExtractIndex(o.ID, o.Base)
}

// Name returns the object name used by updateObject (the decimal index).
func (o Object) Name() string {
	return strconv.FormatUint(uint64(o.Index()), 10)
}

// Update builds the wire object carrying fields.
func (o Object) Update(fields []wire.Field) wire.Object {
	return wire.Object{
		Name:     o.Name(),
		Class:    o.Class,
		ObjectID: o.ID,
		Fields:   fields,
	}
}
