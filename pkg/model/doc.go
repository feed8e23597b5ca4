// Package model implements the Ricoh device data model.
//
// # Objects and Fields
//
// The device management service exposes objects (one per user slot and
// class) whose values travel as untyped triples:
//
//	name / DM_FIELD_* type tag / string value
//
// A Resolver turns each triple into a typed Field using the object
// capability the device declares for it:
//
//	DM_FIELD_STRING        string
//	DM_FIELD_UNSIGNED_INT  uint32
//	DM_FIELD_ENUM          bool (ON / OFF)
//
// Tags without a converter, and values that do not convert, produce no
// field. They are logged and never fail the object.
//
// # Derived Views
//
//   - UserCounter: usage counters summarized by function
//   - UserAccessControl: per-function restrictions
//
// Both embed an Object whose Index is derived from the object ID.
//
// # Categories
//
// A Category is a bit flag naming a device function (copier, printer, ...).
// A static table maps categories to the capability name of the device
// restriction object and to the field names that control it.
//
// # Address Book
//
// AddressBookEntry is the property bag of one user directory entry. It
// tracks which properties changed so updates send only those.
package model
