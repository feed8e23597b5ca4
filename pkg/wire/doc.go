// Package wire defines the SOAP message types spoken by the embedded web
// services of Ricoh multifunction devices.
//
// Two services share the same session handshake and property encoding:
//   - devicemanagement (http://<host>/DH/devicemanagement): usage counters and
//     usage controls, addressed as objects with typed field lists
//   - udirectory (http://<host>/DH/udirectory): the address book, addressed
//     as rows of name/value properties
//
// # Envelopes
//
// Requests are SOAP 1.1 envelopes whose body holds a single element named
// after the operation, qualified with the service namespace. Parameters are
// unqualified child elements. Arrays are encoded as a wrapper element holding
// repeated <item> children.
//
// Responses are decoded by local name, so the prefixes chosen by the device
// do not matter. A SOAP fault decodes into *Fault.
//
// # Status Codes
//
// Every response carries a returnValue status. Empty and "OK" are success,
// "EOD" marks the end of a directory search and everything else is a failure.
package wire
