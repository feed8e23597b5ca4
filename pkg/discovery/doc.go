// Package discovery finds printers on the local network with mDNS/DNS-SD.
//
// Printers announce themselves under several service types. The browser
// listens on all of them and aggregates answers by instance name, so a
// device announcing both _ipp._tcp and _printer._tcp is reported once with
// the union of its addresses and TXT keys.
//
// # TXT records
//
// The keys read from the announcements are:
//   - ty: human readable make and model
//   - usb_MFG, usb_MDL: IEEE 1284 manufacturer and model
//   - product: PostScript product string, usually in parentheses
//   - adminurl: device web page
//   - note: location text
//
// Ricoh devices, including those sold under the Savin, Lanier, Gestetner
// and NRG brands, are recognized by IsRicoh.
package discovery
