// Package udirectory reads and edits the device address book through the
// user directory service (/DH/udirectory).
//
// Reads page through searchObjects with the pagination engine and then
// fetch the properties of each page in one getObjectsProps call. Writes
// run in exclusive sessions.
package udirectory
