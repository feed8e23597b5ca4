// Package persistence stores user counter snapshots so usage between two
// readings can be reported after the device counters were read or cleared.
//
// Snapshots live in a bbolt database, one bucket per device host, keyed by
// the time the snapshot was taken. Values are JSON.
package persistence
