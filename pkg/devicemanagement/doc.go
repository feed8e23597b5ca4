// Package devicemanagement reads and resets per-user usage counters and
// manages per-user function restrictions through the device management
// service (/DH/devicemanagement).
//
// Every operation runs inside a session owned by a connection.Manager.
// Per-object reads fan out over a bounded worker pool that shares one
// capability schema per object class; objects that fail are reported
// through a connection.PartialError together with the objects that were
// read.
package devicemanagement
