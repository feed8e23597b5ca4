package persistence

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/gheeres/ricoh-go/pkg/model"
)

// SnapshotVersion is the current version of the stored snapshot format.
const SnapshotVersion = 1

// Snapshot is the set of user counters read from one device at one time.
type Snapshot struct {
	// Version is the snapshot format version.
	Version int `json:"version"`

	Host string `json:"host"`

	// TakenAt is when the counters were read.
	TakenAt time.Time `json:"taken_at"`

	Users []UserCounters `json:"users"`
}

// UserCounters is the counter state of one user slot.
type UserCounters struct {
	Index          uint32 `json:"index"`
	ObjectID       uint32 `json:"object_id"`
	Authentication string `json:"authentication,omitempty"`
	Username       string `json:"username,omitempty"`

	// Counters holds every numeric field by name.
	Counters map[string]uint32 `json:"counters"`

	// Summaries, as shown to users.
	Copier  model.BlackWhiteColor `json:"copier"`
	Printer model.BlackWhiteColor `json:"printer"`
	Scanner model.BlackWhiteColor `json:"scanner"`
	Total   model.BlackWhiteColor `json:"total"`
	Fax     uint32                `json:"fax"`
	Sent    uint32                `json:"sent"`
}

// NewSnapshot captures counters read from host.
func NewSnapshot(host string, takenAt time.Time, counters []*model.UserCounter) *Snapshot {
	s := &Snapshot{
		Version: SnapshotVersion,
		Host:    host,
		TakenAt: takenAt,
		Users:   make([]UserCounters, 0, len(counters)),
	}
	for _, c := range counters {
		if c == nil {
			continue
		}
		u := UserCounters{
			Index:          c.Index(),
			ObjectID:       c.ID,
			Authentication: c.Authentication,
			Username:       c.Username,
			Counters:       make(map[string]uint32),
			Copier:         c.Copier(),
			Printer:        c.Printer(),
			Scanner:        c.Scanner(),
			Total:          c.Total(),
			Fax:            c.Fax(),
			Sent:           c.Sent(),
		}
		for _, f := range c.Fields {
			if v, ok := f.Uint(); ok {
				u.Counters[f.Name] = v
			}
		}
		s.Users = append(s.Users, u)
	}
	slices.SortFunc(s.Users, func(a, b UserCounters) int { return cmp.Compare(a.Index, b.Index) })
	return s
}

// User returns the counters of the slot with the given index.
func (s *Snapshot) User(index uint32) (*UserCounters, bool) {
	for i := range s.Users {
		if s.Users[i].Index == index {
			return &s.Users[i], true
		}
	}
	return nil, false
}

// Delta is the usage of one user slot between two snapshots.
type Delta struct {
	Index          uint32 `json:"index"`
	Authentication string `json:"authentication,omitempty"`
	Username       string `json:"username,omitempty"`

	// Counters holds the per-field usage. A counter lower than before was
	// cleared in between; its usage is the current value.
	Counters map[string]uint32 `json:"counters"`

	// Reset is set when any counter went down.
	Reset bool `json:"reset,omitempty"`

	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Usage returns the sum of the named counters, or of all counters when no
// names are given.
func (d Delta) Usage(names ...string) uint32 {
	var total uint32
	for name, v := range d.Counters {
		if len(names) == 0 || slices.ContainsFunc(names, func(n string) bool { return strings.EqualFold(n, name) }) {
			total += v
		}
	}
	return total
}

// String implements fmt.Stringer.
func (d Delta) String() string {
	var parts []string
	for _, name := range slices.Sorted(maps.Keys(d.Counters)) {
		if v := d.Counters[name]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", name, v))
		}
	}
	reset := ""
	if d.Reset {
		reset = " (reset)"
	}
	return fmt.Sprintf("[%04d] %-8s - %-32s: %s%s", d.Index, d.Authentication, d.Username, strings.Join(parts, ", "), reset)
}

// Diff computes per-user usage from prev to cur. Users missing from prev
// count from zero. Users missing from cur are omitted. A nil prev yields
// the full counters of cur.
func Diff(prev, cur *Snapshot) []Delta {
	if cur == nil {
		return nil
	}
	var from time.Time
	if prev != nil {
		from = prev.TakenAt
	}

	deltas := make([]Delta, 0, len(cur.Users))
	for _, u := range cur.Users {
		d := Delta{
			Index:          u.Index,
			Authentication: u.Authentication,
			Username:       u.Username,
			Counters:       make(map[string]uint32, len(u.Counters)),
			From:           from,
			To:             cur.TakenAt,
		}
		var before *UserCounters
		if prev != nil {
			before, _ = prev.User(u.Index)
		}
		for name, now := range u.Counters {
			var was uint32
			if before != nil {
				was = before.Counters[name]
			}
			switch {
			case now >= was:
				d.Counters[name] = now - was
			default:
				d.Counters[name] = now
				d.Reset = true
			}
		}
		deltas = append(deltas, d)
	}
	return deltas
}
