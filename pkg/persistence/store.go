package persistence

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	snapshotsBucket = "snapshots"
	openTimeout     = time.Second
)

var (
	// ErrNoHost is returned when a snapshot has no host.
	ErrNoHost = errors.New("snapshot has no host")

	// ErrNoSnapshot is returned when a requested snapshot does not exist.
	ErrNoSnapshot = errors.New("no snapshot")
)

// CounterStore keeps counter snapshots in a bbolt database.
type CounterStore struct {
	db    *bolt.DB
	owned bool
}

// OpenCounterStore opens (or creates) the database at path.
func OpenCounterStore(path string) (*CounterStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: openTimeout})
	if err != nil {
		return nil, fmt.Errorf("open counter store %s: %w", path, err)
	}
	s, err := NewCounterStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewCounterStore uses an already open database. Close does not close it.
func NewCounterStore(db *bolt.DB) (*CounterStore, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(snapshotsBucket))
		return err
	})
	if err != nil {
		return nil, err
	}
	return &CounterStore{db: db}, nil
}

// Close closes the database when the store opened it.
func (s *CounterStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}

// Save stores snap under its host and time. A zero TakenAt is set to now.
func (s *CounterStore) Save(snap *Snapshot) error {
	if snap.Host == "" {
		return ErrNoHost
	}
	snap.Version = SnapshotVersion
	if snap.TakenAt.IsZero() {
		snap.TakenAt = time.Now()
	}

	value, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket([]byte(snapshotsBucket)).CreateBucketIfNotExists(hostKey(snap.Host))
		if err != nil {
			return err
		}
		return b.Put(timeKey(snap.TakenAt), value)
	})
}

// Latest returns the most recent snapshot of host.
// Returns nil, nil if none was saved.
func (s *CounterStore) Latest(host string) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.hostBucket(tx, host)
		if b == nil {
			return nil
		}
		_, v := b.Cursor().Last()
		if v == nil {
			return nil
		}
		snap = &Snapshot{}
		return json.Unmarshal(v, snap)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Before returns the most recent snapshot of host taken strictly before t.
func (s *CounterStore) Before(host string, t time.Time) (*Snapshot, error) {
	var snap *Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.hostBucket(tx, host)
		if b == nil {
			return ErrNoSnapshot
		}
		c := b.Cursor()
		k, v := c.Seek(timeKey(t))
		if k == nil {
			k, v = c.Last()
		} else {
			k, v = c.Prev()
		}
		if k == nil {
			return ErrNoSnapshot
		}
		snap = &Snapshot{}
		return json.Unmarshal(v, snap)
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns the times of the snapshots of host, oldest first.
func (s *CounterStore) List(host string) ([]time.Time, error) {
	var times []time.Time
	err := s.db.View(func(tx *bolt.Tx) error {
		b := s.hostBucket(tx, host)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			times = append(times, keyTime(k))
			return nil
		})
	})
	return times, err
}

// Hosts returns the hosts with stored snapshots.
func (s *CounterStore) Hosts() ([]string, error) {
	var hosts []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(snapshotsBucket)).ForEach(func(k, v []byte) error {
			if v == nil {
				hosts = append(hosts, string(k))
			}
			return nil
		})
	})
	return hosts, err
}

// Diff compares cur with the latest stored snapshot of the same host that
// was taken before it.
func (s *CounterStore) Diff(cur *Snapshot) ([]Delta, error) {
	prev, err := s.Before(cur.Host, cur.TakenAt)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}
	return Diff(prev, cur), nil
}

// Prune keeps the newest keep snapshots of host and deletes the rest.
// Returns the number deleted.
func (s *CounterStore) Prune(host string, keep int) (int, error) {
	deleted := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := s.hostBucket(tx, host)
		if b == nil {
			return nil
		}
		var keys [][]byte
		_ = b.ForEach(func(k, _ []byte) error {
			keys = append(keys, append([]byte(nil), k...))
			return nil
		})
		for len(keys) > max(keep, 0) {
			if err := b.Delete(keys[0]); err != nil {
				return err
			}
			keys = keys[1:]
			deleted++
		}
		return nil
	})
	return deleted, err
}

func (s *CounterStore) hostBucket(tx *bolt.Tx, host string) *bolt.Bucket {
	return tx.Bucket([]byte(snapshotsBucket)).Bucket(hostKey(host))
}

func hostKey(host string) []byte {
	return []byte(strings.ToLower(host))
}

// timeKey encodes t as big-endian nanoseconds so keys sort by time.
func timeKey(t time.Time) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, uint64(t.UnixNano()))
	return k
}

func keyTime(k []byte) time.Time {
	return time.Unix(0, int64(binary.BigEndian.Uint64(k)))
}
