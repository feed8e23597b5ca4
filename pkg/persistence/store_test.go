package persistence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"github.com/gheeres/ricoh-go/pkg/model"
)

var t0 = time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

func counter(index uint32, user string, copyBlack, printerFull uint32) *model.UserCounter {
	return &model.UserCounter{Object: model.Object{
		ID:             model.BaseUserCounter*10 + index,
		Base:           model.BaseUserCounter,
		Class:          model.ClassUserCounter,
		Authentication: user,
		Username:       "User " + user,
		Fields: model.Fields{
			model.UintField("copyBlack", copyBlack, model.AccessRead|model.AccessWrite),
			model.UintField("printerFull", printerFull, model.AccessRead|model.AccessWrite),
			model.StringField("comment", "x", model.AccessRead),
		},
	}}
}

func openTestStore(t *testing.T) *CounterStore {
	t.Helper()
	s, err := OpenCounterStore(filepath.Join(t.TempDir(), "sub", "counters.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNewSnapshot(t *testing.T) {
	snap := NewSnapshot("printer1", t0, []*model.UserCounter{
		counter(7, "bob", 3, 1),
		nil,
		counter(2, "ann", 10, 4),
	})

	assert.Equal(t, SnapshotVersion, snap.Version)
	require.Len(t, snap.Users, 2)
	assert.Equal(t, uint32(2), snap.Users[0].Index)
	assert.Equal(t, uint32(7), snap.Users[1].Index)

	ann := snap.Users[0]
	assert.Equal(t, "ann", ann.Authentication)
	assert.Equal(t, map[string]uint32{"copyBlack": 10, "printerFull": 4}, ann.Counters)
	assert.Equal(t, uint32(10), ann.Copier.Black)
	assert.Equal(t, uint32(4), ann.Printer.Color)

	_, ok := snap.User(3)
	assert.False(t, ok)
}

func TestDiff(t *testing.T) {
	prev := NewSnapshot("p", t0, []*model.UserCounter{
		counter(1, "ann", 10, 4),
		counter(2, "bob", 5, 5),
	})
	cur := NewSnapshot("p", t0.Add(time.Hour), []*model.UserCounter{
		counter(1, "ann", 15, 4),
		counter(2, "bob", 2, 6),
		counter(3, "cid", 1, 0),
	})

	deltas := Diff(prev, cur)
	require.Len(t, deltas, 3)

	assert.Equal(t, map[string]uint32{"copyBlack": 5, "printerFull": 0}, deltas[0].Counters)
	assert.False(t, deltas[0].Reset)
	assert.Equal(t, t0, deltas[0].From)
	assert.Equal(t, uint32(5), deltas[0].Usage())
	assert.Contains(t, deltas[0].String(), "copyBlack=5")

	// bob was cleared in between.
	assert.True(t, deltas[1].Reset)
	assert.Equal(t, uint32(2), deltas[1].Counters["copyBlack"])
	assert.Equal(t, uint32(1), deltas[1].Usage("PRINTERFULL"))
	assert.Contains(t, deltas[1].String(), "(reset)")

	assert.Equal(t, uint32(1), deltas[2].Usage())

	full := Diff(nil, cur)
	assert.Equal(t, uint32(19), full[0].Usage())
	assert.True(t, full[0].From.IsZero())

	assert.Nil(t, Diff(prev, nil))
}

func TestCounterStoreSaveAndLatest(t *testing.T) {
	s := openTestStore(t)

	latest, err := s.Latest("printer1")
	require.NoError(t, err)
	assert.Nil(t, latest)

	require.NoError(t, s.Save(NewSnapshot("printer1", t0, []*model.UserCounter{counter(1, "ann", 1, 1)})))
	require.NoError(t, s.Save(NewSnapshot("PRINTER1", t0.Add(time.Hour), []*model.UserCounter{counter(1, "ann", 4, 1)})))
	require.NoError(t, s.Save(NewSnapshot("printer2", t0, nil)))

	latest, err = s.Latest("Printer1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.TakenAt.Equal(t0.Add(time.Hour)))
	assert.Equal(t, uint32(4), latest.Users[0].Counters["copyBlack"])

	times, err := s.List("printer1")
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.True(t, times[0].Equal(t0))

	hosts, err := s.Hosts()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"printer1", "printer2"}, hosts)
}

func TestCounterStoreSaveRequiresHost(t *testing.T) {
	s := openTestStore(t)
	assert.ErrorIs(t, s.Save(&Snapshot{}), ErrNoHost)
}

func TestCounterStoreSaveSetsTime(t *testing.T) {
	s := openTestStore(t)
	snap := &Snapshot{Host: "p"}
	require.NoError(t, s.Save(snap))
	assert.False(t, snap.TakenAt.IsZero())
}

func TestCounterStoreBeforeAndDiff(t *testing.T) {
	s := openTestStore(t)
	for i, copies := range []uint32{1, 3, 6} {
		snap := NewSnapshot("p", t0.Add(time.Duration(i)*time.Hour), []*model.UserCounter{counter(1, "ann", copies, 0)})
		require.NoError(t, s.Save(snap))
	}

	prev, err := s.Before("p", t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.True(t, prev.TakenAt.Equal(t0.Add(time.Hour)))

	prev, err = s.Before("p", t0.Add(10*time.Hour))
	require.NoError(t, err)
	assert.True(t, prev.TakenAt.Equal(t0.Add(2*time.Hour)))

	_, err = s.Before("p", t0)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	_, err = s.Before("unknown", t0)
	assert.ErrorIs(t, err, ErrNoSnapshot)

	cur := NewSnapshot("p", t0.Add(3*time.Hour), []*model.UserCounter{counter(1, "ann", 10, 0)})
	deltas, err := s.Diff(cur)
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, uint32(4), deltas[0].Counters["copyBlack"])

	first := NewSnapshot("new", t0, []*model.UserCounter{counter(1, "ann", 10, 0)})
	deltas, err = s.Diff(first)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), deltas[0].Usage())
}

func TestCounterStorePrune(t *testing.T) {
	s := openTestStore(t)
	for i := range 5 {
		require.NoError(t, s.Save(NewSnapshot("p", t0.Add(time.Duration(i)*time.Minute), nil)))
	}

	deleted, err := s.Prune("p", 2)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	times, err := s.List("p")
	require.NoError(t, err)
	require.Len(t, times, 2)
	assert.True(t, times[0].Equal(t0.Add(3*time.Minute)))

	deleted, err = s.Prune("missing", 1)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestNewCounterStoreSharedDB(t *testing.T) {
	db, err := bolt.Open(filepath.Join(t.TempDir(), "shared.db"), 0600, nil)
	require.NoError(t, err)
	defer db.Close()

	s, err := NewCounterStore(db)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// The database stays usable after closing the store.
	require.NoError(t, s.Save(NewSnapshot("p", t0, nil)))
}
