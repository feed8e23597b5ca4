package devicemanagement

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

func testCounter(id uint32, user string) *model.UserCounter {
	return model.NewUserCounter(model.NewResolver(nil), counterObject(id, user, "7"), counterCapability.Fields)
}

func fieldNames(fields []wire.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}

func TestClearCounter(t *testing.T) {
	svc, r, rec := newTestService(t, 1)

	var got wire.Object
	var options wire.PropertyList
	r.On("UpdateObject", mock.Anything, sid, uint32(0), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			got = args.Get(3).(wire.Object)
			options = args.Get(4).(wire.PropertyList)
		}).
		Return(wire.StatusOK, nil)

	ok, err := svc.ClearCounter(context.Background(), testCounter(1110024, "dave"))
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, "4", got.Name)
	assert.Equal(t, model.ClassUserCounter, got.Class)
	assert.Equal(t, uint32(1110024), got.ObjectID)
	assert.Equal(t, []string{"copyBlack", "copyFull"}, fieldNames(got.Fields))
	for _, f := range got.Fields {
		assert.Equal(t, "0", f.Value)
	}
	assert.Equal(t, "true", options.Value("replaceAll"))

	reset := rec.ofType(EventCounterReset)
	require.Len(t, reset, 1)
	assert.Equal(t, "dave", reset[0].Counter.Authentication)
}

func TestClearCounterRejected(t *testing.T) {
	svc, r, rec := newTestService(t, 1)
	r.On("UpdateObject", mock.Anything, sid, uint32(0), mock.Anything, mock.Anything).Return(wire.StatusBadObjectID, nil)

	ok, err := svc.ClearCounter(context.Background(), testCounter(1110021, "a"))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, rec.ofType(EventCounterReset))
}

func TestClearCounterNothingToClear(t *testing.T) {
	svc, r, _ := newTestService(t, 1)
	readOnly := []wire.FieldCapability{{Name: "copyBlack", Type: model.TypeUnsignedInt, Readable: true}}
	counter := model.NewUserCounter(model.NewResolver(nil), counterObject(1110021, "a", "1"), readOnly)

	ok, err := svc.ClearCounter(context.Background(), counter)
	require.NoError(t, err)
	assert.False(t, ok)
	r.AssertNotCalled(t, "UpdateObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	ok, err = svc.ClearCounter(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearCounters(t *testing.T) {
	svc, r, _ := newTestService(t, 2)

	var mu sync.Mutex
	var names []string
	r.On("UpdateObject", mock.Anything, sid, uint32(0), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			mu.Lock()
			defer mu.Unlock()
			names = append(names, args.Get(3).(wire.Object).Name)
		}).
		Return(wire.StatusOK, nil)

	a := testCounter(1110021, "a")
	b := testCounter(1110022, "b")
	n, err := svc.ClearCounters(context.Background(), []*model.UserCounter{a, b, a, nil})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sort.Strings(names)
	assert.Equal(t, []string{"1", "2"}, names)
	r.AssertNumberOfCalls(t, "StartSession", 1)
}

func TestClearCountersEmpty(t *testing.T) {
	svc, r, _ := newTestService(t, 1)

	n, err := svc.ClearCounters(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	r.AssertNotCalled(t, "StartSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestClearAll(t *testing.T) {
	svc, r, rec := newTestService(t, 3)
	r.On("GetObjects", mock.Anything, sid, uint32(0), model.ClassUserCounter).
		Return([]string{"1110021", "1110022", "1110023"}, nil)
	r.On("GetObjectCapability", mock.Anything, sid, uint32(0), mock.Anything).Return(counterCapability, nil).Once()

	var mu sync.Mutex
	written := map[string][]string{}
	r.On("UpdateObject", mock.Anything, sid, uint32(0), mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			obj := args.Get(3).(wire.Object)
			mu.Lock()
			defer mu.Unlock()
			written[obj.Name] = fieldNames(obj.Fields)
		}).
		Return(wire.StatusOK, nil)

	n, err := svc.ClearAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, map[string][]string{
		"1": {"copyBlack", "copyFull"},
		"2": {"copyBlack", "copyFull"},
		"3": {"copyBlack", "copyFull"},
	}, written)
	r.AssertNumberOfCalls(t, "GetObjectCapability", 1)
	r.AssertNotCalled(t, "GetObject", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	reset := rec.ofType(EventCounterReset)
	assert.Len(t, reset, 3)
	assert.Nil(t, reset[0].Counter)
}

func TestClearAllPartial(t *testing.T) {
	svc, r, _ := newTestService(t, 1)
	r.On("GetObjects", mock.Anything, sid, uint32(0), model.ClassUserCounter).Return([]string{"1110021", "1110022"}, nil)
	r.On("GetObjectCapability", mock.Anything, sid, uint32(0), mock.Anything).Return(counterCapability, nil)
	r.On("UpdateObject", mock.Anything, sid, uint32(0), mock.MatchedBy(func(o wire.Object) bool { return o.Name == "1" }), mock.Anything).
		Return(wire.StatusOK, nil)
	r.On("UpdateObject", mock.Anything, sid, uint32(0), mock.MatchedBy(func(o wire.Object) bool { return o.Name == "2" }), mock.Anything).
		Return(wire.Status(""), assert.AnError)

	n, err := svc.ClearAll(context.Background())
	assert.Equal(t, 1, n)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
}
