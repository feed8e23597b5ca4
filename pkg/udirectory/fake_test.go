package udirectory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

// fakeDirectory is an in-memory user directory.
type fakeDirectory struct {
	mu sync.Mutex

	caps     wire.PropertyList
	sessions []wire.SessionType
	sessionN int

	// order lists the entry ids returned by searches, in order.
	order   []string
	entries map[string]wire.PropertyList
	tags    []wire.Row
	nextID  int

	searches      []wire.SearchObjectsRequest
	propsRequests [][]string
	selectProps   [][]string
	putRows       []wire.Row
	putErr        error
	putPropsIDs   []string
	putPropsRows  []wire.Row
	putStatus     wire.Status
	deleted       []string
	deleteCount   func(n int) uint32
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		caps:      wire.PropertyList{{Name: "maxObjectPerCall", Value: "50"}},
		entries:   map[string]wire.PropertyList{},
		nextID:    100,
		putStatus: wire.StatusOK,
	}
}

func (f *fakeDirectory) addEntry(id, name, usercode string) {
	f.order = append(f.order, id)
	f.entries[id] = wire.PropertyList{
		{Name: "id", Value: id},
		{Name: "entryType", Value: "user"},
		{Name: "name", Value: name},
		{Name: "auth:name", Value: usercode},
	}
}

func (f *fakeDirectory) StartSession(ctx context.Context, auth string, timeLimit uint16, t wire.SessionType) (wire.Status, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, t)
	f.sessionN++
	return wire.StatusOK, fmt.Sprintf("sid-%d", f.sessionN), nil
}

func (f *fakeDirectory) TerminateSession(ctx context.Context, sessionID string) (wire.Status, error) {
	return wire.StatusOK, nil
}

func (f *fakeDirectory) GetServiceCapability(ctx context.Context, sessionID string) (wire.PropertyList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.caps, nil
}

func (f *fakeDirectory) SearchObjects(ctx context.Context, req *wire.SearchObjectsRequest) (*wire.SearchObjectsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, *req)

	var all []wire.Row
	switch req.FromClass {
	case ClassTag:
		all = f.tags
	default:
		for _, id := range f.order {
			all = append(all, wire.Row{Properties: wire.PropertyList{{Name: "id", Value: id}}})
		}
	}

	start := min(int(req.RowOffset), len(all))
	end := min(start+int(req.RowCount), len(all))
	status := wire.StatusOK
	if end >= len(all) {
		status = wire.StatusEndOfDirectory
	}
	return &wire.SearchObjectsResponse{
		ReturnValue: status,
		NumResults:  uint32(len(all)),
		Rows:        all[start:end],
	}, nil
}

func (f *fakeDirectory) GetObjectsProps(ctx context.Context, sessionID string, objectIDs, selectProps []string) ([]wire.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.propsRequests = append(f.propsRequests, objectIDs)
	f.selectProps = append(f.selectProps, selectProps)

	var rows []wire.Row
	for _, oid := range objectIDs {
		if props, ok := f.entries[strings.TrimPrefix(oid, "entry:")]; ok {
			rows = append(rows, wire.Row{Properties: props})
		}
	}
	return rows, nil
}

func (f *fakeDirectory) PutObjects(ctx context.Context, sessionID, class string, rows []wire.Row) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putRows = append(f.putRows, rows...)
	if f.putErr != nil {
		return nil, f.putErr
	}
	var ids []string
	for _, row := range rows {
		f.nextID++
		id := strconv.Itoa(f.nextID)
		f.order = append(f.order, id)
		f.entries[id] = append(wire.PropertyList{{Name: "id", Value: id}}, row.Properties...)
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeDirectory) PutObjectProps(ctx context.Context, sessionID string, objectIDs []string, rows []wire.Row) (wire.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putPropsIDs = append(f.putPropsIDs, objectIDs...)
	f.putPropsRows = append(f.putPropsRows, rows...)
	return f.putStatus, nil
}

func (f *fakeDirectory) DeleteObjects(ctx context.Context, sessionID string, objectIDs []string) (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, objectIDs...)
	if f.deleteCount != nil {
		return f.deleteCount(len(objectIDs)), nil
	}
	return uint32(len(objectIDs)), nil
}

var _ Remote = (*fakeDirectory)(nil)
