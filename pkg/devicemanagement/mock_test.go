package devicemanagement

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) StartSession(ctx context.Context, auth string, timeLimit uint16, t wire.SessionType) (wire.Status, string, error) {
	args := m.Called(ctx, auth, timeLimit, t)
	return args.Get(0).(wire.Status), args.String(1), args.Error(2)
}

func (m *mockRemote) TerminateSession(ctx context.Context, sessionID string) (wire.Status, error) {
	args := m.Called(ctx, sessionID)
	return args.Get(0).(wire.Status), args.Error(1)
}

func (m *mockRemote) GetServiceCapability(ctx context.Context, sessionID string) (wire.PropertyList, error) {
	args := m.Called(ctx, sessionID)
	caps, _ := args.Get(0).(wire.PropertyList)
	return caps, args.Error(1)
}

func (m *mockRemote) GetObjects(ctx context.Context, sessionID string, deviceID uint32, class string) ([]string, error) {
	args := m.Called(ctx, sessionID, deviceID, class)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *mockRemote) GetObjectCapability(ctx context.Context, sessionID string, deviceID, objectID uint32) (*wire.ObjectCapability, error) {
	args := m.Called(ctx, sessionID, deviceID, objectID)
	c, _ := args.Get(0).(*wire.ObjectCapability)
	return c, args.Error(1)
}

func (m *mockRemote) GetObject(ctx context.Context, sessionID string, deviceID, objectID uint32, fieldNames []string) (*wire.Object, error) {
	args := m.Called(ctx, sessionID, deviceID, objectID, fieldNames)
	obj, _ := args.Get(0).(*wire.Object)
	return obj, args.Error(1)
}

func (m *mockRemote) UpdateObject(ctx context.Context, sessionID string, deviceID uint32, obj wire.Object, options wire.PropertyList) (wire.Status, error) {
	args := m.Called(ctx, sessionID, deviceID, obj, options)
	return args.Get(0).(wire.Status), args.Error(1)
}

var _ Remote = (*mockRemote)(nil)
