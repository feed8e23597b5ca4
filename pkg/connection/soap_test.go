package connection

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gheeres/ricoh-go/pkg/wire"
)

type recordingCaller struct {
	actions  []string
	requests []any
	fill     func(action string, resp any)
}

func (c *recordingCaller) Call(ctx context.Context, action string, req, resp any) error {
	c.actions = append(c.actions, action)
	c.requests = append(c.requests, req)
	if c.fill != nil {
		c.fill(action, resp)
	}
	return nil
}

func TestSOAPSessionServiceLockMode(t *testing.T) {
	caller := &recordingCaller{fill: func(action string, resp any) {
		r := resp.(*wire.StartSessionResponse)
		r.ReturnValue = wire.StatusOK
		r.SessionID = "abc"
	}}

	dir := NewSOAPSessionService(caller, true)
	status, id, err := dir.StartSession(context.Background(), "tok", 30, wire.SessionExclusive)
	require.NoError(t, err)
	assert.True(t, status.IsOK())
	assert.Equal(t, "abc", id)
	assert.Equal(t, "X", caller.requests[0].(*wire.StartSessionRequest).LockMode)

	mgmt := NewSOAPSessionService(caller, false)
	_, _, err = mgmt.StartSession(context.Background(), "tok", 30, wire.SessionExclusive)
	require.NoError(t, err)
	assert.Empty(t, caller.requests[1].(*wire.StartSessionRequest).LockMode)
}

func TestSOAPSessionServiceCapabilities(t *testing.T) {
	caller := &recordingCaller{fill: func(action string, resp any) {
		if r, ok := resp.(*wire.GetServiceCapabilityResponse); ok {
			r.Capabilities = wire.PropertyList{{Name: "maxObjectPerCall", Value: "10"}}
		}
	}}
	svc := NewSOAPSessionService(caller, false)

	caps, err := svc.GetServiceCapability(context.Background(), "sid")
	require.NoError(t, err)
	assert.Equal(t, "10", caps.Value("maxobjectpercall"))

	_, err = svc.TerminateSession(context.Background(), "sid")
	require.NoError(t, err)
	assert.Equal(t, []string{wire.ActionGetServiceCapability, wire.ActionTerminateSession}, caller.actions)
}
