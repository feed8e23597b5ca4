package connection

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gheeres/ricoh-go/pkg/log"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// fakeSessions records every remote call in order.
type fakeSessions struct {
	mu    sync.Mutex
	calls []string
	next  int

	startStatus   wire.Status
	startErrs     []error
	capsErr       error
	terminateErr  error
	terminateStat wire.Status
	caps          wire.PropertyList
	lastAuth      string
	lastTimeLimit uint16
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{
		startStatus:   wire.StatusOK,
		terminateStat: wire.StatusOK,
		caps: wire.PropertyList{
			{Name: "maxObjectPerCall", Value: "20"},
			{Name: "maxTagPerEntry", Value: "3"},
		},
	}
}

func (f *fakeSessions) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeSessions) StartSession(ctx context.Context, auth string, timeLimit uint16, t wire.SessionType) (wire.Status, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("start:" + t.LockMode())
	f.lastAuth = auth
	f.lastTimeLimit = timeLimit
	if len(f.startErrs) > 0 {
		err := f.startErrs[0]
		f.startErrs = f.startErrs[1:]
		if err != nil {
			return "", "", err
		}
	}
	f.next++
	return f.startStatus, fmt.Sprintf("sid-%d", f.next), nil
}

func (f *fakeSessions) TerminateSession(ctx context.Context, sessionID string) (wire.Status, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("terminate:" + sessionID)
	if f.terminateErr != nil {
		return "", f.terminateErr
	}
	return f.terminateStat, nil
}

func (f *fakeSessions) GetServiceCapability(ctx context.Context, sessionID string) (wire.PropertyList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("caps:" + sessionID)
	if f.capsErr != nil {
		return nil, f.capsErr
	}
	return f.caps, nil
}

func (f *fakeSessions) log() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type stateLog struct {
	mu     sync.Mutex
	events []log.Event
}

func (s *stateLog) Log(e log.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func newTestManager(svc SessionService) *Manager {
	cfg := DefaultManagerConfig("printer1")
	cfg.Credentials.Password = "secret"
	return NewManager(svc, cfg)
}

func TestCredentialsToken(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	tok := Credentials{Password: "pw"}.Token()
	assert.Equal(t, "SCHEME="+b64("BASIC")+";UID:UserName="+b64("admin")+";PWD:Password="+b64("pw")+";PES:Encoding=", tok)

	tok = Credentials{Scheme: "BASIC", Username: "ops", Password: ""}.Token()
	assert.Contains(t, tok, "UID:UserName="+b64("ops"))
	assert.True(t, strings.HasSuffix(tok, "PWD:Password=;PES:Encoding="))
}

func TestConnectDiscoversCapabilities(t *testing.T) {
	svc := newFakeSessions()
	capture := &stateLog{}
	cfg := DefaultManagerConfig("printer1")
	cfg.ProtocolLogger = capture
	m := NewManager(svc, cfg)

	var transitions []string
	m.OnStateChange(func(from, to State) {
		transitions = append(transitions, from.String()+">"+to.String())
	})

	id, err := m.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sid-1", id)
	assert.Equal(t, []string{"start:S", "caps:sid-1"}, svc.log())
	assert.Equal(t, uint16(30), svc.lastTimeLimit)
	assert.True(t, m.IsConnected())
	assert.Equal(t, StateConnected, m.State())

	s := m.Session()
	require.NotNil(t, s)
	assert.Equal(t, wire.SessionShared, s.Type)
	assert.Equal(t, uint32(20), s.MaxObjectPerCall())
	assert.Equal(t, uint32(3), s.MaxTagPerEntry())

	assert.Equal(t, []string{"DISCONNECTED>CONNECTING", "CONNECTING>CONNECTED"}, transitions)
	require.Len(t, capture.events, 2)
	assert.Equal(t, log.LayerSession, capture.events[1].Layer)
	assert.Equal(t, "sid-1", capture.events[1].StateChange.SessionID)
}

func TestConnectWithOptions(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)

	_, err := m.Connect(context.Background(), WithTimeLimit(2*time.Minute), WithSessionType(wire.SessionExclusive))
	require.NoError(t, err)
	assert.Equal(t, uint16(120), svc.lastTimeLimit)
	assert.Equal(t, wire.SessionExclusive, m.Session().Type)
}

func TestConnectDisconnectsFirst(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	id, err := m.Connect(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "sid-2", id)
	assert.Equal(t, []string{"start:S", "caps:sid-1", "terminate:sid-1", "start:S", "caps:sid-2"}, svc.log())
}

func TestConnectKeepsSessionThatFailedToClose(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)
	_, err := m.Connect(context.Background(), WithSessionType(wire.SessionExclusive))
	require.NoError(t, err)

	svc.terminateErr = &wire.Fault{Code: "soap:Server"}
	_, err = m.Connect(context.Background())
	assert.True(t, IsOperationFailed(err))
	assert.Equal(t, "sid-1", m.SessionID())

	called := false
	err = m.WithSession(context.Background(), wire.SessionShared, func(ctx context.Context, s *Session) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
	assert.Equal(t, []string{"start:X", "caps:sid-1", "terminate:sid-1", "terminate:sid-1"}, svc.log())

	svc.terminateErr = nil
	id, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sid-2", id)
}

func TestConnectAfterTransientCloseFailure(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	svc.terminateErr = errBusy
	id, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sid-2", id)
}

func TestConnectRetriesTransientFailures(t *testing.T) {
	svc := newFakeSessions()
	svc.startErrs = []error{errBusy, errBusy, nil}
	m := newTestManager(svc)

	_, err := m.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"start:S", "start:S", "start:S", "caps:sid-1"}, svc.log())
}

func TestConnectFailures(t *testing.T) {
	t.Run("transport", func(t *testing.T) {
		svc := newFakeSessions()
		svc.startErrs = []error{errBusy, errBusy, errBusy}
		m := newTestManager(svc)

		_, err := m.Connect(context.Background())
		var of *OperationFailedError
		require.ErrorAs(t, err, &of)
		assert.Equal(t, 3, of.Attempts)
		assert.Equal(t, wire.ActionStartSession, of.Operation)
		assert.False(t, m.IsConnected())
		assert.Equal(t, StateDisconnected, m.State())
	})

	t.Run("rejected", func(t *testing.T) {
		svc := newFakeSessions()
		svc.startStatus = "COMMON_BAD_PARAMETER"
		m := newTestManager(svc)

		_, err := m.Connect(context.Background())
		require.True(t, IsOperationFailed(err))
		var se *wire.StatusError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, wire.Status("COMMON_BAD_PARAMETER"), se.Status)
		assert.False(t, m.IsConnected())
	})

	t.Run("discovery", func(t *testing.T) {
		svc := newFakeSessions()
		svc.capsErr = errors.New("bad caps")
		m := newTestManager(svc)

		_, err := m.Connect(context.Background())
		require.True(t, IsOperationFailed(err))
		assert.False(t, m.IsConnected())
		assert.Equal(t, []string{"start:S", "caps:sid-1", "terminate:sid-1"}, svc.log())
	})
}

func TestDisconnect(t *testing.T) {
	t.Run("not connected", func(t *testing.T) {
		m := newTestManager(newFakeSessions())
		ok, err := m.Disconnect(context.Background())
		assert.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("acknowledged", func(t *testing.T) {
		svc := newFakeSessions()
		svc.terminateStat = ""
		m := newTestManager(svc)
		_, err := m.Connect(context.Background())
		require.NoError(t, err)

		ok, err := m.Disconnect(context.Background())
		require.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, m.IsConnected())
	})

	t.Run("unacknowledged", func(t *testing.T) {
		svc := newFakeSessions()
		svc.terminateStat = "COMMON_SOAP_SERVER"
		m := newTestManager(svc)
		_, err := m.Connect(context.Background())
		require.NoError(t, err)

		ok, err := m.Disconnect(context.Background())
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("transient failure clears session", func(t *testing.T) {
		svc := newFakeSessions()
		m := newTestManager(svc)
		_, err := m.Connect(context.Background())
		require.NoError(t, err)

		svc.terminateErr = errBusy
		ok, err := m.Disconnect(context.Background())
		assert.False(t, ok)
		assert.True(t, IsOperationFailed(err))
		assert.False(t, m.IsConnected())
	})

	t.Run("business failure keeps session", func(t *testing.T) {
		svc := newFakeSessions()
		m := newTestManager(svc)
		_, err := m.Connect(context.Background())
		require.NoError(t, err)

		svc.terminateErr = &wire.Fault{Code: "soap:Server"}
		_, err = m.Disconnect(context.Background())
		assert.True(t, IsOperationFailed(err))
		assert.True(t, m.IsConnected())
	})
}

func TestWithSessionOpensAndCloses(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)

	var seen string
	err := m.WithSession(context.Background(), wire.SessionShared, func(ctx context.Context, s *Session) error {
		seen = s.ID
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, "sid-1", seen)
	assert.Equal(t, []string{"start:S", "caps:sid-1", "terminate:sid-1"}, svc.log())
	assert.False(t, m.IsConnected())
}

func TestWithSessionReusesHeldSession(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	err = m.WithSession(context.Background(), wire.SessionShared, func(ctx context.Context, s *Session) error {
		assert.Equal(t, "sid-1", s.ID)
		return nil
	})
	require.NoError(t, err)

	assert.True(t, m.IsConnected())
	assert.Equal(t, []string{"start:S", "caps:sid-1"}, svc.log())
}

func TestWithSessionSwitchesType(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	err = m.WithSession(context.Background(), wire.SessionExclusive, func(ctx context.Context, s *Session) error {
		assert.Equal(t, wire.SessionExclusive, s.Type)
		return nil
	})
	require.NoError(t, err)

	calls := svc.log()
	assert.Equal(t, []string{
		"start:S", "caps:sid-1",
		"terminate:sid-1",
		"start:X", "caps:sid-2",
		"terminate:sid-2",
	}, calls)

	terminates := 0
	for _, c := range calls[:3] {
		if strings.HasPrefix(c, "terminate:") {
			terminates++
		}
	}
	assert.Equal(t, 1, terminates)
}

func TestWithSessionReturnsFnError(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)
	boom := errors.New("boom")

	err := m.WithSession(context.Background(), wire.SessionShared, func(ctx context.Context, s *Session) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, svc.log(), "terminate:sid-1")
}

func TestWithSessionInvalidatesOnTransientError(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	err = m.WithSession(context.Background(), wire.SessionShared, func(ctx context.Context, s *Session) error {
		return &OperationFailedError{Host: "printer1", Operation: "getObjects", Err: errBusy}
	})
	require.Error(t, err)
	assert.False(t, m.IsConnected())
}

func TestWithinReturnsValue(t *testing.T) {
	m := newTestManager(newFakeSessions())
	n, err := Within(context.Background(), m, wire.SessionShared, func(ctx context.Context, s *Session) (uint32, error) {
		return s.MaxObjectPerCall(), nil
	})
	require.NoError(t, err)
	assert.Equal(t, uint32(20), n)
}

func TestManagerClose(t *testing.T) {
	svc := newFakeSessions()
	m := newTestManager(svc)
	_, err := m.Connect(context.Background())
	require.NoError(t, err)

	require.NoError(t, m.Close(context.Background()))
	assert.Equal(t, StateClosed, m.State())

	_, err = m.Connect(context.Background())
	assert.ErrorIs(t, err, ErrManagerClosed)
	assert.ErrorIs(t, m.WithSession(context.Background(), wire.SessionShared, nil), ErrManagerClosed)
	assert.NoError(t, m.Close(context.Background()))
}

func TestSessionCapabilityDefaults(t *testing.T) {
	var nilSession *Session
	assert.Equal(t, uint32(DefaultMaxObjectPerCall), nilSession.MaxObjectPerCall())

	s := &Session{Capabilities: wire.PropertyList{{Name: "maxObjectPerCall", Value: "abc"}}}
	assert.Equal(t, uint32(DefaultMaxObjectPerCall), s.MaxObjectPerCall())
	assert.Equal(t, uint32(DefaultMaxTagPerEntry), s.MaxTagPerEntry())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "DISCONNECTED", StateDisconnected.String())
	assert.Equal(t, "CLOSED", StateClosed.String())
	assert.Equal(t, "UNKNOWN", State(42).String())
}
