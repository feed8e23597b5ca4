package connection

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gheeres/ricoh-go/pkg/log"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// Session defaults.
const (
	DefaultUsername  = "admin"
	DefaultScheme    = "BASIC"
	DefaultTimeLimit = 30 * time.Second

	// DefaultMaxObjectPerCall is used when the device does not report
	// maxObjectPerCall.
	DefaultMaxObjectPerCall = 50

	// DefaultMaxTagPerEntry is used when the device does not report
	// maxTagPerEntry.
	DefaultMaxTagPerEntry = 1
)

// Capability names reported by getServiceCapability.
const (
	CapabilityMaxObjectPerCall = "maxObjectPerCall"
	CapabilityMaxTagPerEntry   = "maxTagPerEntry"
)

// SessionService is the remote session API shared by both device services.
type SessionService interface {
	StartSession(ctx context.Context, auth string, timeLimit uint16, sessionType wire.SessionType) (wire.Status, string, error)
	TerminateSession(ctx context.Context, sessionID string) (wire.Status, error)
	GetServiceCapability(ctx context.Context, sessionID string) (wire.PropertyList, error)
}

// Credentials authenticate a session.
type Credentials struct {
	// Scheme is the authentication scheme (default: BASIC).
	Scheme string

	// Username (default: admin).
	Username string

	Password string
}

// Token renders the startSession stringIn value.
func (c Credentials) Token() string {
	scheme := c.Scheme
	if scheme == "" {
		scheme = DefaultScheme
	}
	user := c.Username
	if user == "" {
		user = DefaultUsername
	}
	enc := base64.StdEncoding.EncodeToString
	return "SCHEME=" + enc([]byte(scheme)) +
		";UID:UserName=" + enc([]byte(user)) +
		";PWD:Password=" + enc([]byte(c.Password)) +
		";PES:Encoding="
}

// Session is an open device session. Sessions are immutable snapshots.
type Session struct {
	ID           string
	Type         wire.SessionType
	TimeLimit    time.Duration
	Capabilities wire.PropertyList
	StartedAt    time.Time
}

// Capability returns the named service capability, or "".
func (s *Session) Capability(name string) string {
	if s == nil {
		return ""
	}
	return s.Capabilities.Value(name)
}

// CapabilityUint returns the named capability as an unsigned integer, or
// def when it is missing or not a number.
func (s *Session) CapabilityUint(name string, def uint32) uint32 {
	v := s.Capability(name)
	if v == "" {
		return def
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return def
	}
	return uint32(n)
}

// MaxObjectPerCall returns the page size for bulk reads.
func (s *Session) MaxObjectPerCall() uint32 {
	n := s.CapabilityUint(CapabilityMaxObjectPerCall, DefaultMaxObjectPerCall)
	if n == 0 {
		return DefaultMaxObjectPerCall
	}
	return n
}

// MaxTagPerEntry returns the number of tags an entry may carry.
func (s *Session) MaxTagPerEntry() uint32 {
	return s.CapabilityUint(CapabilityMaxTagPerEntry, DefaultMaxTagPerEntry)
}

// State represents the session state of a Manager.
type State uint8

const (
	// StateDisconnected indicates no session is open.
	StateDisconnected State = iota

	// StateConnecting indicates a session is being started.
	StateConnecting

	// StateConnected indicates a session is open.
	StateConnected

	// StateClosed indicates the manager has been closed.
	StateClosed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Host names the device in errors and logs.
	Host string

	Credentials Credentials

	// TimeLimit is the idle timeout requested for new sessions (default: 30s).
	TimeLimit time.Duration

	// SessionType is used by Connect when no option overrides it.
	SessionType wire.SessionType

	// Retry configures the retry wrapper around every remote call.
	Retry RetryConfig

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives session state events. Nil disables them.
	ProtocolLogger log.Logger
}

// DefaultManagerConfig returns the default configuration for host.
func DefaultManagerConfig(host string) ManagerConfig {
	return ManagerConfig{
		Host:        host,
		Credentials: Credentials{Scheme: DefaultScheme, Username: DefaultUsername},
		TimeLimit:   DefaultTimeLimit,
		SessionType: wire.SessionShared,
		Retry:       DefaultRetryConfig(),
	}
}

// ConnectOption adjusts a single Connect call.
type ConnectOption func(*connectOptions)

type connectOptions struct {
	timeLimit   time.Duration
	sessionType wire.SessionType
}

// WithTimeLimit overrides the session time limit.
func WithTimeLimit(d time.Duration) ConnectOption {
	return func(o *connectOptions) { o.timeLimit = d }
}

// WithSessionType overrides the session type.
func WithSessionType(t wire.SessionType) ConnectOption {
	return func(o *connectOptions) { o.sessionType = t }
}

// Manager owns the single session of one service endpoint.
//
// Connect and Disconnect must not be called concurrently; reads of the
// active session are safe from any goroutine.
type Manager struct {
	mu sync.RWMutex

	svc     SessionService
	config  ManagerConfig
	retrier *Retrier
	logger  *slog.Logger
	plog    log.Logger

	state   State
	session *Session

	onStateChange func(oldState, newState State)
}

// NewManager creates a Manager for svc.
func NewManager(svc SessionService, config ManagerConfig) *Manager {
	if config.TimeLimit <= 0 {
		config.TimeLimit = DefaultTimeLimit
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	retry := config.Retry
	if retry.Logger == nil {
		retry.Logger = config.Logger
	}

	return &Manager{
		svc:     svc,
		config:  config,
		retrier: NewRetrier(config.Host, retry),
		logger:  logger,
		plog:    log.OrNoop(config.ProtocolLogger),
		state:   StateDisconnected,
	}
}

// Host returns the device host.
func (m *Manager) Host() string {
	return m.config.Host
}

// Retrier returns the retry wrapper used for this host.
func (m *Manager) Retrier() *Retrier {
	return m.retrier
}

// OnStateChange registers a state change callback.
func (m *Manager) OnStateChange(fn func(oldState, newState State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = fn
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// IsConnected returns true while a session is open.
func (m *Manager) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session != nil
}

// Session returns the open session, or nil.
func (m *Manager) Session() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.session
}

// SessionID returns the open session ID, or "".
func (m *Manager) SessionID() string {
	if s := m.Session(); s != nil {
		return s.ID
	}
	return ""
}

// Connect starts a new session, closing any open one first, and discovers
// the service capabilities before returning the session ID. When the open
// session cannot be terminated and is still held, Connect fails without
// starting a new one.
func (m *Manager) Connect(ctx context.Context, opts ...ConnectOption) (string, error) {
	o := connectOptions{timeLimit: m.config.TimeLimit, sessionType: m.config.SessionType}
	for _, opt := range opts {
		opt(&o)
	}

	if m.State() == StateClosed {
		return "", ErrManagerClosed
	}
	if m.IsConnected() {
		if _, err := m.Disconnect(ctx); err != nil {
			// A session the device refused to end may still hold its lock.
			if m.IsConnected() {
				return "", err
			}
			m.logger.Warn("failed to close previous session", "host", m.config.Host, "error", err)
		}
	}

	m.setState(StateConnecting, "", "connect")

	type started struct {
		status wire.Status
		id     string
	}
	res, err := Retry(ctx, m.retrier, wire.ActionStartSession, func(ctx context.Context) (started, error) {
		status, id, err := m.svc.StartSession(ctx, m.config.Credentials.Token(), timeLimitSeconds(o.timeLimit), o.sessionType)
		return started{status, id}, err
	})
	if err != nil {
		m.setState(StateDisconnected, "", "start failed")
		return "", err
	}
	if !res.status.IsOK() || res.id == "" {
		m.setState(StateDisconnected, "", "start rejected")
		return "", &OperationFailedError{
			Host:      m.config.Host,
			Operation: wire.ActionStartSession,
			Err:       &wire.StatusError{Action: wire.ActionStartSession, Status: res.status},
		}
	}

	caps, err := Retry(ctx, m.retrier, wire.ActionGetServiceCapability, func(ctx context.Context) (wire.PropertyList, error) {
		return m.svc.GetServiceCapability(ctx, res.id)
	})
	if err != nil {
		if _, terr := m.svc.TerminateSession(context.WithoutCancel(ctx), res.id); terr != nil {
			m.logger.Debug("terminate after failed discovery", "host", m.config.Host, "error", terr)
		}
		m.setState(StateDisconnected, res.id, "capability discovery failed")
		return "", err
	}

	session := &Session{
		ID:           res.id,
		Type:         o.sessionType,
		TimeLimit:    o.timeLimit,
		Capabilities: caps,
		StartedAt:    time.Now(),
	}
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.logger.Info("session started",
		"host", m.config.Host,
		"type", o.sessionType,
		"capabilities", len(caps))
	m.setState(StateConnected, session.ID, o.sessionType.String())

	return session.ID, nil
}

// Disconnect terminates the open session. It returns false when no session
// was open or the device did not acknowledge the termination.
func (m *Manager) Disconnect(ctx context.Context) (bool, error) {
	session := m.Session()
	if session == nil {
		return false, nil
	}

	status, err := Retry(ctx, m.retrier, wire.ActionTerminateSession, func(ctx context.Context) (wire.Status, error) {
		return m.svc.TerminateSession(ctx, session.ID)
	})
	if err != nil {
		if m.isTransient(err) {
			m.invalidate(session, "terminate failed")
		}
		return false, err
	}

	m.invalidate(session, "disconnect")
	if !status.IsOK() {
		m.logger.Warn("session termination not acknowledged", "host", m.config.Host, "status", status)
		return false, nil
	}
	m.logger.Info("session terminated", "host", m.config.Host)
	return true, nil
}

// WithSession runs fn inside a session of type t. A held session of that
// type is reused and left open. Otherwise a session is opened for fn and
// closed afterwards; a held session of another type is closed first.
func (m *Manager) WithSession(ctx context.Context, t wire.SessionType, fn func(ctx context.Context, s *Session) error) error {
	if m.State() == StateClosed {
		return ErrManagerClosed
	}

	if held := m.Session(); held != nil && held.Type == t {
		err := fn(ctx, held)
		if err != nil && m.isTransient(err) {
			m.invalidate(held, "transient failure")
		}
		return err
	}

	if _, err := m.Connect(ctx, WithSessionType(t)); err != nil {
		return err
	}
	session := m.Session()
	if session == nil {
		return ErrNotConnected
	}

	err := fn(ctx, session)

	if _, derr := m.Disconnect(context.WithoutCancel(ctx)); derr != nil {
		m.logger.Warn("failed to close session", "host", m.config.Host, "error", derr)
	}
	return err
}

// Within is WithSession for functions that return a value.
func Within[T any](ctx context.Context, m *Manager, t wire.SessionType, fn func(ctx context.Context, s *Session) (T, error)) (T, error) {
	var result T
	err := m.WithSession(ctx, t, func(ctx context.Context, s *Session) error {
		v, err := fn(ctx, s)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}

// Close disconnects an open session and stops the manager.
func (m *Manager) Close(ctx context.Context) error {
	if m.State() == StateClosed {
		return nil
	}
	_, err := m.Disconnect(ctx)
	m.setState(StateClosed, "", "close")
	return err
}

// invalidate drops session if it is still the open one.
func (m *Manager) invalidate(session *Session, reason string) {
	m.mu.Lock()
	if m.session != session {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.mu.Unlock()
	m.setState(StateDisconnected, session.ID, reason)
}

func (m *Manager) isTransient(err error) bool {
	if err == nil {
		return false
	}
	if m.retrier.config.IsTransient(err) {
		return true
	}
	var of *OperationFailedError
	return errors.As(err, &of) && of.Err != nil && m.retrier.config.IsTransient(of.Err)
}

func (m *Manager) setState(newState State, sessionID, reason string) {
	m.mu.Lock()
	oldState := m.state
	if oldState == newState {
		m.mu.Unlock()
		return
	}
	m.state = newState
	cb := m.onStateChange
	m.mu.Unlock()

	m.plog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerSession,
		Category:  log.CategoryState,
		Host:      m.config.Host,
		StateChange: &log.StateChangeEvent{
			OldState:  oldState.String(),
			NewState:  newState.String(),
			SessionID: sessionID,
			Reason:    reason,
		},
	})
	if cb != nil {
		cb(oldState, newState)
	}
}

func timeLimitSeconds(d time.Duration) uint16 {
	s := d / time.Second
	switch {
	case s <= 0:
		return uint16(DefaultTimeLimit / time.Second)
	case s > math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(s)
	}
}
