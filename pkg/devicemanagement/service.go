package devicemanagement

import (
	"cmp"
	"context"
	"errors"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/log"
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/transport"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// ServiceName is the endpoint path segment of the service.
const ServiceName = "devicemanagement"

// DefaultConcurrency is the number of objects read in parallel.
const DefaultConcurrency = 4

// ErrNoCapability is returned when the device answers a capability request
// without a schema.
var ErrNoCapability = errors.New("no object capability")

var (
	replaceAll  = wire.PropertyList{{Name: "replaceAll", Value: "true"}}
	mergeFields = wire.PropertyList{{Name: "replaceAll", Value: "false"}}
)

// Config configures a Service.
type Config struct {
	// Host is the device host name or address.
	Host string

	// DeviceID selects the device behind the endpoint (default: 0).
	DeviceID uint32

	Credentials connection.Credentials

	// TimeLimit is the session idle timeout (default: 30s).
	TimeLimit time.Duration

	// Timeout bounds a single request (default: 60s). Used by Dial only.
	Timeout time.Duration

	// Concurrency limits parallel object reads and writes (default: 4).
	Concurrency int

	Retry connection.RetryConfig

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives capture events. Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultConfig returns the default configuration for host.
func DefaultConfig(host string) Config {
	mc := connection.DefaultManagerConfig(host)
	return Config{
		Host:        host,
		Credentials: mc.Credentials,
		TimeLimit:   mc.TimeLimit,
		Timeout:     transport.DefaultTimeout,
		Concurrency: DefaultConcurrency,
		Retry:       mc.Retry,
	}
}

// Service is a device management client for one device.
type Service struct {
	remote   Remote
	config   Config
	manager  *connection.Manager
	retrier  *connection.Retrier
	resolver *model.Resolver
	logger   *slog.Logger

	mu            sync.RWMutex
	eventHandlers []EventHandler

	// Access-control capabilities do not change while the device runs.
	access      model.Category
	accessKnown bool
}

// New creates a Service on remote.
func New(remote Remote, config Config) *Service {
	if config.Concurrency <= 0 {
		config.Concurrency = DefaultConcurrency
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	mc := connection.ManagerConfig{
		Host:           config.Host,
		Credentials:    config.Credentials,
		TimeLimit:      config.TimeLimit,
		SessionType:    wire.SessionShared,
		Retry:          config.Retry,
		Logger:         config.Logger,
		ProtocolLogger: config.ProtocolLogger,
	}
	manager := connection.NewManager(remote, mc)

	return &Service{
		remote:   remote,
		config:   config,
		manager:  manager,
		retrier:  manager.Retrier(),
		resolver: model.NewResolver(logger),
		logger:   logger,
	}
}

// Dial creates a Service talking SOAP to config.Host.
func Dial(config Config) (*Service, error) {
	cc := transport.DefaultClientConfig(config.Host, ServiceName)
	if config.Timeout > 0 {
		cc.Timeout = config.Timeout
	}
	cc.Logger = config.Logger
	cc.ProtocolLogger = config.ProtocolLogger

	client, err := transport.NewClient(cc)
	if err != nil {
		return nil, err
	}
	return New(NewSOAPRemote(client), config), nil
}

// Host returns the device host.
func (s *Service) Host() string {
	return s.config.Host
}

// Manager returns the session manager.
func (s *Service) Manager() *connection.Manager {
	return s.manager
}

// OnEvent registers an event handler. Handlers run on worker goroutines
// and must be safe for concurrent use.
func (s *Service) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandlers = append(s.eventHandlers, handler)
}

// Close ends any open session.
func (s *Service) Close(ctx context.Context) error {
	return s.manager.Close(ctx)
}

func (s *Service) emit(e Event) {
	e.Host = s.config.Host
	s.mu.RLock()
	handlers := slices.Clone(s.eventHandlers)
	s.mu.RUnlock()
	for _, h := range handlers {
		h(e)
	}
}

// objectIDs lists the object IDs of class. Unparseable IDs are skipped.
func (s *Service) objectIDs(ctx context.Context, sessionID, class string) ([]uint32, error) {
	raw, err := connection.Retry(ctx, s.retrier, wire.ActionGetObjects, func(ctx context.Context) ([]string, error) {
		return s.remote.GetObjects(ctx, sessionID, s.config.DeviceID, class)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]uint32, 0, len(raw))
	for _, r := range raw {
		id, err := strconv.ParseUint(strings.TrimSpace(r), 10, 32)
		if err != nil || id == 0 {
			s.logger.Warn("invalid object id", "host", s.config.Host, "class", class, "oid", r)
			continue
		}
		ids = append(ids, uint32(id))
	}
	s.logger.Debug("objects listed", "host", s.config.Host, "class", class, "count", len(ids))
	return ids, nil
}

func (s *Service) objectCapability(ctx context.Context, sessionID string, id uint32) (*wire.ObjectCapability, error) {
	capability, err := connection.Retry(ctx, s.retrier, wire.ActionGetObjectCapability, func(ctx context.Context) (*wire.ObjectCapability, error) {
		return s.remote.GetObjectCapability(ctx, sessionID, s.config.DeviceID, id)
	})
	if err != nil {
		return nil, err
	}
	if capability == nil {
		return nil, &connection.OperationFailedError{Host: s.config.Host, Operation: wire.ActionGetObjectCapability, Err: ErrNoCapability}
	}
	return capability, nil
}

// fetchObject reads object id with the fields of the shared capability. A
// nil object means the device returned nothing for id.
func (s *Service) fetchObject(ctx context.Context, sessionID string, id uint32, cache *capabilityCache) (*wire.Object, []wire.FieldCapability, error) {
	capability, err := cache.get(ctx, func(ctx context.Context) (*wire.ObjectCapability, error) {
		return s.objectCapability(ctx, sessionID, id)
	})
	if err != nil {
		return nil, nil, err
	}

	obj, err := connection.Retry(ctx, s.retrier, wire.ActionGetObject, func(ctx context.Context) (*wire.Object, error) {
		return s.remote.GetObject(ctx, sessionID, s.config.DeviceID, id, capability.FieldNames())
	})
	if err != nil {
		return nil, nil, err
	}
	if obj == nil {
		s.logger.Warn("empty object", "host", s.config.Host, "oid", id)
		return nil, nil, nil
	}
	if obj.ObjectID == 0 {
		obj.ObjectID = id
	}
	return obj, capability.Fields, nil
}

// update writes obj. A status other than OK is logged and reported as
// false.
func (s *Service) update(ctx context.Context, sessionID string, obj wire.Object, options wire.PropertyList) (bool, error) {
	status, err := connection.Retry(ctx, s.retrier, wire.ActionUpdateObject, func(ctx context.Context) (wire.Status, error) {
		return s.remote.UpdateObject(ctx, sessionID, s.config.DeviceID, obj, options)
	})
	if err != nil {
		return false, err
	}
	if !status.IsOK() {
		s.logger.Warn("update rejected", "host", s.config.Host, "oid", obj.ObjectID, "status", status)
		return false, nil
	}
	return true, nil
}

// fanOut runs fn for every id on at most Concurrency workers. Failures of
// single objects are collected and returned; only cancellation aborts.
func (s *Service) fanOut(ctx context.Context, ids []uint32, fn func(ctx context.Context, id uint32) error) ([]error, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)

	var (
		mu       sync.Mutex
		failures []error
	)
	for _, id := range ids {
		g.Go(func() error {
			err := fn(gctx, id)
			if err == nil {
				return nil
			}
			if cerr := gctx.Err(); cerr != nil {
				return cerr
			}
			s.logger.Warn("object failed", "host", s.config.Host, "oid", id, "error", err)
			s.emit(Event{Type: EventObjectFailed, ObjectID: id, Error: err})
			mu.Lock()
			failures = append(failures, err)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return failures, nil
}

type indexed interface {
	Index() uint32
}

// fetchAll reads every object of class and builds a view of each, sorted by
// slot index.
func fetchAll[T indexed](ctx context.Context, s *Service, sessionID, class string, build func(*wire.Object, []wire.FieldCapability) T) ([]T, []error, error) {
	ids, err := s.objectIDs(ctx, sessionID, class)
	if err != nil {
		return nil, nil, err
	}

	cache := &capabilityCache{}
	var (
		mu      sync.Mutex
		results []T
	)
	failures, err := s.fanOut(ctx, ids, func(ctx context.Context, id uint32) error {
		obj, capabilities, err := s.fetchObject(ctx, sessionID, id, cache)
		if err != nil || obj == nil {
			return err
		}
		v := build(obj, capabilities)
		mu.Lock()
		results = append(results, v)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slices.SortFunc(results, func(a, b T) int {
		return cmp.Compare(a.Index(), b.Index())
	})
	return results, failures, nil
}

// partial combines per-object failures, or returns nil when there are none.
func partial(operation string, succeeded int, failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &connection.PartialError{
		Operation: operation,
		Succeeded: succeeded,
		Failed:    len(failures),
		Err:       multierr.Combine(failures...),
	}
}
