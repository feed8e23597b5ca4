package udirectory

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/log"
	"github.com/gheeres/ricoh-go/pkg/model"
	"github.com/gheeres/ricoh-go/pkg/pagination"
	"github.com/gheeres/ricoh-go/pkg/transport"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// ServiceName is the endpoint path segment of the service.
const ServiceName = "udirectory"

// Object classes.
const (
	ClassEntry = "entry"
	ClassTag   = "tag"
)

// DefaultTagParentID is the object that holds the index tags.
const DefaultTagParentID uint32 = 2

// Service capability names.
const (
	CapabilityEntryProperty        = "entryProperty"
	CapabilityMaxEntryNameSize     = "maxEntryNameSize"
	CapabilityMaxEntryLongNameSize = "maxEntryLongNameSize"
	CapabilityMaxMailAddressLength = "maxMailAddressLength"
)

// IDs this long or longer belong to built-in entries.
const maxEntryIDLength = 10

// DefaultSupportedFields are requested when the device does not announce
// an entryProperty capability.
var DefaultSupportedFields = []string{
	"entryType", "id", "name", "longName",
	"phoneticName", "index", "isUser", "isGroup", "isBuiltInUser", "isBuiltInGroup", "builtIn", "accessControlPolicy",
	"passwordEncoding", "isDestination", "isSender",
	"auth:", "auth:name", "auth:password",
	"password:", "password:password", "password:usedForMailSender", "password:usedForRemoteFolder", "password:passwordEncoding",
	"mail:", "mail:address", "mail:parameter", "mail:isDirectSMTP",
	"fax:", "fax:number", "fax:lineType", "fax:isAbroad", "fax:parameter",
	"ipfax:", "ipfax:address", "ipfax:parameter", "ipfax:type",
	"ifax:", "ifax:address", "ifax:parameter", "ifax:isDirectSMTP",
	"faxAux:", "faxAux:ttiNo", "faxAux:label1", "faxAux:label2String", "faxAux:messageNo",
	"faxRelay:", "faxRelay:numbers",
	"remoteFolder:", "remoteFolder:type", "remoteFolder:serverName", "remoteFolder:path", "remoteFolder:accountName",
	"remoteFolder:password", "remoteFolder:port", "remoteFolder:characterEncoding", "remoteFolder:passwordEncoding",
	"remoteFolder:select", "remoteFolder:logonMode",
	"ldap:", "ldap:accountName", "ldap:password", "ldap:passwordEncoding", "ldap:select",
	"smtp:", "smtp:accountName", "smtp:password", "smtp:passwordEncoding", "smtp:select",
	"tagId",
}

// truncation maps a property to the capability holding its maximum length.
var truncation = map[string]string{
	model.PropName:        CapabilityMaxEntryNameSize,
	model.PropDisplayName: CapabilityMaxEntryLongNameSize,
	model.PropEmail:       CapabilityMaxMailAddressLength,
}

// Config configures a Service.
type Config struct {
	// Host is the device host name or address.
	Host string

	Credentials connection.Credentials

	// TimeLimit is the session idle timeout (default: 30s).
	TimeLimit time.Duration

	// Timeout bounds a single request (default: 60s). Used by Dial only.
	Timeout time.Duration

	// SessionType is the lock mode of read sessions (default: shared).
	// Writes always use an exclusive session.
	SessionType wire.SessionType

	// TagParentID is the object holding the index tags (default: 2).
	TagParentID uint32

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
		SessionType: wire.SessionShared,
		TagParentID: DefaultTagParentID,
		Retry:       mc.Retry,
	}
}

// Service is an address book client for one device.
type Service struct {
	remote  Remote
	config  Config
	manager *connection.Manager
	retrier *connection.Retrier
	engine  *pagination.Engine
	logger  *slog.Logger

	mu            sync.RWMutex
	eventHandlers []EventHandler
}

// New creates a Service on remote.
func New(remote Remote, config Config) *Service {
	if config.TagParentID == 0 {
		config.TagParentID = DefaultTagParentID
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	manager := connection.NewManager(remote, connection.ManagerConfig{
		Host:           config.Host,
		Credentials:    config.Credentials,
		TimeLimit:      config.TimeLimit,
		SessionType:    config.SessionType,
		Retry:          config.Retry,
		Logger:         config.Logger,
		ProtocolLogger: config.ProtocolLogger,
	})

	return &Service{
		remote:  remote,
		config:  config,
		manager: manager,
		retrier: manager.Retrier(),
		engine:  pagination.NewEngine(remote, manager.Retrier(), logger),
		logger:  logger,
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

// OnEvent registers an event handler.
func (s *Service) OnEvent(handler EventHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventHandlers = append(s.eventHandlers, handler)
}

// Close ends any open session.
func (s *Service) Close(ctx context.Context) error {
	return s.manager.Close(ctx)
}

func (s *Service) hasHandlers() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.eventHandlers) > 0
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

// SupportedFields returns the entry properties announced by the session,
// or DefaultSupportedFields.
func SupportedFields(session *connection.Session) []string {
	var fields []string
	for _, f := range strings.Split(session.Capability(CapabilityEntryProperty), ",") {
		if f = strings.TrimSpace(f); f != "" {
			fields = append(fields, f)
		}
	}
	if len(fields) == 0 {
		return DefaultSupportedFields
	}
	return fields
}

// limits returns the truncation limits announced by the session.
func limits(session *connection.Session) map[string]int {
	out := make(map[string]int, len(truncation))
	for prop, capability := range truncation {
		if n := session.CapabilityUint(capability, 0); n > 0 {
			out[prop] = int(n)
		}
	}
	return out
}

func objectID(id string) string {
	return ClassEntry + ":" + id
}

func parseEntryID(s string) (uint32, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), ClassEntry+":")
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint32(n), nil
}
