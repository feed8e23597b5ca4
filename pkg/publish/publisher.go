// Package publish forwards counter snapshots, usage and service events to
// an MQTT broker as JSON.
//
// Topics are rooted at a configurable prefix:
//
//	<prefix>/<host>/counters           full snapshot (retained)
//	<prefix>/<host>/counters/<index>   one user slot (retained)
//	<prefix>/<host>/usage              deltas since the previous snapshot
//	<prefix>/<host>/events/<type>      service events
//	<prefix>/discovery                 printers found on the network
package publish

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/gheeres/ricoh-go/pkg/persistence"
)

// Defaults.
const (
	DefaultTopicPrefix = "ricoh"
	DefaultTimeout     = 5 * time.Second
	disconnectQuiesce  = 250
)

// ErrTimeout is returned when the broker did not acknowledge in time.
var ErrTimeout = errors.New("mqtt: timed out")

// Config configures a Publisher.
type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker string

	// ClientID identifies the connection. Default: ricohctl-<uuid>.
	ClientID string

	Username string
	Password string

	// TopicPrefix roots every topic (default: "ricoh").
	TopicPrefix string

	// QoS for all messages (0, 1 or 2).
	QoS byte

	// Retain marks snapshot messages as retained.
	Retain bool

	// Timeout bounds connect and each publish (default: 5s).
	Timeout time.Duration

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger
}

// DefaultConfig returns a configuration for broker.
func DefaultConfig(broker string) Config {
	return Config{
		Broker:      broker,
		TopicPrefix: DefaultTopicPrefix,
		QoS:         1,
		Retain:      true,
		Timeout:     DefaultTimeout,
	}
}

// Publisher publishes JSON messages to an MQTT broker.
type Publisher struct {
	client mqtt.Client
	config Config
	logger *slog.Logger
}

// Connect connects to the configured broker.
func Connect(config Config) (*Publisher, error) {
	if config.Broker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}
	if config.ClientID == "" {
		config.ClientID = "ricohctl-" + uuid.NewString()
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	opts := mqtt.NewClientOptions()
	opts.SetClientID(config.ClientID)
	opts.AddBroker(config.Broker)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetConnectTimeout(config.Timeout)
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(config.Timeout) {
		return nil, fmt.Errorf("connect to %s: %w", config.Broker, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", err)
	}
	return New(client, config), nil
}

// New wraps a connected client.
func New(client mqtt.Client, config Config) *Publisher {
	if config.TopicPrefix == "" {
		config.TopicPrefix = DefaultTopicPrefix
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Publisher{client: client, config: config, logger: logger}
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(disconnectQuiesce)
}

// Topic joins parts under the prefix. Wildcards and separators inside a
// part are replaced.
func (p *Publisher) Topic(parts ...string) string {
	clean := make([]string, 0, len(parts)+1)
	clean = append(clean, p.config.TopicPrefix)
	for _, part := range parts {
		clean = append(clean, topicReplacer.Replace(part))
	}
	return strings.Join(clean, "/")
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_")

// PublishSnapshot publishes the snapshot and each user slot.
func (p *Publisher) PublishSnapshot(snap *persistence.Snapshot) error {
	if err := p.publish(p.Topic(snap.Host, "counters"), p.config.Retain, snap); err != nil {
		return err
	}
	for _, u := range snap.Users {
		topic := p.Topic(snap.Host, "counters", fmt.Sprintf("%d", u.Index))
		if err := p.publish(topic, p.config.Retain, u); err != nil {
			return err
		}
	}
	p.logger.Info("published counters", "host", snap.Host, "users", len(snap.Users))
	return nil
}

// PublishUsage publishes the deltas of host.
func (p *Publisher) PublishUsage(host string, deltas []persistence.Delta) error {
	return p.publish(p.Topic(host, "usage"), false, deltas)
}

func (p *Publisher) publish(topic string, retain bool, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := p.client.Publish(topic, p.config.QoS, retain, payload)
	if !token.WaitTimeout(p.config.Timeout) {
		return fmt.Errorf("publish %s: %w", topic, ErrTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	p.logger.Debug("published", "topic", topic, "bytes", len(payload))
	return nil
}
