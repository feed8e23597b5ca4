// Package config loads the ricohctl configuration file.
//
// The file is YAML (.yaml, .yml) or TOML (.toml), chosen by extension.
// Unknown keys are rejected. Every value has a default, so an absent file
// is valid.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/gheeres/ricoh-go/pkg/connection"
	"github.com/gheeres/ricoh-go/pkg/devicemanagement"
	"github.com/gheeres/ricoh-go/pkg/discovery"
	"github.com/gheeres/ricoh-go/pkg/publish"
	"github.com/gheeres/ricoh-go/pkg/transport"
	"github.com/gheeres/ricoh-go/pkg/udirectory"
)

// Environment variables read by ApplyEnv.
const (
	EnvPassword     = "RICOH_PASSWORD"
	EnvHost         = "RICOH_HOST"
	EnvMQTTPassword = "RICOH_MQTT_PASSWORD"
)

// ErrUnsupportedFormat is returned for files that are neither YAML nor TOML.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// Config is the complete ricohctl configuration.
type Config struct {
	Device    DeviceConfig    `yaml:"device" toml:"device"`
	Log       LogConfig       `yaml:"log" toml:"log"`
	Store     StoreConfig     `yaml:"store" toml:"store"`
	MQTT      MQTTConfig      `yaml:"mqtt" toml:"mqtt"`
	Discovery DiscoveryConfig `yaml:"discovery" toml:"discovery"`
}

// DeviceConfig selects and authenticates against a device.
type DeviceConfig struct {
	Host     string `yaml:"host" toml:"host"`
	Username string `yaml:"username" toml:"username"`
	Password string `yaml:"password" toml:"password"`

	// Scheme is the authentication scheme (BASIC).
	Scheme string `yaml:"scheme" toml:"scheme"`

	// TimeLimit is the session idle timeout.
	TimeLimit Duration `yaml:"time_limit" toml:"time_limit"`

	// Timeout bounds a single request.
	Timeout Duration `yaml:"timeout" toml:"timeout"`

	// Retries is the number of calls made before giving up.
	Retries int `yaml:"retries" toml:"retries"`

	// RetryBackoff is the wait before the first retry, doubling per retry
	// up to RetryBackoffMax. Zero retries immediately.
	RetryBackoff    Duration `yaml:"retry_backoff" toml:"retry_backoff"`
	RetryBackoffMax Duration `yaml:"retry_backoff_max" toml:"retry_backoff_max"`

	// Concurrency limits parallel object reads and writes.
	Concurrency int `yaml:"concurrency" toml:"concurrency"`

	// TagParentID is the parent of the address book tags.
	TagParentID uint32 `yaml:"tag_parent_id" toml:"tag_parent_id"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level" toml:"level"`

	// Format is text or json.
	Format string `yaml:"format" toml:"format"`

	// Capture is a file receiving protocol capture events (empty: off).
	Capture string `yaml:"capture" toml:"capture"`
}

// StoreConfig configures the counter snapshot store.
type StoreConfig struct {
	Path string `yaml:"path" toml:"path"`

	// Keep is the number of snapshots kept per host (0 keeps all).
	Keep int `yaml:"keep" toml:"keep"`
}

// MQTTConfig configures publishing. Publishing is off without a broker.
type MQTTConfig struct {
	Broker      string   `yaml:"broker" toml:"broker"`
	ClientID    string   `yaml:"client_id" toml:"client_id"`
	Username    string   `yaml:"username" toml:"username"`
	Password    string   `yaml:"password" toml:"password"`
	TopicPrefix string   `yaml:"topic_prefix" toml:"topic_prefix"`
	QoS         int      `yaml:"qos" toml:"qos"`
	Retain      bool     `yaml:"retain" toml:"retain"`
	Timeout     Duration `yaml:"timeout" toml:"timeout"`
}

// DiscoveryConfig configures mDNS discovery.
type DiscoveryConfig struct {
	Timeout   Duration `yaml:"timeout" toml:"timeout"`
	Interface string   `yaml:"interface" toml:"interface"`

	// AllBrands also lists printers that are not Ricoh devices.
	AllBrands bool `yaml:"all_brands" toml:"all_brands"`
}

// Default returns the built-in configuration.
func Default() *Config {
	mc := connection.DefaultManagerConfig("")
	pc := publish.DefaultConfig("")
	return &Config{
		Device: DeviceConfig{
			Username:        mc.Credentials.Username,
			Scheme:          mc.Credentials.Scheme,
			TimeLimit:       Duration(mc.TimeLimit),
			Timeout:         Duration(transport.DefaultTimeout),
			Retries:         connection.DefaultMaxAttempts,
			RetryBackoffMax: Duration(connection.DefaultBackoffMax),
			Concurrency:     devicemanagement.DefaultConcurrency,
			TagParentID:     udirectory.DefaultTagParentID,
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
		Store: StoreConfig{
			Path: defaultStorePath(),
			Keep: 100,
		},
		MQTT: MQTTConfig{
			TopicPrefix: pc.TopicPrefix,
			QoS:         int(pc.QoS),
			Retain:      pc.Retain,
			Timeout:     Duration(pc.Timeout),
		},
		Discovery: DiscoveryConfig{
			Timeout: Duration(discovery.BrowseTimeout),
		},
	}
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "ricohctl.db"
	}
	return filepath.Join(dir, "ricohctl", "counters.db")
}

// Load reads path over the defaults, applies the environment and
// validates the result. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config load failed (%s): %w", path, err)
		}
		if err := cfg.decode(path, data); err != nil {
			return nil, fmt.Errorf("config parse failed (%s): %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(path string, data []byte) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		meta, err := toml.Decode(string(data), c)
		if err != nil {
			return err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown key %q", undecoded[0].String())
		}
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// ApplyEnv fills the password and host from the environment when the file
// left them empty.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Device.Password == "" {
		c.Device.Password = getenv(EnvPassword)
	}
	if c.Device.Host == "" {
		c.Device.Host = getenv(EnvHost)
	}
	if c.MQTT.Password == "" {
		c.MQTT.Password = getenv(EnvMQTTPassword)
	}
}

// Validate checks value ranges. A missing host is not an error: commands
// that need one check for it.
func (c *Config) Validate() error {
	var errs error
	if c.Device.TimeLimit < Duration(time.Second) {
		errs = multierr.Append(errs, errors.New("device.time_limit must be at least 1s"))
	}
	if c.Device.Timeout <= 0 {
		errs = multierr.Append(errs, errors.New("device.timeout must be positive"))
	}
	if c.Device.Retries < 1 {
		errs = multierr.Append(errs, errors.New("device.retries must be at least 1"))
	}
	if c.Device.RetryBackoff < 0 || c.Device.RetryBackoffMax < 0 {
		errs = multierr.Append(errs, errors.New("device.retry_backoff must not be negative"))
	}
	if c.Device.Concurrency < 1 {
		errs = multierr.Append(errs, errors.New("device.concurrency must be at least 1"))
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		errs = multierr.Append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = multierr.Append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	if c.Store.Keep < 0 {
		errs = multierr.Append(errs, errors.New("store.keep must not be negative"))
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = multierr.Append(errs, fmt.Errorf("mqtt.qos %d is not 0, 1 or 2", c.MQTT.QoS))
	}
	if c.MQTT.Broker != "" && !strings.Contains(c.MQTT.Broker, "://") {
		errs = multierr.Append(errs, fmt.Errorf("mqtt.broker %q needs a scheme (tcp://, ssl://, ws://)", c.MQTT.Broker))
	}
	return errs
}

// ParseLevel converts a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("log.level %q: %w", s, err)
	}
	return level, nil
}

// Credentials returns the device credentials.
func (c *Config) Credentials() connection.Credentials {
	return connection.Credentials{
		Scheme:   c.Device.Scheme,
		Username: c.Device.Username,
		Password: c.Device.Password,
	}
}

func (c *Config) retry() connection.RetryConfig {
	r := connection.DefaultRetryConfig()
	r.MaxAttempts = c.Device.Retries
	if c.Device.RetryBackoff > 0 {
		r.Backoff = &connection.BackoffConfig{
			Initial: c.Device.RetryBackoff.Std(),
			Max:     c.Device.RetryBackoffMax.Std(),
		}
	}
	return r
}

// DeviceManagement returns the device management configuration.
func (c *Config) DeviceManagement() devicemanagement.Config {
	cfg := devicemanagement.DefaultConfig(c.Device.Host)
	cfg.Credentials = c.Credentials()
	cfg.TimeLimit = c.Device.TimeLimit.Std()
	cfg.Timeout = c.Device.Timeout.Std()
	cfg.Concurrency = c.Device.Concurrency
	cfg.Retry = c.retry()
	return cfg
}

// Directory returns the address book configuration.
func (c *Config) Directory() udirectory.Config {
	cfg := udirectory.DefaultConfig(c.Device.Host)
	cfg.Credentials = c.Credentials()
	cfg.TimeLimit = c.Device.TimeLimit.Std()
	cfg.Timeout = c.Device.Timeout.Std()
	cfg.TagParentID = c.Device.TagParentID
	cfg.Retry = c.retry()
	return cfg
}

// Browser returns the discovery configuration.
func (c *Config) Browser() discovery.BrowserConfig {
	cfg := discovery.DefaultBrowserConfig()
	cfg.BrowseTimeout = c.Discovery.Timeout.Std()
	cfg.Interface = c.Discovery.Interface
	cfg.RicohOnly = !c.Discovery.AllBrands
	return cfg
}

// Publish returns the MQTT configuration.
func (c *Config) Publish() publish.Config {
	cfg := publish.DefaultConfig(c.MQTT.Broker)
	cfg.ClientID = c.MQTT.ClientID
	cfg.Username = c.MQTT.Username
	cfg.Password = c.MQTT.Password
	cfg.TopicPrefix = c.MQTT.TopicPrefix
	cfg.QoS = byte(c.MQTT.QoS)
	cfg.Retain = c.MQTT.Retain
	cfg.Timeout = c.MQTT.Timeout.Std()
	return cfg
}
