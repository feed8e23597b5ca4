package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gheeres/ricoh-go/pkg/envelope"
	"github.com/gheeres/ricoh-go/pkg/log"
	"github.com/gheeres/ricoh-go/pkg/version"
	"github.com/gheeres/ricoh-go/pkg/wire"
)

// DefaultTimeout is the per-request timeout. Devices answer slowly while
// printing, so this is generous.
const DefaultTimeout = 60 * time.Second

// MaxResponseSize limits how much of a response body is read.
const MaxResponseSize = 16 << 20

// Caller issues one SOAP call. Implemented by *Client.
type Caller interface {
	Call(ctx context.Context, action string, req, resp any) error
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// Endpoint is the full service URL.
	Endpoint string

	// Namespace qualifies the operation element of each request.
	Namespace string

	// Timeout bounds a single request (default: 60s). Ignored when
	// HTTPClient is set.
	Timeout time.Duration

	// HTTPClient overrides the HTTP client.
	HTTPClient *http.Client

	// DisableNormalize skips the multi-reference rewrite.
	DisableNormalize bool

	// Logger receives operational logs. Nil disables them.
	Logger *slog.Logger

	// ProtocolLogger receives capture events. Nil disables capture.
	ProtocolLogger log.Logger
}

// DefaultClientConfig returns a configuration for the named service
// ("devicemanagement" or "udirectory") on host.
func DefaultClientConfig(host, service string) ClientConfig {
	ns := wire.NamespaceDeviceManagement
	if service == "udirectory" {
		ns = wire.NamespaceUDirectory
	}
	return ClientConfig{
		Endpoint:  EndpointURL(host, service),
		Namespace: ns,
		Timeout:   DefaultTimeout,
	}
}

// EndpointURL returns http://<host>/DH/<service>. A host that already
// carries a scheme keeps it.
func EndpointURL(host, service string) string {
	host = strings.TrimRight(host, "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	return host + "/DH/" + service
}

// Client posts SOAP envelopes to one service endpoint.
type Client struct {
	config ClientConfig
	http   *http.Client
	host   string
	logger *slog.Logger
	plog   log.Logger
}

// NewClient creates a Client.
func NewClient(config ClientConfig) (*Client, error) {
	u, err := url.Parse(config.Endpoint)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid endpoint %q", config.Endpoint)
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	hc := config.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: config.Timeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		config: config,
		http:   hc,
		host:   u.Hostname(),
		logger: logger,
		plog:   log.OrNoop(config.ProtocolLogger),
	}, nil
}

// Host returns the device host name.
func (c *Client) Host() string {
	return c.host
}

// Endpoint returns the service URL.
func (c *Client) Endpoint() string {
	return c.config.Endpoint
}

// Call encodes req, posts it and decodes the response into resp.
func (c *Client) Call(ctx context.Context, action string, req, resp any) error {
	body, err := wire.EncodeEnvelope(c.config.Namespace, action, req)
	if err != nil {
		return err
	}
	data, err := c.exchange(ctx, action, body)
	if err != nil {
		return err
	}
	return c.decode(action, data, resp)
}

// Do posts a pre-encoded envelope and returns the raw response envelope.
// A SOAP fault in the response is returned as *wire.Fault together with the
// raw bytes.
func (c *Client) Do(ctx context.Context, action string, env []byte) ([]byte, error) {
	data, err := c.exchange(ctx, action, env)
	if err != nil {
		return data, err
	}
	if err := c.decode(action, data, nil); err != nil {
		return data, err
	}
	return data, nil
}

func (c *Client) exchange(ctx context.Context, action string, body []byte) ([]byte, error) {
	id := log.NewExchangeID()

	if !c.config.DisableNormalize {
		normalized, err := envelope.Normalize(body, action)
		if err != nil {
			c.logError(id, action, log.LayerEnvelope, err, "normalize")
			return nil, fmt.Errorf("normalize %s: %w", action, err)
		}
		if !bytes.Equal(normalized, body) {
			c.logger.Debug("envelope rewritten", "action", action, "before", len(body), "after", len(normalized))
			c.capture(id, action, log.DirectionOut, log.LayerEnvelope, log.NewMessageEvent(normalized))
		}
		body = normalized
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", `"`+c.config.Namespace+"#"+action+`"`)
	req.Header.Set("User-Agent", version.UserAgent())

	c.capture(id, action, log.DirectionOut, log.LayerTransport, log.NewMessageEvent(body))

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		cerr := &CommunicationError{Endpoint: c.config.Endpoint, Action: action, Err: err}
		c.logError(id, action, log.LayerTransport, cerr, "post")
		return nil, cerr
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		cerr := &CommunicationError{Endpoint: c.config.Endpoint, Action: action, StatusCode: resp.StatusCode, Err: err}
		c.logError(id, action, log.LayerTransport, cerr, "read")
		return nil, cerr
	}

	msg := log.NewMessageEvent(data)
	msg.HTTPStatus = resp.StatusCode
	msg.Duration = time.Since(start)
	c.capture(id, action, log.DirectionIn, log.LayerTransport, msg)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		err := fmt.Errorf("%w: %s", ErrEntryPointNotFound, c.config.Endpoint)
		c.logError(id, action, log.LayerTransport, err, "status")
		return nil, err
	case resp.StatusCode >= 500:
		// A fault travels with 500; only a faultless 5xx is a channel failure.
		if ferr := wire.DecodeEnvelope(data, nil); wire.IsFault(ferr, "") {
			return data, nil
		}
		cerr := &CommunicationError{
			Endpoint:   c.config.Endpoint,
			Action:     action,
			StatusCode: resp.StatusCode,
			Err:        errors.New(http.StatusText(resp.StatusCode)),
		}
		c.logError(id, action, log.LayerTransport, cerr, "status")
		return nil, cerr
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, c.config.Endpoint)
	}
	return data, nil
}

func (c *Client) decode(action string, data []byte, resp any) error {
	err := wire.DecodeEnvelope(data, resp)
	if err == nil {
		return nil
	}
	var fault *wire.Fault
	if errors.As(err, &fault) {
		c.logger.Warn("device fault", "host", c.host, "action", action, "code", fault.Code, "status", fault.Status, "message", fault.Message)
		c.plog.Log(log.Event{
			Timestamp: time.Now(),
			Direction: log.DirectionIn,
			Layer:     log.LayerTransport,
			Category:  log.CategoryError,
			Host:      c.host,
			Endpoint:  c.config.Endpoint,
			Action:    action,
			Error: &log.ErrorEventData{
				Layer:   log.LayerTransport,
				Message: fault.Message,
				Status:  string(fault.Status),
				Context: "fault",
			},
		})
		return fault
	}
	return fmt.Errorf("%w: %s: %v", ErrMalformedResponse, action, err)
}

func (c *Client) capture(id, action string, dir log.Direction, layer log.Layer, msg *log.MessageEvent) {
	c.plog.Log(log.Event{
		Timestamp:  time.Now(),
		ExchangeID: id,
		Direction:  dir,
		Layer:      layer,
		Category:   log.CategoryMessage,
		Host:       c.host,
		Endpoint:   c.config.Endpoint,
		Action:     action,
		Message:    msg,
	})
}

func (c *Client) logError(id, action string, layer log.Layer, err error, context string) {
	c.logger.Debug("exchange failed", "host", c.host, "action", action, "error", err)
	c.plog.Log(log.Event{
		Timestamp:  time.Now(),
		ExchangeID: id,
		Layer:      layer,
		Category:   log.CategoryError,
		Host:       c.host,
		Endpoint:   c.config.Endpoint,
		Action:     action,
		Error: &log.ErrorEventData{
			Layer:     layer,
			Message:   err.Error(),
			Transient: IsTransient(err),
			Context:   context,
		},
	})
}

var _ Caller = (*Client)(nil)
