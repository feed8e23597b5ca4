package log

import (
	"time"

	"github.com/google/uuid"
)

// Event is a single captured occurrence. CBOR encoding uses integer keys.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ExchangeID correlates the request and response of one call (UUID).
	ExchangeID string `cbor:"2,keyasint"`

	Direction Direction `cbor:"3,keyasint"`
	Layer     Layer     `cbor:"4,keyasint"`
	Category  Category  `cbor:"5,keyasint"`

	// Host is the device host name or address.
	Host string `cbor:"6,keyasint,omitempty"`

	// Endpoint is the full service URL.
	Endpoint string `cbor:"7,keyasint,omitempty"`

	// Action is the SOAP operation name.
	Action string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Message     *MessageEvent     `cbor:"10,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"11,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"12,keyasint,omitempty"`
}

// NewExchangeID returns a fresh exchange identifier.
func NewExchangeID() string {
	return uuid.NewString()
}

// Direction indicates message flow relative to the client.
type Direction uint8

const (
	// DirectionNone marks events that belong to no single message, such as
	// session state changes.
	DirectionNone Direction = 0
	// DirectionIn is a response from the device.
	DirectionIn Direction = 1
	// DirectionOut is a request to the device.
	DirectionOut Direction = 2
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionNone:
		return "-"
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates where the event was captured.
type Layer uint8

const (
	// LayerTransport is the HTTP exchange.
	LayerTransport Layer = 0
	// LayerEnvelope is the outgoing envelope rewrite.
	LayerEnvelope Layer = 1
	// LayerSession is the session lifecycle.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerEnvelope:
		return "ENVELOPE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// MaxEnvelopeSize is the largest envelope stored verbatim in an event.
// Larger envelopes are cut and flagged as truncated.
const MaxEnvelopeSize = 64 * 1024

// MessageEvent captures one envelope.
type MessageEvent struct {
	// Size is the full envelope size in bytes.
	Size int `cbor:"1,keyasint"`

	// Envelope holds the envelope bytes, possibly truncated.
	Envelope []byte `cbor:"2,keyasint,omitempty"`

	Truncated bool `cbor:"3,keyasint,omitempty"`

	// HTTPStatus is the response status code (responses only).
	HTTPStatus int `cbor:"4,keyasint,omitempty"`

	// Duration is the round trip time (responses only).
	Duration time.Duration `cbor:"5,keyasint,omitempty"`
}

// NewMessageEvent builds a MessageEvent, truncating large envelopes.
func NewMessageEvent(envelope []byte) *MessageEvent {
	m := &MessageEvent{Size: len(envelope)}
	if len(envelope) > MaxEnvelopeSize {
		m.Envelope = append([]byte(nil), envelope[:MaxEnvelopeSize]...)
		m.Truncated = true
	} else {
		m.Envelope = append([]byte(nil), envelope...)
	}
	return m
}

// StateChangeEvent captures session lifecycle transitions.
type StateChangeEvent struct {
	OldState string `cbor:"1,keyasint,omitempty"`
	NewState string `cbor:"2,keyasint"`

	// SessionID is the device session token, when one exists.
	SessionID string `cbor:"3,keyasint,omitempty"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// ErrorEventData captures a failure.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Status is the device status code when the device reported one.
	Status string `cbor:"3,keyasint,omitempty"`

	// Transient is set for failures the client retries.
	Transient bool `cbor:"4,keyasint,omitempty"`

	// Context describes what was being attempted.
	Context string `cbor:"5,keyasint,omitempty"`
}
