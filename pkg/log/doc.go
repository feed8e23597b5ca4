// Package log captures the SOAP exchanges between the client and a device.
//
// Capture is separate from operational logging (slog). Operational logs say
// what the client decided; capture events record what went over the wire,
// so a failed session can be replayed and inspected later.
//
// # Basic Usage
//
//	// During development: print exchanges via slog
//	cfg.ProtocolLogger = log.NewSlogAdapter(slog.Default())
//
//	// In the field: write a capture file
//	cfg.ProtocolLogger, _ = log.NewFileLogger("/var/log/ricoh/printer1.rlog")
//
//	// Both
//	cfg.ProtocolLogger = log.NewMultiLogger(slogAdapter, fileLogger)
//
// # Event Types
//
// Events are captured at three layers:
//   - Transport: the HTTP exchange with the raw envelope (MessageEvent)
//   - Envelope: rewrites applied to outgoing envelopes (MessageEvent)
//   - Session: session lifecycle transitions (StateChangeEvent)
//
// Failures at any layer are recorded as ErrorEventData.
//
// # File Format
//
// Capture files are a stream of CBOR-encoded events with integer keys. The
// "ricohctl log" command reads, filters and prints them.
package log
