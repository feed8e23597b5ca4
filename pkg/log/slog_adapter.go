package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes capture events to an slog.Logger at Debug level.
type SlogAdapter struct {
	logger *slog.Logger

	// IncludeEnvelope adds the envelope text to message events.
	IncludeEnvelope bool
}

// NewSlogAdapter creates a SlogAdapter for logger.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

// Log writes the event.
func (a *SlogAdapter) Log(event Event) {
	attrs := []slog.Attr{
		slog.String("exchange", event.ExchangeID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
		slog.String("category", event.Category.String()),
	}
	if event.Host != "" {
		attrs = append(attrs, slog.String("host", event.Host))
	}
	if event.Action != "" {
		attrs = append(attrs, slog.String("action", event.Action))
	}

	switch {
	case event.Message != nil:
		attrs = append(attrs,
			slog.Int("size", event.Message.Size),
			slog.Bool("truncated", event.Message.Truncated),
		)
		if event.Message.HTTPStatus != 0 {
			attrs = append(attrs, slog.Int("http_status", event.Message.HTTPStatus))
		}
		if event.Message.Duration > 0 {
			attrs = append(attrs, slog.Duration("duration", event.Message.Duration))
		}
		if a.IncludeEnvelope {
			attrs = append(attrs, slog.String("envelope", string(event.Message.Envelope)))
		}
	case event.StateChange != nil:
		attrs = append(attrs,
			slog.String("old_state", event.StateChange.OldState),
			slog.String("new_state", event.StateChange.NewState),
		)
		if event.StateChange.Reason != "" {
			attrs = append(attrs, slog.String("reason", event.StateChange.Reason))
		}
	case event.Error != nil:
		attrs = append(attrs,
			slog.String("error_layer", event.Error.Layer.String()),
			slog.String("error_msg", event.Error.Message),
			slog.Bool("transient", event.Error.Transient),
		)
		if event.Error.Status != "" {
			attrs = append(attrs, slog.String("status", event.Error.Status))
		}
		if event.Error.Context != "" {
			attrs = append(attrs, slog.String("error_context", event.Error.Context))
		}
	}

	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "capture", attrs...)
}

var _ Logger = (*SlogAdapter)(nil)
