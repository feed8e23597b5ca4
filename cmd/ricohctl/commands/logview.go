package commands

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/gheeres/ricoh-go/pkg/log"
)

// LogOptions selects events from a capture file.
type LogOptions struct {
	ExchangeID string
	Host       string
	Action     string
	Layer      string
	Direction  string
	Category   string

	// TimeStart and TimeEnd are RFC 3339 times.
	TimeStart string
	TimeEnd   string

	// Envelopes prints the captured envelopes.
	Envelopes bool
}

// Filter converts the options to a log filter.
func (o LogOptions) Filter() (log.Filter, error) {
	filter := log.Filter{
		ExchangeID: o.ExchangeID,
		Host:       o.Host,
		Action:     o.Action,
	}
	if o.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, o.TimeStart)
		if err != nil {
			return filter, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}
	if o.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, o.TimeEnd)
		if err != nil {
			return filter, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}
	if o.Layer != "" {
		l, err := parseLayer(o.Layer)
		if err != nil {
			return filter, err
		}
		filter.Layer = &l
	}
	if o.Direction != "" {
		d, err := parseDirection(o.Direction)
		if err != nil {
			return filter, err
		}
		filter.Direction = &d
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return filter, err
		}
		filter.Category = &c
	}
	return filter, nil
}

// RunLogView prints the matching events of a capture file.
func RunLogView(path string, opts LogOptions, w io.Writer) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		formatEvent(w, event, opts.Envelopes)
	}
}

func formatEvent(w io.Writer, event log.Event, envelopes bool) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	fmt.Fprintf(w, "%s [%s] %-3s %s %s %s\n", ts, shortenID(event.ExchangeID),
		event.Direction, event.Layer, event.Category, event.Action)

	switch {
	case event.Message != nil:
		m := event.Message
		fmt.Fprintf(w, "  Size: %d bytes\n", m.Size)
		if m.HTTPStatus != 0 {
			fmt.Fprintf(w, "  Status: %d\n", m.HTTPStatus)
		}
		if m.Duration > 0 {
			fmt.Fprintf(w, "  Duration: %s\n", formatDuration(m.Duration))
		}
		if envelopes && len(m.Envelope) > 0 {
			fmt.Fprintf(w, "  Envelope: %s", m.Envelope)
			if m.Truncated {
				fmt.Fprint(w, " (truncated)")
			}
			fmt.Fprintln(w)
		}
	case event.StateChange != nil:
		sc := event.StateChange
		if sc.OldState != "" {
			fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
		} else {
			fmt.Fprintf(w, "  -> %s\n", sc.NewState)
		}
		if sc.SessionID != "" {
			fmt.Fprintf(w, "  Session: %s\n", sc.SessionID)
		}
		if sc.Reason != "" {
			fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
		}
	case event.Error != nil:
		e := event.Error
		fmt.Fprintf(w, "  Layer: %s\n", e.Layer)
		fmt.Fprintf(w, "  Message: %s\n", e.Message)
		if e.Status != "" {
			fmt.Fprintf(w, "  Status: %s\n", e.Status)
		}
		if e.Transient {
			fmt.Fprintln(w, "  Transient: yes")
		}
		if e.Context != "" {
			fmt.Fprintf(w, "  Context: %s\n", e.Context)
		}
	}
	fmt.Fprintln(w)
}

// shortenID returns the first 8 characters of an exchange ID.
func shortenID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

// LogStats aggregates a capture file.
type LogStats struct {
	TotalEvents int
	Errors      int
	Start, End  time.Time
	Actions     map[string]*ActionStats
}

// ActionStats aggregates the exchanges of one action.
type ActionStats struct {
	Requests int
	Errors   int
	Bytes    int
	Total    time.Duration
	Slowest  time.Duration
}

// RunLogStats prints per-action statistics of a capture file.
func RunLogStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &LogStats{Actions: make(map[string]*ActionStats)}
	for {
		event, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		stats.add(event)
	}
	printLogStats(w, stats)
	return nil
}

func (s *LogStats) add(event log.Event) {
	s.TotalEvents++
	if s.Start.IsZero() || event.Timestamp.Before(s.Start) {
		s.Start = event.Timestamp
	}
	if event.Timestamp.After(s.End) {
		s.End = event.Timestamp
	}
	if event.Action == "" {
		if event.Error != nil {
			s.Errors++
		}
		return
	}

	a, ok := s.Actions[event.Action]
	if !ok {
		a = &ActionStats{}
		s.Actions[event.Action] = a
	}
	switch {
	case event.Error != nil:
		s.Errors++
		a.Errors++
	case event.Message != nil && event.Layer == log.LayerTransport:
		a.Bytes += event.Message.Size
		if event.Direction == log.DirectionOut {
			a.Requests++
		} else {
			a.Total += event.Message.Duration
			a.Slowest = max(a.Slowest, event.Message.Duration)
		}
	}
}

func printLogStats(w io.Writer, s *LogStats) {
	fmt.Fprintf(w, "Events: %d  Errors: %d\n", s.TotalEvents, s.Errors)
	if s.TotalEvents == 0 {
		return
	}
	fmt.Fprintf(w, "Time Range: %s to %s\n", s.Start.Format(time.RFC3339), s.End.Format(time.RFC3339))

	rows := make([][]string, 0, len(s.Actions))
	for _, name := range slices.Sorted(maps.Keys(s.Actions)) {
		a := s.Actions[name]
		avg := time.Duration(0)
		if a.Requests > 0 {
			avg = a.Total / time.Duration(a.Requests)
		}
		rows = append(rows, []string{
			name, itoa(a.Requests), itoa(a.Errors), itoa(a.Bytes),
			formatDuration(avg), formatDuration(a.Slowest),
		})
	}
	if len(rows) > 0 {
		renderTable(w, []string{"Action", "Requests", "Errors", "Bytes", "Avg", "Slowest"}, rows, 1, 2, 3, 4, 5)
	}
}

func parseLayer(s string) (log.Layer, error) {
	switch strings.ToLower(s) {
	case "transport":
		return log.LayerTransport, nil
	case "envelope":
		return log.LayerEnvelope, nil
	case "session":
		return log.LayerSession, nil
	default:
		return 0, fmt.Errorf("invalid layer: %s (must be transport, envelope, or session)", s)
	}
}

func parseDirection(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in or out)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "message":
		return log.CategoryMessage, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be message, state, or error)", s)
	}
}
