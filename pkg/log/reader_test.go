package log

import (
	"io"
	"path/filepath"
	"testing"
	"time"
)

func writeCapture(t *testing.T, events []Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.rlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()
	return path
}

func TestReaderFilters(t *testing.T) {
	base := time.Now()
	events := []Event{
		{Timestamp: base, ExchangeID: "a", Host: "p1", Action: "startSession", Direction: DirectionOut, Layer: LayerTransport},
		{Timestamp: base.Add(time.Second), ExchangeID: "a", Host: "p1", Action: "startSession", Direction: DirectionIn, Layer: LayerTransport},
		{Timestamp: base.Add(2 * time.Second), ExchangeID: "b", Host: "p2", Action: "getObjects", Direction: DirectionOut, Layer: LayerEnvelope},
		{Timestamp: base.Add(3 * time.Second), Host: "p1", Layer: LayerSession, Category: CategoryState},
	}
	path := writeCapture(t, events)

	in, out, none := DirectionIn, DirectionOut, DirectionNone
	envelope := LayerEnvelope
	state := CategoryState
	end := base.Add(2 * time.Second)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"all", Filter{}, 4},
		{"exchange", Filter{ExchangeID: "a"}, 2},
		{"host", Filter{Host: "p1"}, 3},
		{"action case-insensitive", Filter{Action: "GETOBJECTS"}, 1},
		{"direction in", Filter{Direction: &in}, 1},
		{"direction out", Filter{Direction: &out}, 2},
		{"direction unset", Filter{Direction: &none}, 1},
		{"layer", Filter{Layer: &envelope}, 1},
		{"category", Filter{Category: &state}, 1},
		{"time window", Filter{TimeStart: &base, TimeEnd: &end}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewFilteredReader(path, tt.filter)
			if err != nil {
				t.Fatalf("NewFilteredReader: %v", err)
			}
			defer r.Close()

			got, err := r.ReadAll()
			if err != nil {
				t.Fatalf("ReadAll: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("got %d events, want %d", len(got), tt.want)
			}
		})
	}
}

func TestReaderEOF(t *testing.T) {
	path := writeCapture(t, nil)
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	defer r.Close()

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("got %v, want io.EOF", err)
	}
}

func TestNewReaderMissingFile(t *testing.T) {
	if _, err := NewReader(filepath.Join(t.TempDir(), "missing.rlog")); err == nil {
		t.Error("expected error for missing file")
	}
}
