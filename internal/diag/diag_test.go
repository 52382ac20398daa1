package diag

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestCollector(t *testing.T) {
	var c Collector
	c.Emit(Event{Level: Info, Message: "one"})
	c.Emit(Event{Level: Warn, Message: "two"})
	c.Emit(Event{Level: Warn, Message: "three"})

	if got := c.Messages(Warn); len(got) != 2 || got[0] != "two" {
		t.Errorf("expected [two three], got %v", got)
	}
	if n := len(c.Events()); n != 3 {
		t.Errorf("expected 3 events, got %d", n)
	}
	c.Reset()
	if n := len(c.Events()); n != 0 {
		t.Errorf("expected 0 events after reset, got %d", n)
	}
}

func TestMulti(t *testing.T) {
	var a, b Collector
	Multi(&a, &b, Discard).Emit(Event{Level: Error, Message: "boom"})
	if len(a.Events()) != 1 || len(b.Events()) != 1 {
		t.Errorf("expected both collectors to receive the event")
	}
}

func TestZerologSink(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerolog(zerolog.New(&buf))
	sink.Emit(Event{Level: Warn, Message: "division by zero", Context: map[string]any{"row": 3}})

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected one JSON record, got %q: %v", buf.String(), err)
	}
	if rec["level"] != "warn" {
		t.Errorf("expected level warn, got %v", rec["level"])
	}
	if rec["message"] != "division by zero" {
		t.Errorf("expected message, got %v", rec["message"])
	}
	if rec["row"] != float64(3) {
		t.Errorf("expected row field 3, got %v", rec["row"])
	}
}

func TestZerologSinkRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	sink := NewZerolog(zerolog.New(&buf).Level(zerolog.WarnLevel))
	sink.Emit(Event{Level: Info, Message: "quiet"})
	sink.Emit(Event{Level: Error, Message: "loud"})
	if strings.Contains(buf.String(), "quiet") || !strings.Contains(buf.String(), "loud") {
		t.Errorf("expected only the error record, got %q", buf.String())
	}
}

func TestLevelString(t *testing.T) {
	if Info.String() != "info" || Warn.String() != "warn" || Error.String() != "error" {
		t.Error("unexpected level names")
	}
}
