package observability_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/arborlane/evtree/observability"
)

func TestZerologObserver_EmitsEventTypeAndFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	obs := observability.NewZerologObserver(logger)
	obs.OnEvent(context.Background(), observability.Event{
		Type:      "node.process",
		Level:     observability.LevelInfo,
		Timestamp: time.Now(),
		Source:    "layer.Sequence",
		Data:      map[string]any{"node_id": "a"},
	})

	output := buf.String()
	if !contains(output, `"message":"node.process"`) {
		t.Errorf("expected event type as message, got: %s", output)
	}
	if !contains(output, `"source":"layer.Sequence"`) {
		t.Errorf("expected source field, got: %s", output)
	}
	if !contains(output, `"node_id":"a"`) {
		t.Errorf("expected data field, got: %s", output)
	}
}

func TestZerologObserver_LevelMapping(t *testing.T) {
	tests := []struct {
		name  string
		level observability.Level
		want  string
	}{
		{name: "verbose maps to debug", level: observability.LevelVerbose, want: `"level":"debug"`},
		{name: "info maps to info", level: observability.LevelInfo, want: `"level":"info"`},
		{name: "warning maps to warn", level: observability.LevelWarning, want: `"level":"warn"`},
		{name: "error maps to error", level: observability.LevelError, want: `"level":"error"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)
			obs := observability.NewZerologObserver(logger)
			obs.OnEvent(context.Background(), observability.Event{Type: "test.event", Level: tt.level})

			if !contains(buf.String(), tt.want) {
				t.Errorf("expected %q in output, got: %s", tt.want, buf.String())
			}
		})
	}
}
