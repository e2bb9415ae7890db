package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestModuleLevelOverride(t *testing.T) {
	loggers, err := New(Config{
		Level:  "info",
		Format: "text",
		Modules: map[string]string{
			"frame":    "debug",
			"subtitle": "warning",
		},
	}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	tests := []struct {
		module    string
		wantDebug bool
		wantInfo  bool
		wantWarn  bool
	}{
		{"frame", true, true, true},
		{"subtitle", false, false, true},
		{"stream", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.module, func(t *testing.T) {
			handler := loggers.GetLogger(tt.module).Handler()
			ctx := context.Background()

			if got := handler.Enabled(ctx, slog.LevelDebug); got != tt.wantDebug {
				t.Errorf("Debug enabled = %v, want %v", got, tt.wantDebug)
			}
			if got := handler.Enabled(ctx, slog.LevelInfo); got != tt.wantInfo {
				t.Errorf("Info enabled = %v, want %v", got, tt.wantInfo)
			}
			if got := handler.Enabled(ctx, slog.LevelWarn); got != tt.wantWarn {
				t.Errorf("Warn enabled = %v, want %v", got, tt.wantWarn)
			}
		})
	}
}

func TestJSONOutputCarriesModule(t *testing.T) {
	var buf bytes.Buffer
	loggers, err := New(Config{Level: "debug", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	loggers.GetLogger("stream").Info("declared", "stream_index", 0)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not json: %v (%s)", err, buf.String())
	}
	if entry["module"] != "stream" || entry["msg"] != "declared" {
		t.Fatalf("unexpected entry: %v", entry)
	}
}

func TestGetLoggerIsCached(t *testing.T) {
	loggers := Discard()
	if loggers.GetLogger("worker") != loggers.GetLogger("worker") {
		t.Fatalf("expected the same logger instance for a module")
	}
}

func TestSetLevelAdjustsExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	loggers, err := New(Config{Level: "info"}, &buf)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	logger := loggers.GetLogger("frame")

	logger.Debug("hidden")
	if err := loggers.SetLevel("frame", "debug"); err != nil {
		t.Fatalf("SetLevel() error: %v", err)
	}
	logger.Debug("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, "visible") {
		t.Fatalf("unexpected output: %s", out)
	}

	if err := loggers.SetLevel("", "loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestValidateRejectsUnknownValues(t *testing.T) {
	if _, err := New(Config{Level: "verbose"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown level")
	}
	if _, err := New(Config{Level: "info", Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := New(Config{Level: "info", Modules: map[string]string{"frame": "nope"}}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for unknown module level")
	}
}
