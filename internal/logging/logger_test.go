package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestPrettyHandlerFormatsComponentAndAttrs(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	logger.Info("claimed batch",
		String(FieldComponent, "coordinator"),
		Int(FieldAttempt, 2),
		String(FieldProviderID, "rec 1"),
	)

	line := buf.String()
	if !strings.Contains(line, "INFO coordinator: claimed batch") {
		t.Fatalf("unexpected console line: %q", line)
	}
	if !strings.Contains(line, "attempt=2") {
		t.Fatalf("expected attempt attribute, got: %q", line)
	}
	if !strings.Contains(line, `provider_id="rec 1"`) {
		t.Fatalf("expected quoted provider id, got: %q", line)
	}
}

func TestPrettyHandlerHonorsLevel(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	levelVar.Set(slog.LevelWarn)
	logger := slog.New(newPrettyHandler(&buf, levelVar, false))

	logger.Info("should be dropped")
	logger.Warn("kept", Error(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "should be dropped") {
		t.Fatalf("info record leaked through warn level: %q", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Fatalf("expected error attribute, got: %q", out)
	}
}

func TestJSONHandlerUsesStandardKeys(t *testing.T) {
	var buf bytes.Buffer
	levelVar := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, levelVar, false))

	logger.Info("fan-out complete", String(FieldRecordingID, "12"))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["msg"] != "fan-out complete" {
		t.Fatalf("unexpected msg: %v", record["msg"])
	}
	if record["level"] != "info" {
		t.Fatalf("unexpected level: %v", record["level"])
	}
	if record["recording_id"] != "12" {
		t.Fatalf("unexpected recording_id: %v", record["recording_id"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}
