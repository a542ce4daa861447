package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

// resetLogger resets the logger to default state for test isolation
func resetLogger() {
	Init(Options{})
}

func TestInit_DefaultLevel_Info(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	Info("catalog refreshed")
	if !strings.Contains(buf.String(), "catalog refreshed") {
		t.Error("Info message should be logged at default level")
	}

	buf.Reset()

	Debug("selector cascade step")
	if strings.Contains(buf.String(), "selector cascade step") {
		t.Error("Debug message should not be logged at default level")
	}
}

func TestInit_DebugLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Debug: true, Output: buf})
	defer resetLogger()

	Debug("selector cascade step")
	if !strings.Contains(buf.String(), "selector cascade step") {
		t.Error("Debug message should be logged when Debug=true")
	}
}

func TestInit_QuietLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Quiet: true, Output: buf})
	defer resetLogger()

	Info("scrape finished")
	Warn("container missing")
	if buf.Len() != 0 {
		t.Error("Info/Warn messages should not be logged when Quiet=true")
	}

	Error("browser launch failed")
	if !strings.Contains(buf.String(), "browser launch failed") {
		t.Error("Error message should be logged when Quiet=true")
	}
}

func TestInit_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{JSON: true, Output: buf})
	defer resetLogger()

	Info("cache hit", "key", "games:jili")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if record["msg"] != "cache hit" {
		t.Errorf("expected msg 'cache hit', got %v", record["msg"])
	}
	if record["key"] != "games:jili" {
		t.Errorf("expected key attribute, got %v", record["key"])
	}
}

func TestWith_AttachesAttributes(t *testing.T) {
	buf := &bytes.Buffer{}
	Init(Options{Output: buf})
	defer resetLogger()

	l := With("provider", "pg-soft")
	l.Info("scrape start")

	if !strings.Contains(buf.String(), "provider=pg-soft") {
		t.Errorf("expected provider attribute in output, got %q", buf.String())
	}
}
