package monitoring

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) {
		called = true
	})
	Logf("test message")
	if !called {
		t.Error("Custom logger was not called")
	}

	// Now set to nil and verify it doesn't call our logger
	called = false
	SetLogger(nil)
	Logf("test")
	if called {
		t.Error("No-op logger should not have triggered callback")
	}
}

func TestLogf_DefaultWritesStructured(t *testing.T) {
	original := Logger()
	defer SetZerolog(*original)

	var buf bytes.Buffer
	SetOutput(&buf, zerolog.InfoLevel, false)

	defaultLogf("built %d weights", 12)

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, buf.String())
	}
	if event["message"] != "built 12 weights" {
		t.Errorf("message = %v, want %q", event["message"], "built 12 weights")
	}
	if event["level"] != "info" {
		t.Errorf("level = %v, want info", event["level"])
	}
}

func TestComponent(t *testing.T) {
	original := Logger()
	defer SetZerolog(*original)

	var buf bytes.Buffer
	SetOutput(&buf, zerolog.DebugLevel, false)

	l := Component("builder")
	l.Debug().Str("method", "linear").Msg("engine torn down")

	var event map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &event); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if event["component"] != "builder" || event["method"] != "linear" {
		t.Errorf("unexpected event fields: %v", event)
	}
}
