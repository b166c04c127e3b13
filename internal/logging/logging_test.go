package logging_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/momentics/hioload-gate/internal/logging"
)

func TestLoggerWritesConsoleLines(t *testing.T) {
	var buf bytes.Buffer
	log, err := logging.New(logging.Options{Level: "info", Format: "json", Console: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Info().Str("peer", "10.0.0.1:5000").Msg("connected")
	log.Debug().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"message":"connected"`) || !strings.Contains(out, `"peer":"10.0.0.1:5000"`) {
		t.Errorf("unexpected output: %s", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug record emitted at info level")
	}
	if !strings.Contains(out, `"service":"hioload-gate"`) {
		t.Error("service field missing")
	}
}

func TestLoggerDaemonSilencesConsole(t *testing.T) {
	var buf bytes.Buffer
	log, _ := logging.New(logging.Options{Level: "debug", Daemon: true, Console: &buf})
	log.Info().Msg("background")
	if buf.Len() != 0 {
		t.Errorf("daemonized logger wrote to console: %q", buf.String())
	}
}

func TestLoggerTextFormat(t *testing.T) {
	var buf bytes.Buffer
	log, _ := logging.New(logging.Options{Level: "warn", Format: "text", Console: &buf})
	log.Warn().Msg("client buffer full")
	if !strings.Contains(buf.String(), "client buffer full") {
		t.Errorf("text output missing message: %q", buf.String())
	}
}

func TestSetLevelAppliesToExistingLoggers(t *testing.T) {
	var buf bytes.Buffer
	log, _ := logging.New(logging.Options{Level: "info", Format: "json", Console: &buf})
	log.Debug().Msg("before")
	if err := logging.SetLevel("debug"); err != nil {
		t.Fatalf("SetLevel: %v", err)
	}
	t.Cleanup(func() { logging.SetLevel("info") })
	log.Debug().Msg("after")

	out := buf.String()
	if strings.Contains(out, "before") || !strings.Contains(out, "after") {
		t.Errorf("unexpected output: %s", out)
	}
	if err := logging.SetLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
