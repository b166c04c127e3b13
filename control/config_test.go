package control_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/momentics/hioload-gate/control"
)

func TestParseConfigDefaults(t *testing.T) {
	cfg, err := control.ParseConfig(map[string]string{})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.ListenPort != 8002 || cfg.BackendPort != 8002 {
		t.Errorf("ports = %d/%d, want 8002/8002", cfg.ListenPort, cfg.BackendPort)
	}
	if cfg.MaxClients != 70 || cfg.BufferSize != 16384 || cfg.ReadSize != 8192 {
		t.Errorf("capacity = %d/%d/%d", cfg.MaxClients, cfg.BufferSize, cfg.ReadSize)
	}
	if cfg.TurnTimeout != 3*time.Second || cfg.CommandDelay != 80*time.Millisecond {
		t.Errorf("timing = %s/%s", cfg.TurnTimeout, cfg.CommandDelay)
	}
	if cfg.ReconnectDelay != 5*time.Second || cfg.ReconnectMaxDelay != 5*time.Second {
		t.Errorf("reconnect = %s/%s", cfg.ReconnectDelay, cfg.ReconnectMaxDelay)
	}
	if cfg.MetricsAddr != "" || !cfg.Syslog {
		t.Errorf("metrics=%q syslog=%v", cfg.MetricsAddr, cfg.Syslog)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	cfg, err := control.ParseConfig(map[string]string{
		"GATE_LISTEN_PORT":   "9000",
		"GATE_MAX_CLIENTS":   "3",
		"GATE_COMMAND_DELAY": "0s",
		"GATE_METRICS_ADDR":  ":9100",
		"LOG_LEVEL":          "debug",
	})
	if err != nil {
		t.Fatalf("ParseConfig: %v", err)
	}
	if cfg.ListenPort != 9000 || cfg.BackendPort != 8002 {
		t.Errorf("ports = %d/%d", cfg.ListenPort, cfg.BackendPort)
	}
	if cfg.MaxClients != 3 || cfg.CommandDelay != 0 || cfg.MetricsAddr != ":9100" || cfg.LogLevel != "debug" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestParseConfigValidation(t *testing.T) {
	cases := map[string]map[string]string{
		"zero clients":       {"GATE_MAX_CLIENTS": "0"},
		"read over buffer":   {"GATE_READ_SIZE": "20000"},
		"bad level":          {"LOG_LEVEL": "verbose"},
		"backoff inverted":   {"GATE_RECONNECT_MAX_DELAY": "1s"},
		"backend port zero":  {"GATE_BACKEND_PORT": "0"},
		"not a duration":     {"GATE_TURN_TIMEOUT": "soon"},
		"non-positive turns": {"GATE_TURN_TIMEOUT": "0s"},
	}
	for name, environ := range cases {
		if _, err := control.ParseConfig(environ); err == nil {
			t.Errorf("%s: expected an error", name)
		}
	}
}

func TestPinEnvFileSurvivesDirectoryChange(t *testing.T) {
	launch := t.TempDir()
	if err := os.WriteFile(filepath.Join(launch, ".env"), []byte("GATE_MAX_CLIENTS=7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv(control.EnvFileVar, "")
	t.Setenv("GATE_MAX_CLIENTS", "")
	os.Unsetenv("GATE_MAX_CLIENTS")

	if err := os.Chdir(launch); err != nil {
		t.Fatal(err)
	}
	pinned, err := control.PinEnvFile()
	if err != nil {
		t.Fatalf("PinEnvFile: %v", err)
	}
	if !filepath.IsAbs(pinned) || control.EnvFile() != pinned {
		t.Fatalf("pinned = %q, EnvFile = %q", pinned, control.EnvFile())
	}

	// A detached child starts elsewhere with the inherited environment.
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	cfg, err := control.LoadConfig(nil)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.MaxClients != 7 {
		t.Fatalf("MaxClients = %d, want 7 from the launch directory's .env", cfg.MaxClients)
	}

	if err := os.WriteFile(pinned, []byte("GATE_MAX_CLIENTS=9\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = control.ReloadConfig(nil)
	if err != nil {
		t.Fatalf("ReloadConfig: %v", err)
	}
	if cfg.MaxClients != 9 {
		t.Fatalf("reloaded MaxClients = %d, want 9", cfg.MaxClients)
	}
}
