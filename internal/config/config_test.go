package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Audit.MinContentLength != 50 {
		t.Fatalf("expected min content length 50, got %d", cfg.Audit.MinContentLength)
	}
	if cfg.Audit.SettleDuration.Duration != 3*time.Second {
		t.Fatalf("expected settle 3s, got %s", cfg.Audit.SettleDuration)
	}
}

func TestLoadFromReader(t *testing.T) {
	raw := `
audit:
  min_content_length: 120
  settle_mode: Stable
  settle_duration: 5s
  poll_interval: 0.5
  stable_polls: 2
logging:
  level: DEBUG
  structured: true
`
	cfg, err := LoadFromReader(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Audit.MinContentLength != 120 {
		t.Errorf("min content length: got %d", cfg.Audit.MinContentLength)
	}
	if cfg.Audit.SettleMode != SettleStable {
		t.Errorf("settle mode: got %q", cfg.Audit.SettleMode)
	}
	if cfg.Audit.SettleDuration.Duration != 5*time.Second {
		t.Errorf("settle duration: got %s", cfg.Audit.SettleDuration)
	}
	if cfg.Audit.PollInterval.Duration != 500*time.Millisecond {
		t.Errorf("poll interval: got %s", cfg.Audit.PollInterval)
	}
	if cfg.Audit.NavigationTimeout.Duration != 30*time.Second {
		t.Errorf("navigation timeout should keep default, got %s", cfg.Audit.NavigationTimeout)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Structured {
		t.Errorf("logging: got %+v", cfg.Logging)
	}
}

func TestLoadFromReaderEmpty(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if cfg.Audit.SettleMode != SettleFixed {
		t.Fatalf("expected fixed settle mode, got %q", cfg.Audit.SettleMode)
	}
}

func TestLoadFromReaderRejectsInvalid(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"unknown field", "audit:\n  routes: [\"#/\"]\n"},
		{"negative threshold", "audit:\n  min_content_length: -1\n"},
		{"bad settle mode", "audit:\n  settle_mode: eventually\n"},
		{"bad duration", "audit:\n  settle_duration: soon\n"},
		{"zero navigation timeout", "audit:\n  navigation_timeout: 0s\n"},
		{"stable without polls", "audit:\n  settle_mode: stable\n  stable_polls: 0\n"},
		{"bad log level", "logging:\n  level: loud\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadFromReader(strings.NewReader(tc.raw)); err == nil {
				t.Fatalf("expected error for %q", tc.raw)
			}
		})
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "audit.yaml")
	if err := os.WriteFile(path, []byte("report:\n  fail_on_failure: false\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("ROUTE_AUDIT_FAIL_ON_FAILURE", "true")
	t.Setenv("ROUTE_AUDIT_CHROME_PATH", " /usr/bin/chromium ")
	t.Setenv("ROUTE_AUDIT_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Report.FailOnFailure {
		t.Error("expected env to enable fail_on_failure")
	}
	if cfg.Browser.ExecPath != "/usr/bin/chromium" {
		t.Errorf("exec path: got %q", cfg.Browser.ExecPath)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("log level: got %q", cfg.Logging.Level)
	}
}

func TestLoadRejectsBadEnvBool(t *testing.T) {
	t.Setenv("ROUTE_AUDIT_HEADFUL", "maybe")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for non-boolean ROUTE_AUDIT_HEADFUL")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing env file should be ignored: %v", err)
	}

	path := filepath.Join(dir, "audit.env")
	if err := os.WriteFile(path, []byte("ROUTE_AUDIT_JSON_PATH=out/summary.json\n"), 0o644); err != nil {
		t.Fatalf("write env: %v", err)
	}
	t.Setenv("ROUTE_AUDIT_JSON_PATH", "")
	os.Unsetenv("ROUTE_AUDIT_JSON_PATH")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("ROUTE_AUDIT_JSON_PATH"); got != "out/summary.json" {
		t.Fatalf("expected env from file, got %q", got)
	}
}

func TestRoutesReturnsCopy(t *testing.T) {
	first := Routes()
	if len(first) != 14 || first[0] != "#/" || first[len(first)-1] != "#/homework" {
		t.Fatalf("unexpected routes: %v", first)
	}
	first[0] = "mutated"
	if Routes()[0] != "#/" {
		t.Fatal("Routes must not expose the backing slice")
	}
}
