package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Settle modes.
const (
	SettleFixed  = "fixed"
	SettleStable = "stable"
)

// Config captures everything tunable about an audit run.
type Config struct {
	Audit     AuditConfig     `yaml:"audit"`
	Browser   BrowserConfig   `yaml:"browser"`
	Preflight PreflightConfig `yaml:"preflight"`
	Report    ReportConfig    `yaml:"report"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AuditConfig controls the per-route procedure.
type AuditConfig struct {
	// MinContentLength is the exclusive lower bound on root content length
	// for a route to count as rendered.
	MinContentLength  int      `yaml:"min_content_length"`
	SettleMode        string   `yaml:"settle_mode"`
	SettleDuration    Duration `yaml:"settle_duration"`
	PollInterval      Duration `yaml:"poll_interval"`
	StablePolls       int      `yaml:"stable_polls"`
	NavigationTimeout Duration `yaml:"navigation_timeout"`
}

// BrowserConfig controls the headless Chrome process.
type BrowserConfig struct {
	ExecPath        string   `yaml:"exec_path"`
	UserAgent       string   `yaml:"user_agent"`
	DisableHeadless bool     `yaml:"disable_headless"`
	NoSandbox       bool     `yaml:"no_sandbox"`
	LaunchTimeout   Duration `yaml:"launch_timeout"`
	WindowWidth     int      `yaml:"window_width"`
	WindowHeight    int      `yaml:"window_height"`
}

// PreflightConfig controls the plain HTTP probe issued before the browser starts.
type PreflightConfig struct {
	Enabled      bool     `yaml:"enabled"`
	Timeout      Duration `yaml:"timeout"`
	MaxBodyBytes int64    `yaml:"max_body_bytes"`
}

// ReportConfig controls output beyond the console report.
type ReportConfig struct {
	JSONPath      string `yaml:"json_path"`
	FailOnFailure bool   `yaml:"fail_on_failure"`
}

// LoggingConfig selects log verbosity and format.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Structured bool   `yaml:"structured"`
}

// Default returns a Config populated with the values the audit was calibrated against.
func Default() Config {
	return Config{
		Audit: AuditConfig{
			MinContentLength:  50,
			SettleMode:        SettleFixed,
			SettleDuration:    DurationFrom(3 * time.Second),
			PollInterval:      DurationFrom(250 * time.Millisecond),
			StablePolls:       3,
			NavigationTimeout: DurationFrom(30 * time.Second),
		},
		Browser: BrowserConfig{
			NoSandbox:     true,
			LaunchTimeout: DurationFrom(30 * time.Second),
			WindowWidth:   1280,
			WindowHeight:  720,
		},
		Preflight: PreflightConfig{
			Enabled:      true,
			Timeout:      DurationFrom(10 * time.Second),
			MaxBodyBytes: 2 * 1024 * 1024,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Structured: false,
		},
	}
}

// Load reads configuration from a YAML file layered over Default. An empty
// path yields the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		fh, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config: %w", err)
		}
		defer fh.Close()
		if err := decodeYAML(fh, &cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromReader decodes configuration from an arbitrary reader. The
// environment is not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decodeYAML(r, &cfg); err != nil {
		return nil, err
	}
	cfg.normalise()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func decodeYAML(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

// LoadDotEnv loads a .env file into the process environment when one exists.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat env file: %w", err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	if v, ok := lookupEnv("ROUTE_AUDIT_LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv("ROUTE_AUDIT_CHROME_PATH"); ok {
		c.Browser.ExecPath = v
	}
	if v, ok := lookupEnv("ROUTE_AUDIT_JSON_PATH"); ok {
		c.Report.JSONPath = v
	}
	if v, ok := lookupEnv("ROUTE_AUDIT_HEADFUL"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ROUTE_AUDIT_HEADFUL: %w", err)
		}
		c.Browser.DisableHeadless = b
	}
	if v, ok := lookupEnv("ROUTE_AUDIT_FAIL_ON_FAILURE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ROUTE_AUDIT_FAIL_ON_FAILURE: %w", err)
		}
		c.Report.FailOnFailure = b
	}
	return nil
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// Validate enforces invariants the auditor relies on.
func (c Config) Validate() error {
	if c.Audit.MinContentLength < 0 {
		return fmt.Errorf("audit.min_content_length must be >= 0 (got %d)", c.Audit.MinContentLength)
	}
	switch c.Audit.SettleMode {
	case SettleFixed, SettleStable:
	default:
		return fmt.Errorf("unsupported audit.settle_mode %q", c.Audit.SettleMode)
	}
	if c.Audit.SettleDuration.Duration < 0 {
		return fmt.Errorf("audit.settle_duration must be >= 0 (got %s)", c.Audit.SettleDuration)
	}
	if c.Audit.SettleMode == SettleStable {
		if c.Audit.PollInterval.Duration <= 0 {
			return fmt.Errorf("audit.poll_interval must be > 0 (got %s)", c.Audit.PollInterval)
		}
		if c.Audit.StablePolls <= 0 {
			return fmt.Errorf("audit.stable_polls must be > 0 (got %d)", c.Audit.StablePolls)
		}
	}
	if c.Audit.NavigationTimeout.Duration <= 0 {
		return fmt.Errorf("audit.navigation_timeout must be > 0 (got %s)", c.Audit.NavigationTimeout)
	}
	if c.Browser.LaunchTimeout.Duration <= 0 {
		return fmt.Errorf("browser.launch_timeout must be > 0 (got %s)", c.Browser.LaunchTimeout)
	}
	if c.Browser.WindowWidth < 0 || c.Browser.WindowHeight < 0 {
		return errors.New("browser window size must not be negative")
	}
	if c.Preflight.Enabled && c.Preflight.MaxBodyBytes <= 0 {
		return fmt.Errorf("preflight.max_body_bytes must be > 0 (got %d)", c.Preflight.MaxBodyBytes)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unsupported logging.level %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) normalise() {
	c.Audit.SettleMode = strings.ToLower(strings.TrimSpace(c.Audit.SettleMode))
	if c.Audit.SettleMode == "" {
		c.Audit.SettleMode = SettleFixed
	}
	c.Browser.ExecPath = strings.TrimSpace(c.Browser.ExecPath)
	c.Browser.UserAgent = strings.TrimSpace(c.Browser.UserAgent)
	c.Report.JSONPath = strings.TrimSpace(c.Report.JSONPath)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}
