package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"route-auditor/internal/auditor"
	"route-auditor/internal/browser"
	"route-auditor/internal/config"
	"route-auditor/internal/fetcher"
	"route-auditor/internal/report"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfgPath := flag.String("config", "", "Path to an optional YAML audit configuration file")
	flag.Parse()

	if err := config.LoadDotEnv(""); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		return 1
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger, err := buildLogger(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	fmt.Fprintf(os.Stdout, "Starting route audit of %s...\n\n", config.BaseURL)

	if cfg.Preflight.Enabled {
		preflight(ctx, *cfg, logger)
	}

	launcher := browser.NewLauncher(browserOptions(*cfg), logger)
	aud := auditor.New(auditor.BrowserFunc(func(ctx context.Context) (auditor.Page, error) {
		session, err := launcher.Open(ctx)
		if err != nil {
			return nil, err
		}
		return session, nil
	}), auditorOptions(*cfg), os.Stdout, logger)

	summary, err := aud.Run(ctx, config.BaseURL, config.Routes())
	if err != nil {
		fmt.Fprintf(os.Stderr, "audit aborted: %v\n", err)
		return 1
	}

	if err := report.Print(os.Stdout, summary); err != nil {
		logger.Error("print report failed", "error", err)
	}
	if cfg.Report.JSONPath != "" {
		if err := report.SaveJSON(cfg.Report.JSONPath, summary); err != nil {
			logger.Error("write json report failed", "path", cfg.Report.JSONPath, "error", err)
		} else {
			logger.Info("json report written", "path", cfg.Report.JSONPath)
		}
	}

	if cfg.Report.FailOnFailure && summary.Failed() {
		return 1
	}
	return 0
}

// preflight checks the deployment answers plain HTTP before Chrome starts.
// The outcome is informational only.
func preflight(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	f := fetcher.NewHTTPFetcher(fetcher.Options{
		UserAgent:    cfg.Browser.UserAgent,
		Timeout:      cfg.Preflight.Timeout.Duration,
		MaxBodyBytes: cfg.Preflight.MaxBodyBytes,
	})
	probe, err := f.Probe(ctx, config.BaseURL)
	if err != nil {
		logger.Warn("preflight request failed", "url", config.BaseURL, "error", err)
		return
	}
	attrs := []any{
		"url", probe.URL,
		"final_url", probe.FinalURL,
		"status", probe.StatusCode,
		"content_type", probe.ContentType,
		"encoding", probe.Encoding,
		"body_bytes", probe.BodyBytes,
		"latency_ms", probe.Latency.Milliseconds(),
	}
	if !probe.OK() {
		logger.Warn("preflight returned non-2xx status", attrs...)
		return
	}
	logger.Info("preflight ok", attrs...)
}

func browserOptions(cfg config.Config) browser.Options {
	return browser.Options{
		ExecPath:        cfg.Browser.ExecPath,
		UserAgent:       cfg.Browser.UserAgent,
		DisableHeadless: cfg.Browser.DisableHeadless,
		NoSandbox:       cfg.Browser.NoSandbox,
		LaunchTimeout:   cfg.Browser.LaunchTimeout.Duration,
		WindowWidth:     cfg.Browser.WindowWidth,
		WindowHeight:    cfg.Browser.WindowHeight,
	}
}

func auditorOptions(cfg config.Config) auditor.Options {
	mode := auditor.SettleFixed
	if cfg.Audit.SettleMode == config.SettleStable {
		mode = auditor.SettleStable
	}
	return auditor.Options{
		RootSelector:      config.RootSelector,
		MinContentLength:  cfg.Audit.MinContentLength,
		SettleMode:        mode,
		SettleDuration:    cfg.Audit.SettleDuration.Duration,
		PollInterval:      cfg.Audit.PollInterval.Duration,
		StablePolls:       cfg.Audit.StablePolls,
		NavigationTimeout: cfg.Audit.NavigationTimeout.Duration,
	}
}

func buildLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, error) {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "info", "":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("unsupported log level %q", cfg.Level)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Structured {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}
