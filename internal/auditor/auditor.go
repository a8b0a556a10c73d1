// Package auditor visits each route of a single-page application in one
// browser tab and scores it on rendered content and console errors.
package auditor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"route-auditor/internal/inspect"
	"route-auditor/pkg/types"
)

var (
	// ErrLaunch wraps any failure to start the browser. It is the only error
	// that aborts a run.
	ErrLaunch = errors.New("browser launch failed")
	// ErrInvalidBaseURL is returned when the base URL is not absolute http(s).
	ErrInvalidBaseURL = errors.New("invalid base url")
)

// Page is the single browser tab a run drives.
type Page interface {
	Navigate(ctx context.Context, url string, timeout time.Duration) error
	RootContent(ctx context.Context, selector string) (string, error)
	DrainConsole() []types.ConsoleMessage
	Close() error
}

// Browser opens the page used for a run.
type Browser interface {
	Open(ctx context.Context) (Page, error)
}

// BrowserFunc adapts a function to Browser.
type BrowserFunc func(ctx context.Context) (Page, error)

// Open calls f.
func (f BrowserFunc) Open(ctx context.Context) (Page, error) {
	return f(ctx)
}

// Auditor runs the per-route procedure sequentially over one page.
type Auditor struct {
	browser Browser
	opts    Options
	out     io.Writer
	logger  *slog.Logger

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
	newID func() string
}

// New constructs an Auditor. Progress lines are written to out.
func New(browser Browser, opts Options, out io.Writer, logger *slog.Logger) *Auditor {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Auditor{
		browser: browser,
		opts:    opts.withDefaults(),
		out:     out,
		logger:  logger,
		now:     time.Now,
		sleep:   sleepContext,
		newID:   uuid.NewString,
	}
}

// Run visits every route in order and returns the aggregated summary. Route
// failures are recorded in the summary; only an invalid base URL or a browser
// launch failure produce an error.
func (a *Auditor) Run(ctx context.Context, baseURL string, routes []string) (types.SessionSummary, error) {
	if err := validateBaseURL(baseURL); err != nil {
		return types.SessionSummary{}, err
	}

	runID := a.newID()
	started := a.now()
	logger := a.logger.With("run_id", runID, "base_url", baseURL)

	page, err := a.browser.Open(ctx)
	if err != nil {
		return types.SessionSummary{}, fmt.Errorf("%w: %w", ErrLaunch, err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			logger.Warn("browser close failed", "error", cerr)
		}
	}()

	logger.Info("audit started", "routes", len(routes), "settle_mode", a.opts.SettleMode)

	results := make([]types.RouteResult, 0, len(routes))
	for i, route := range routes {
		results = append(results, a.visit(ctx, page, logger, i+1, len(routes), baseURL, route))
	}

	summary := Summarize(runID, started, baseURL, results)
	logger.Info("audit finished",
		"passed", summary.Passed,
		"total", summary.TotalRoutes,
		"total_errors", summary.TotalErrors,
		"elapsed", a.now().Sub(started).String(),
	)
	return summary, nil
}

func (a *Auditor) visit(ctx context.Context, page Page, logger *slog.Logger, index, total int, baseURL, route string) types.RouteResult {
	page.DrainConsole()

	target := baseURL + route
	result := types.RouteResult{
		Route:    route,
		URL:      target,
		Errors:   []string{},
		Warnings: []string{},
	}
	fmt.Fprintf(a.out, "[%d/%d] Testing %s...\n", index, total, route)

	start := a.now()
	if err := a.inspectRoute(ctx, page, logger, &result); err != nil {
		result.HasContent = false
		result.ContentLength = 0
		result.TextLength = 0
		result.ElementCount = 0
		result.Errors = []string{err.Error()}
		result.Warnings = []string{}
		result.Success = false
		page.DrainConsole()
		logger.Warn("route visit failed", "route", route, "error", err)
		fmt.Fprintf(a.out, "  FAIL | Exception: %s\n", truncate(err.Error(), 60))
	} else {
		result.Success = result.HasContent && len(result.Errors) == 0
		fmt.Fprintf(a.out, "  %s | Content: %d chars | Errors: %d\n", status(result.Success), result.ContentLength, len(result.Errors))
	}
	result.Duration = a.now().Sub(start)

	logger.Debug("route audited",
		"route", route,
		"success", result.Success,
		"content_length", result.ContentLength,
		"text_length", result.TextLength,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result
}

func (a *Auditor) inspectRoute(ctx context.Context, page Page, logger *slog.Logger, result *types.RouteResult) error {
	if err := page.Navigate(ctx, result.URL, a.opts.NavigationTimeout); err != nil {
		return err
	}
	if err := a.settle(ctx, page); err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	markup, err := page.RootContent(ctx, a.opts.RootSelector)
	if err != nil {
		return err
	}

	result.ContentLength = inspect.Length(markup)
	result.HasContent = result.ContentLength > a.opts.MinContentLength
	if stats, err := inspect.Analyze(markup); err != nil {
		logger.Debug("root markup analysis failed", "route", result.Route, "error", err)
	} else {
		result.TextLength = stats.TextLength
		result.ElementCount = stats.ElementCount
	}

	for _, msg := range page.DrainConsole() {
		switch msg.Kind {
		case types.ConsoleError:
			result.Errors = append(result.Errors, msg.Text)
		case types.ConsoleWarning:
			result.Warnings = append(result.Warnings, msg.Text)
		}
	}
	return nil
}

// Summarize aggregates route results. errors_by_route only carries routes
// with at least one error.
func Summarize(runID string, at time.Time, baseURL string, results []types.RouteResult) types.SessionSummary {
	summary := types.SessionSummary{
		RunID:         runID,
		Timestamp:     at.Format(time.RFC3339Nano),
		BaseURL:       baseURL,
		Routes:        results,
		TotalRoutes:   len(results),
		ErrorsByRoute: make(map[string][]string),
	}
	if summary.Routes == nil {
		summary.Routes = []types.RouteResult{}
	}
	for _, r := range results {
		if r.HasContent {
			summary.RoutesWithContent++
		}
		if r.Success {
			summary.Passed++
		}
		if len(r.Errors) > 0 {
			summary.RoutesWithErrors++
			summary.TotalErrors += len(r.Errors)
			summary.ErrorsByRoute[r.Route] = r.Errors
		}
	}
	return summary
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: %q must be an absolute http(s) url", ErrInvalidBaseURL, raw)
	}
	return nil
}

func status(ok bool) string {
	if ok {
		return "PASS"
	}
	return "FAIL"
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
