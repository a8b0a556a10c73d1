package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"route-auditor/pkg/types"
)

// Options configures the headless Chrome process.
type Options struct {
	ExecPath        string
	UserAgent       string
	DisableHeadless bool
	NoSandbox       bool
	LaunchTimeout   time.Duration
	WindowWidth     int
	WindowHeight    int
}

// Launcher starts chromedp-backed browser sessions.
type Launcher struct {
	opts   Options
	logger *slog.Logger
}

// NewLauncher constructs a launcher, filling in defaults for unset options.
func NewLauncher(opts Options, logger *slog.Logger) *Launcher {
	if opts.LaunchTimeout <= 0 {
		opts.LaunchTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{opts: opts, logger: logger}
}

// Session owns one browser process and one tab reused for every navigation.
type Session struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	console     *ConsoleBuffer
	logger      *slog.Logger
}

// Open launches Chrome and attaches the console listener. The browser is
// started eagerly so launch failures surface here rather than on first navigation.
func (l *Launcher) Open(ctx context.Context) (*Session, error) {
	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", !l.opts.DisableHeadless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", l.opts.NoSandbox),
	)
	if l.opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(l.opts.ExecPath))
	}
	if ua := strings.TrimSpace(l.opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}
	if l.opts.WindowWidth > 0 && l.opts.WindowHeight > 0 {
		execOpts = append(execOpts, chromedp.WindowSize(l.opts.WindowWidth, l.opts.WindowHeight))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, execOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	// A timeout context must not be handed to the first Run: chromedp would
	// tie the browser's lifetime to it.
	started := make(chan error, 1)
	go func() { started <- chromedp.Run(tabCtx) }()

	timer := time.NewTimer(l.opts.LaunchTimeout)
	defer timer.Stop()
	var err error
	select {
	case err = <-started:
	case <-timer.C:
		err = fmt.Errorf("browser did not start within %s", l.opts.LaunchTimeout)
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}

	s := &Session{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		console:     NewConsoleBuffer(),
		logger:      l.logger,
	}
	chromedp.ListenTarget(tabCtx, s.handleEvent)
	l.logger.Debug("chrome session started",
		"headless", !l.opts.DisableHeadless,
		"exec_path", l.opts.ExecPath,
	)
	return s, nil
}

func (s *Session) handleEvent(ev interface{}) {
	switch ev := ev.(type) {
	case *runtime.EventConsoleAPICalled:
		s.console.Push(types.ConsoleMessage{
			Kind: classify(ev.Type),
			Text: formatArgs(ev.Args),
		})
	case *runtime.EventExceptionThrown:
		if ev.ExceptionDetails != nil {
			s.logger.Debug("uncaught page exception", "text", ev.ExceptionDetails.Text)
		}
	}
}

// Navigate loads url and waits until DOMContentLoaded fires or, for
// fragment-only changes, the same-document navigation is reported.
func (s *Session) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	runCtx, cancel := s.scoped(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(runCtx, navigateDOMReady(url)); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	return nil
}

// RootContent returns the inner HTML of the first element matching selector,
// or an empty string when no element matches.
func (s *Session) RootContent(ctx context.Context, selector string) (string, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return "", fmt.Errorf("encode selector: %w", err)
	}
	script := fmt.Sprintf(`(() => { const el = document.querySelector(%s); return el ? el.innerHTML : ""; })()`, quoted)

	runCtx, cancel := s.scoped(ctx, 0)
	defer cancel()
	var markup string
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &markup)); err != nil {
		return "", fmt.Errorf("read %s: %w", selector, err)
	}
	return markup, nil
}

// DrainConsole returns the console messages captured since the last drain.
func (s *Session) DrainConsole() []types.ConsoleMessage {
	return s.console.Drain()
}

// Close shuts the browser down. It is safe to call more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	err := chromedp.Cancel(s.tabCtx)
	s.tabCancel()
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close chrome: %w", err)
	}
	return nil
}

// scoped derives a context from the tab that is also cancelled with parent.
func (s *Session) scoped(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(s.tabCtx, timeout)
	} else {
		ctx, cancel = context.WithCancel(s.tabCtx)
	}
	stop := context.AfterFunc(parent, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func navigateDOMReady(url string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		listenCtx, stop := context.WithCancel(ctx)
		defer stop()

		ready := make(chan struct{}, 1)
		chromedp.ListenTarget(listenCtx, func(ev interface{}) {
			switch ev.(type) {
			case *page.EventDomContentEventFired, *page.EventNavigatedWithinDocument:
				select {
				case ready <- struct{}{}:
				default:
				}
			}
		})

		_, _, errorText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return errors.New(errorText)
		}

		select {
		case <-ready:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func classify(t runtime.APIType) types.ConsoleKind {
	switch t {
	case runtime.APITypeError:
		return types.ConsoleError
	case runtime.APITypeWarning:
		return types.ConsoleWarning
	default:
		return types.ConsoleOther
	}
}

// formatArgs renders console arguments the way DevTools prints them on one line.
func formatArgs(args []*runtime.RemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == nil {
			continue
		}
		parts = append(parts, formatArg(arg))
	}
	return strings.Join(parts, " ")
}

func formatArg(arg *runtime.RemoteObject) string {
	if len(arg.Value) > 0 {
		if arg.Type == runtime.TypeString {
			var s string
			if err := json.Unmarshal(arg.Value, &s); err == nil {
				return s
			}
		}
		return string(arg.Value)
	}
	if arg.UnserializableValue != "" {
		return string(arg.UnserializableValue)
	}
	if arg.Description != "" {
		return arg.Description
	}
	return string(arg.Type)
}
