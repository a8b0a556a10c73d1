package auditor

import (
	"context"
	"time"

	"route-auditor/internal/inspect"
)

// Settle modes.
const (
	SettleFixed  = "fixed"
	SettleStable = "stable"
)

// Options tunes the per-route procedure.
type Options struct {
	RootSelector      string
	MinContentLength  int
	SettleMode        string
	SettleDuration    time.Duration
	PollInterval      time.Duration
	StablePolls       int
	NavigationTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.RootSelector == "" {
		o.RootSelector = "#app"
	}
	if o.SettleMode == "" {
		o.SettleMode = SettleFixed
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 250 * time.Millisecond
	}
	if o.StablePolls <= 0 {
		o.StablePolls = 3
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = 30 * time.Second
	}
	return o
}

func (a *Auditor) settle(ctx context.Context, page Page) error {
	if a.opts.SettleMode == SettleStable {
		return a.settleStable(ctx, page)
	}
	return a.sleep(ctx, a.opts.SettleDuration)
}

// settleStable polls the root content until its length has been unchanged
// for StablePolls consecutive polls above the content threshold. The settle
// duration is the ceiling: once it elapses the route is inspected as is.
func (a *Auditor) settleStable(ctx context.Context, page Page) error {
	deadline := a.now().Add(a.opts.SettleDuration)
	last, unchanged := -1, 0
	for {
		markup, err := page.RootContent(ctx, a.opts.RootSelector)
		if err != nil {
			return err
		}
		length := inspect.Length(markup)
		if length == last {
			unchanged++
		} else {
			last, unchanged = length, 0
		}
		if unchanged >= a.opts.StablePolls && length > a.opts.MinContentLength {
			return nil
		}

		remaining := deadline.Sub(a.now())
		if remaining <= 0 {
			return nil
		}
		wait := a.opts.PollInterval
		if wait > remaining {
			wait = remaining
		}
		if err := a.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
