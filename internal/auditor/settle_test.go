package auditor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"route-auditor/pkg/types"
)

type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// growingPage renders progressively longer content on each read.
type growingPage struct {
	lengths []int
	reads   int
}

func (p *growingPage) Navigate(context.Context, string, time.Duration) error { return nil }

func (p *growingPage) RootContent(context.Context, string) (string, error) {
	i := p.reads
	if i >= len(p.lengths) {
		i = len(p.lengths) - 1
	}
	p.reads++
	return strings.Repeat("x", p.lengths[i]), nil
}

func (p *growingPage) DrainConsole() []types.ConsoleMessage { return nil }
func (p *growingPage) Close() error                         { return nil }

func newClockedAuditor(opts Options) (*Auditor, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	a := New(nil, opts, nil, nil)
	a.now = clock.Now
	a.sleep = clock.Sleep
	return a, clock
}

func TestSettleFixedSleepsConfiguredDuration(t *testing.T) {
	a, clock := newClockedAuditor(Options{SettleDuration: 3 * time.Second})
	if err := a.settle(context.Background(), &growingPage{lengths: []int{0}}); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 3*time.Second {
		t.Fatalf("expected a single 3s sleep, got %v", clock.sleeps)
	}
}

func TestSettleStableStopsOnceLengthSettles(t *testing.T) {
	a, clock := newClockedAuditor(Options{
		SettleMode:       SettleStable,
		SettleDuration:   10 * time.Second,
		PollInterval:     100 * time.Millisecond,
		StablePolls:      2,
		MinContentLength: 50,
	})
	page := &growingPage{lengths: []int{0, 20, 400, 900, 900, 900, 900}}
	if err := a.settle(context.Background(), page); err != nil {
		t.Fatalf("settle: %v", err)
	}
	// 900 first seen on read 4, unchanged on reads 5 and 6.
	if page.reads != 6 {
		t.Fatalf("expected 6 reads, got %d", page.reads)
	}
	if elapsed := clock.now.Sub(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); elapsed != 500*time.Millisecond {
		t.Fatalf("expected 500ms of polling, got %s", elapsed)
	}
}

func TestSettleStableHonoursCeiling(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	a, clock := newClockedAuditor(Options{
		SettleMode:       SettleStable,
		SettleDuration:   1 * time.Second,
		PollInterval:     300 * time.Millisecond,
		StablePolls:      2,
		MinContentLength: 50,
	})
	// Never exceeds the threshold, so only the ceiling ends the wait.
	page := &growingPage{lengths: []int{10}}
	if err := a.settle(context.Background(), page); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if elapsed := clock.now.Sub(start); elapsed != time.Second {
		t.Fatalf("expected to stop at the 1s ceiling, got %s", elapsed)
	}
	want := []time.Duration{300 * time.Millisecond, 300 * time.Millisecond, 300 * time.Millisecond, 100 * time.Millisecond}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("expected sleeps %v, got %v", want, clock.sleeps)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Fatalf("expected sleeps %v, got %v", want, clock.sleeps)
		}
	}
}

func TestSettleStableStopsOnCancel(t *testing.T) {
	a, _ := newClockedAuditor(Options{
		SettleMode:     SettleStable,
		SettleDuration: time.Minute,
		PollInterval:   time.Second,
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := a.settle(ctx, &growingPage{lengths: []int{0, 1, 2, 3}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSleepContext(t *testing.T) {
	if err := sleepContext(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
	if err := sleepContext(context.Background(), time.Millisecond); err != nil {
		t.Fatalf("short sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepContext(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
