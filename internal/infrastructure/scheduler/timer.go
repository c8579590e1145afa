package scheduler

import (
	"context"
	"log/slog"
	"time"

	"FeedbackBot/internal/retry"
)

// Clock abstracts wall time and sleeping so loops can be driven in tests.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the real clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error { return retry.Sleep(ctx, d) }

// NextFunc computes the next fire time after now; ok=false means nothing to schedule yet.
type NextFunc func(now time.Time) (time.Time, bool)

// Job is executed at every fire.
type Job func(ctx context.Context, fireAt time.Time)

// noTargetBackoff is how long the loop waits when NextFunc yields nothing.
const noTargetBackoff = time.Hour

// Timer runs a job in a wait → fire → reschedule loop. The next target is
// recomputed from the clock on every iteration; nothing is persisted.
type Timer struct {
	name   string
	next   NextFunc
	clock  Clock
	delay  time.Duration
	logger *slog.Logger
}

// NewTimer builds a timer; startDelay is waited once before the first schedule computation.
func NewTimer(name string, next NextFunc, clock Clock, startDelay time.Duration, logger *slog.Logger) *Timer {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Timer{
		name:   name,
		next:   next,
		clock:  clock,
		delay:  startDelay,
		logger: logger.With("timer", name),
	}
}

// Run blocks until ctx is cancelled, firing job at every computed target.
func (t *Timer) Run(ctx context.Context, job Job) error {
	if job == nil || t.next == nil {
		return nil
	}

	if err := t.clock.Sleep(ctx, t.delay); err != nil {
		return nil
	}

	for {
		now := t.clock.Now()
		target, ok := t.next(now)
		if !ok {
			t.logger.Error("could not compute next fire time", "now", now)
			if err := t.clock.Sleep(ctx, noTargetBackoff); err != nil {
				return nil
			}
			continue
		}

		wait := target.Sub(now)
		t.logger.Info("waiting for next fire", "target", target, "wait", wait.Round(time.Second))
		if err := t.clock.Sleep(ctx, wait); err != nil {
			return nil
		}

		t.logger.Info("firing", "target", target)
		job(ctx, target)
	}
}
