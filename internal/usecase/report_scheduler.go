package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/infrastructure/scheduler"
	"FeedbackBot/internal/ports"
)

// summaryExtraDelay staggers the summary loop start after the daily loop.
const summaryExtraDelay = 5 * time.Second

// SchedulerDeps wires the two report loops.
type SchedulerDeps struct {
	Reports    *Reports
	Recipients []int64
	Config     config.ReportsConfig
	Clock      scheduler.Clock
	Metrics    ports.Metrics
	Logger     *slog.Logger
}

// ReportScheduler owns the daily and summary loops. They share only read-only
// collaborators and run independently.
type ReportScheduler struct {
	reports    *Reports
	recipients []int64
	cfg        config.ReportsConfig
	clock      scheduler.Clock
	metrics    ports.Metrics
	logger     *slog.Logger
}

// NewReportScheduler constructs the scheduler use case.
func NewReportScheduler(deps SchedulerDeps) *ReportScheduler {
	s := &ReportScheduler{
		reports:    deps.Reports,
		recipients: deps.Recipients,
		cfg:        deps.Config,
		clock:      deps.Clock,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
	}
	if s.clock == nil {
		s.clock = scheduler.SystemClock{}
	}
	if s.metrics == nil {
		s.metrics = ports.NopMetrics{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run blocks until ctx is cancelled. The daily loop is not started when no
// daily time is configured.
func (s *ReportScheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	if daily, ok := s.dailyNext(); ok {
		timer := scheduler.NewTimer("daily", daily, s.clock, s.cfg.StartupDelay, s.logger)
		g.Go(func() error {
			return timer.Run(ctx, func(ctx context.Context, _ time.Time) {
				s.RunDailyCycle(ctx)
			})
		})
	} else {
		s.logger.Warn("daily report time is not set, daily loop disabled")
	}

	timer := scheduler.NewTimer("summary", s.NextSummary, s.clock, s.cfg.StartupDelay+summaryExtraDelay, s.logger)
	g.Go(func() error {
		return timer.Run(ctx, func(ctx context.Context, _ time.Time) {
			s.RunSummaryCycle(ctx)
		})
	})

	return g.Wait()
}

// NextDaily returns the next daily fire time after now; ok is false when disabled.
func (s *ReportScheduler) NextDaily(now time.Time) (time.Time, bool) {
	next, ok := s.dailyNext()
	if !ok {
		return time.Time{}, false
	}
	return next(now)
}

// NextSummary returns the next summary fire time after now.
func (s *ReportScheduler) NextSummary(now time.Time) (time.Time, bool) {
	return scheduler.NextSummary(now, s.cfg.Location(), s.cfg.SummaryHour, s.cfg.SummaryMinute)
}

func (s *ReportScheduler) dailyNext() (scheduler.NextFunc, bool) {
	clock, ok, err := s.cfg.DailyClock()
	if err != nil {
		s.logger.Error("invalid daily report time", "value", s.cfg.DailyTime, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	return func(now time.Time) (time.Time, bool) {
		return scheduler.NextDaily(now, clock.Hour, clock.Minute), true
	}, true
}

// RunDailyCycle compiles once and fans the report out to every recipient.
func (s *ReportScheduler) RunDailyCycle(ctx context.Context) []DeliveryAttempt {
	logger := s.logger.With("loop", "daily")
	logger.Info("sending daily report", "recipients", len(s.recipients))

	bundle, err := s.reports.compiler.Compile(ctx)
	if err != nil {
		logger.Warn("daily compile aborted", "error", err)
		return nil
	}

	charts, err := s.reports.renderer.Charts(bundle)
	if err != nil {
		logger.Warn("charts unavailable", "error", err)
	}

	policy := DeliveryPolicy{
		Attempts:   s.cfg.DeliveryAttempts,
		RetryDelay: s.cfg.DailyRetryDelay,
		Pacing:     s.cfg.DailyPacing,
	}
	return FanOut(ctx, "daily", s.recipients, policy, s.clock.Sleep, s.metrics, logger, func(ctx context.Context, chatID int64) error {
		return s.reports.SendDaily(ctx, chatID, bundle, charts)
	})
}

// RunSummaryCycle delivers the PDF summary to every recipient; each delivery
// compiles its own bundle so personal chats can follow the progress.
func (s *ReportScheduler) RunSummaryCycle(ctx context.Context) []DeliveryAttempt {
	logger := s.logger.With("loop", "summary")
	logger.Info("sending scheduled PDF summary", "recipients", len(s.recipients))

	policy := DeliveryPolicy{
		Attempts:   s.cfg.DeliveryAttempts,
		RetryDelay: s.cfg.SummaryRetryDelay,
		Pacing:     s.cfg.SummaryPacing,
	}
	attempts := max(policy.Attempts, 1)
	deliveries := map[int64]*summaryDelivery{}
	tries := map[int64]int{}
	return FanOut(ctx, "summary", s.recipients, policy, s.clock.Sleep, s.metrics, logger, func(ctx context.Context, chatID int64) error {
		d, ok := deliveries[chatID]
		if !ok {
			d = &summaryDelivery{chatID: chatID}
			deliveries[chatID] = d
		}
		tries[chatID]++
		d.final = tries[chatID] >= attempts
		err := s.reports.sendSummary(ctx, d)
		if err == nil || d.final || errors.Is(err, ports.ErrRecipientRejected) {
			delete(deliveries, chatID)
			delete(tries, chatID)
		}
		return err
	})
}
