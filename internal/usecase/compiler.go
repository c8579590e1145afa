package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
	"FeedbackBot/internal/retry"
)

// Stage names a step of an interactive compile reported through ProgressFunc.
type Stage string

const (
	StageFetching  Stage = "fetching"
	StageAnalyzing Stage = "analyzing"
	StageRendering Stage = "rendering"
)

// ProgressFunc observes compile stages; errors are ignored by the compiler.
type ProgressFunc func(ctx context.Context, stage Stage)

// CompilerDeps wires the driven adapters used by a compile cycle.
type CompilerDeps struct {
	Source   ports.ReviewSource
	Reports  ports.StaffReportStore
	Advisor  ports.Advisor
	Metrics  ports.Metrics
	Logger   *slog.Logger
	Location *time.Location

	PeriodDays    int
	FetchAttempts int
	FetchDelay    time.Duration
	// Sleep and Now are replaced in tests.
	Sleep retry.SleepFunc
	Now   func() time.Time
}

// Compiler gathers reviews and staff reports into a ReportBundle.
type Compiler struct {
	source  ports.ReviewSource
	reports ports.StaffReportStore
	advisor ports.Advisor
	metrics ports.Metrics
	logger  *slog.Logger
	loc     *time.Location

	periodDays    int
	fetchAttempts int
	fetchDelay    time.Duration
	sleep         retry.SleepFunc
	now           func() time.Time
}

// NewCompiler constructs the compile use case.
func NewCompiler(deps CompilerDeps) *Compiler {
	c := &Compiler{
		source:        deps.Source,
		reports:       deps.Reports,
		advisor:       deps.Advisor,
		metrics:       deps.Metrics,
		logger:        deps.Logger,
		loc:           deps.Location,
		periodDays:    deps.PeriodDays,
		fetchAttempts: deps.FetchAttempts,
		fetchDelay:    deps.FetchDelay,
		sleep:         deps.Sleep,
		now:           deps.Now,
	}
	if c.metrics == nil {
		c.metrics = ports.NopMetrics{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.loc == nil {
		c.loc = time.UTC
	}
	if c.periodDays <= 0 {
		c.periodDays = 14
	}
	if c.fetchAttempts <= 0 {
		c.fetchAttempts = 1
	}
	if c.sleep == nil {
		c.sleep = retry.Sleep
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// Location is the business timezone used for day boundaries.
func (c *Compiler) Location() *time.Location {
	return c.loc
}

// Compile runs the daily cycle: fetch with retries, merge staff reports, compute
// statistics and ask for advice on the last two days. Fetch exhaustion and
// advisor failures degrade the bundle instead of failing it; only context
// cancellation is returned as an error.
func (c *Compiler) Compile(ctx context.Context) (domain.ReportBundle, error) {
	logger := c.logger.With("run_id", uuid.NewString(), "kind", "daily")

	bundle := c.gather(ctx, logger, c.fetchAttempts)
	if err := ctx.Err(); err != nil {
		c.metrics.CompileCycle("daily", "cancelled")
		return domain.ReportBundle{}, err
	}

	if c.advisor != nil {
		recentReviews := c.since(bundle.AllReviews, bundle.PeriodEnd, 1)
		recentReports := c.since(bundle.AllReports, bundle.PeriodEnd, 1)
		logger.Info("requesting advice", "reviews", len(recentReviews), "reports", len(recentReports))
		advice, err := c.advisor.Advice(ctx, recentReviews, recentReports)
		if err != nil {
			logger.Warn("advice unavailable", "error", err)
		}
		bundle.Advice = advice
	}

	c.metrics.CompileCycle("daily", cycleResult(bundle))
	logger.Info("compile finished",
		"reviews", len(bundle.AllReviews),
		"reports", len(bundle.AllReports),
		"today_reviews", len(bundle.TodayReviews),
		"advice", bundle.Advice != "",
	)
	return bundle, nil
}

// CompileSummary runs the summary cycle with a single fetch attempt. A failed
// fetch is returned as an error so the caller can report it; an empty range is not.
func (c *Compiler) CompileSummary(ctx context.Context, progress ProgressFunc) (domain.ReportBundle, error) {
	logger := c.logger.With("run_id", uuid.NewString(), "kind", "summary")
	if progress == nil {
		progress = func(context.Context, Stage) {}
	}

	progress(ctx, StageFetching)
	bundle := c.gather(ctx, logger, 1)
	if err := ctx.Err(); err != nil {
		c.metrics.CompileCycle("summary", "cancelled")
		return domain.ReportBundle{}, err
	}
	if bundle.FetchErr != nil {
		c.metrics.CompileCycle("summary", "error")
		return bundle, fmt.Errorf("%s: %w", bundle.Note, bundle.FetchErr)
	}

	if c.advisor != nil {
		progress(ctx, StageAnalyzing)
		summary, err := c.advisor.Summary(ctx, bundle.AllReviews, bundle.AllReports)
		if err != nil {
			logger.Warn("summary unavailable", "error", err)
		}
		bundle.Summary = summary
	}

	c.metrics.CompileCycle("summary", cycleResult(bundle))
	logger.Info("summary compiled", "reviews", len(bundle.AllReviews), "reports", len(bundle.AllReports))
	return bundle, nil
}

func (c *Compiler) gather(ctx context.Context, logger *slog.Logger, attempts int) domain.ReportBundle {
	now := c.now().In(c.loc)
	today := startOfDay(now)
	dateFrom := today.AddDate(0, 0, -(c.periodDays - 1))

	bundle := domain.ReportBundle{PeriodStart: dateFrom, PeriodEnd: now}

	reviews, err := c.fetch(ctx, logger, dateFrom, attempts)
	switch {
	case errors.Is(err, ports.ErrNoReviews):
		bundle.Note = fmt.Sprintf("Отзывов с %s нет", dateFrom.Format("02.01.2006"))
	case err != nil:
		bundle.Note = fetchNote(err)
		bundle.FetchErr = err
		logger.Warn("reviews unavailable", "error", err)
	default:
		bundle.AllReviews = reviews
	}

	if c.reports != nil {
		stored, err := c.reports.ListReports(ctx, dateFrom)
		if err != nil {
			logger.Warn("staff reports unavailable", "error", err)
		}
		for _, r := range stored {
			if !r.Valid() {
				logger.Debug("staff report without text", "report_id", r.ID)
			}
			bundle.AllReports = append(bundle.AllReports, r.AsReview())
		}
	}

	bundle.TodayReviews = c.since(bundle.AllReviews, now, 0)
	bundle.TodayReports = c.since(bundle.AllReports, now, 0)
	bundle.Stats = domain.ComputeStats(bundle.AllReviews)
	bundle.TodayStats = domain.ComputeStats(bundle.TodayReviews)
	return bundle
}

func (c *Compiler) fetch(ctx context.Context, logger *slog.Logger, dateFrom time.Time, attempts int) ([]domain.Review, error) {
	if c.source == nil {
		return nil, ports.ErrNoReviews
	}

	var reviews []domain.Review
	policy := retry.Policy{
		Attempts:  attempts,
		Delay:     c.fetchDelay,
		Sleep:     c.sleep,
		Retryable: func(err error) bool { return !errors.Is(err, ports.ErrNoReviews) },
		OnRetry: func(attempt int, err error) {
			logger.Warn("couldn't fetch reviews", "attempt", attempt, "error", err, "retry_in", c.fetchDelay)
		},
	}
	err := retry.Do(ctx, policy, func(ctx context.Context, _ int) error {
		got, err := c.source.FetchReviews(ctx, dateFrom)
		c.metrics.FetchAttempt(fetchResult(err))
		if err != nil {
			return err
		}
		reviews = got
		return nil
	})
	return reviews, err
}

// since keeps items published on or after the local day that is daysBack before ref.
func (c *Compiler) since(items []domain.Review, ref time.Time, daysBack int) []domain.Review {
	cutoff := startOfDay(ref.In(c.loc)).AddDate(0, 0, -daysBack)
	var out []domain.Review
	for _, r := range items {
		if !r.PublishedAt.In(c.loc).Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func fetchNote(err error) string {
	switch {
	case errors.Is(err, ports.ErrRateLimited):
		return "Слишком много запросов к API, попробуйте через минуту"
	case errors.Is(err, ports.ErrUnauthorized):
		return "Не удалось авторизоваться в сервисе отзывов"
	default:
		return "Ошибка при получении отзывов"
	}
}

func fetchResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ports.ErrNoReviews):
		return "empty"
	case errors.Is(err, ports.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ports.ErrUnauthorized):
		return "unauthorized"
	default:
		return "error"
	}
}

func cycleResult(b domain.ReportBundle) string {
	if b.FetchErr != nil {
		return "degraded"
	}
	return "ok"
}
