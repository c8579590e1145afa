package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"FeedbackBot/internal/bot"
	"FeedbackBot/internal/config"
	"FeedbackBot/internal/infrastructure/llm"
	"FeedbackBot/internal/infrastructure/metrics"
	"FeedbackBot/internal/infrastructure/ops"
	"FeedbackBot/internal/infrastructure/render"
	"FeedbackBot/internal/infrastructure/state"
	"FeedbackBot/internal/infrastructure/storage"
	"FeedbackBot/internal/infrastructure/telegram"
	"FeedbackBot/internal/infrastructure/toweco"
	"FeedbackBot/internal/logging"
	"FeedbackBot/internal/ports"
	"FeedbackBot/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	logger    *slog.Logger
	repo      *storage.Repository
	redis     *state.Redis
	metrics   *metrics.Prometheus
	reports   *usecase.Reports
	scheduler *usecase.ReportScheduler
	router    *bot.Router
	ops       *ops.Server
}

// New connects every adapter. The caller must Close the application.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	loc := cfg.Reports.Location()
	a := &Application{cfg: cfg, logger: baseLogger, metrics: metrics.NewPrometheus()}

	repo, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.repo = repo

	var dialogs ports.DialogStore = state.NewMemory()
	if cfg.Redis.URL != "" {
		rdb, err := state.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.redis = rdb
		dialogs = rdb
	}

	completer, transcriber, err := newLLM(ctx, cfg.LLM)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	advisor, err := llm.NewAdvisor(completer, cfg.LLM, loc)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	api, err := telegram.NewBotAPI(cfg.Telegram.BotToken, cfg.Telegram.APIEndpoint)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	compiler := usecase.NewCompiler(usecase.CompilerDeps{
		Source:        toweco.NewClient(cfg.Toweco, baseLogger),
		Reports:       repo,
		Advisor:       advisor,
		Metrics:       a.metrics,
		Logger:        baseLogger.With("component", "compiler"),
		Location:      loc,
		PeriodDays:    cfg.Reports.PeriodDays,
		FetchAttempts: cfg.Reports.FetchAttempts,
		FetchDelay:    cfg.Reports.FetchDelay,
	})
	a.reports = usecase.NewReports(usecase.ReportsDeps{
		Compiler: compiler,
		Renderer: render.New(loc),
		Notifier: telegram.NewNotifier(api, baseLogger),
		Logger:   baseLogger.With("component", "reports"),
	})
	a.scheduler = usecase.NewReportScheduler(usecase.SchedulerDeps{
		Reports:    a.reports,
		Recipients: cfg.Telegram.Recipients(),
		Config:     cfg.Reports,
		Metrics:    a.metrics,
		Logger:     baseLogger.With("component", "scheduler"),
	})
	a.router = bot.New(bot.Deps{
		Bot:         api,
		Staff:       repo,
		Reports:     repo,
		Dialogs:     dialogs,
		Transcriber: transcriber,
		Sender:      a.reports,
		Telegram:    cfg.Telegram,
		Logger:      baseLogger.With("component", "bot"),
	})

	if cfg.Ops.Listen != "" {
		checks := map[string]ops.Check{"database": repo.Ping}
		if a.redis != nil {
			checks["redis"] = a.redis.Ping
		}
		a.ops = ops.NewServer(cfg.Ops.Listen, a.metrics.Handler(), checks, baseLogger)
	}
	return a, nil
}

// newLLM picks the completion backend. Transcription always goes through the
// OpenAI-compatible API and is disabled without a key.
func newLLM(ctx context.Context, cfg config.LLMConfig) (ports.Completer, ports.Transcriber, error) {
	openai := llm.NewChatGPTClient(cfg)
	var transcriber ports.Transcriber
	if cfg.APIKey != "" {
		transcriber = openai
	}

	switch cfg.Provider {
	case "bedrock":
		client, err := llm.NewBedrockClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return client, transcriber, nil
	default:
		return openai, transcriber, nil
	}
}

// Run serves the bot, both report loops and the ops listener until ctx is
// cancelled or one of them fails.
func (a *Application) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if _, err := a.router.RetryPendingTranscriptions(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("pending transcriptions", "error", err)
		}
		return nil
	})
	g.Go(func() error { return a.router.Run(ctx) })
	g.Go(func() error { return a.scheduler.Run(ctx) })
	if a.ops != nil {
		g.Go(func() error { return a.ops.Run(ctx) })
	}

	a.logger.Info("feedback bot running",
		"recipients", len(a.cfg.Telegram.Recipients()),
		"timezone", a.cfg.Reports.Location().String(),
		"ops", a.cfg.Ops.Listen,
	)
	return g.Wait()
}

// SendDaily delivers the daily report to chatIDs, or to every configured
// recipient when none are given.
func (a *Application) SendDaily(ctx context.Context, chatIDs []int64) []usecase.DeliveryAttempt {
	if len(chatIDs) == 0 {
		return a.scheduler.RunDailyCycle(ctx)
	}
	var out []usecase.DeliveryAttempt
	for _, id := range chatIDs {
		err := a.reports.SendDailyNow(ctx, id)
		out = append(out, attemptOf(id, err))
	}
	return out
}

// SendSummary delivers the PDF summary like SendDaily.
func (a *Application) SendSummary(ctx context.Context, chatIDs []int64) []usecase.DeliveryAttempt {
	if len(chatIDs) == 0 {
		return a.scheduler.RunSummaryCycle(ctx)
	}
	var out []usecase.DeliveryAttempt
	for _, id := range chatIDs {
		err := a.reports.SendSummary(ctx, id)
		out = append(out, attemptOf(id, err))
	}
	return out
}

func attemptOf(chatID int64, err error) usecase.DeliveryAttempt {
	d := usecase.DeliveryAttempt{RecipientID: chatID, Attempt: 1, Outcome: usecase.OutcomeDelivered, Err: err}
	switch {
	case err == nil:
	case errors.Is(err, ports.ErrRecipientRejected):
		d.Outcome = usecase.OutcomeRejected
	default:
		d.Outcome = usecase.OutcomeFailed
	}
	return d
}

// Transcribe retries voice reports that still lack a transcript.
func (a *Application) Transcribe(ctx context.Context) (int, error) {
	return a.router.RetryPendingTranscriptions(ctx)
}

// Close releases storage connections.
func (a *Application) Close() error {
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.repo != nil {
		errs = append(errs, a.repo.Close())
	}
	return errors.Join(errs...)
}
