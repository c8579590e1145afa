package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/logging"
	"FeedbackBot/internal/ports"
)

func newTestReports(src ports.ReviewSource, advisor ports.Advisor, renderer ports.Renderer, notifier ports.Notifier, clock *fakeClock) *Reports {
	compiler := newTestCompiler(src, &fakeReportStore{}, advisor, clock, nil)
	return NewReports(ReportsDeps{
		Compiler: compiler,
		Renderer: renderer,
		Notifier: notifier,
		Logger:   logging.Discard(),
	})
}

func TestDailyMessageEscapesAndSections(t *testing.T) {
	t.Parallel()

	today := review("1", 5, time.Date(2025, time.March, 10, 3, 0, 0, 0, time.UTC))
	today.Text = "Суп <холодный> & кофе"
	bundle := domain.ReportBundle{
		PeriodStart:  time.Date(2025, time.February, 25, 0, 0, 0, 0, almaty),
		PeriodEnd:    compileNow,
		AllReviews:   []domain.Review{today},
		TodayReviews: []domain.Review{today},
		AllReports:   []domain.Review{{Provider: domain.ProviderStaffReport, Author: "Дана", Text: "ок", PublishedAt: compileNow}},
		TodayReports: []domain.Review{{Provider: domain.ProviderStaffReport, Author: "Дана", Text: "ок", PublishedAt: compileNow}},
		Stats:        domain.Stats{Count: 1, PositiveCount: 1, MeanRating: 5},
		TodayStats:   domain.Stats{Count: 1, PositiveCount: 1, MeanRating: 5},
	}

	msg := DailyMessage(bundle, almaty)
	assert.True(t, strings.HasPrefix(msg, "<b>Отчёт с 2025-02-25 по 2025-03-10</b>"))
	assert.Contains(t, msg, "Отзывы: 1 всего, 1 😊 0 😞     ⭐️ 5.0")
	assert.Contains(t, msg, "Отчёты от сотрудников: 1 всего")
	assert.Contains(t, msg, "<b>Отзывы за сегодня: 1 😊 0 😞     ⭐️ 5.0</b>:")
	assert.Contains(t, msg, "Суп &lt;холодный&gt; &amp; кофе")
	assert.Contains(t, msg, "2ГИС, 10/03/2025 08:00")
	assert.Contains(t, msg, "<b>Отчёты от сотрудников за сегодня (1)</b>")
	assert.NotContains(t, msg, "<холодный>")
}

func TestDailyMessageWithoutData(t *testing.T) {
	t.Parallel()

	msg := DailyMessage(domain.ReportBundle{
		PeriodStart: time.Date(2025, time.February, 25, 0, 0, 0, 0, almaty),
		PeriodEnd:   compileNow,
		Note:        "Ошибка при получении отзывов",
	}, almaty)

	assert.Contains(t, msg, "<i>Ошибка при получении отзывов</i>")
	assert.Contains(t, msg, "<b>Нет отзывов за сегодня</b> 🥹")
	assert.NotContains(t, msg, "за сегодня (")
}

func TestAdviceMessage(t *testing.T) {
	t.Parallel()

	assert.Empty(t, AdviceMessage("  "))
	assert.Equal(t, "<b>Советы:</b>\n<blockquote expandable><b>Кухня</b> &lt;быстрее&gt;</blockquote>", AdviceMessage("**Кухня** <быстрее>"))
}

func TestSendDailyRepliesWithChartsAndAdvice(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	reports := newTestReports(nil, nil, fakeRenderer{}, notifier, &fakeClock{})
	bundle := domain.ReportBundle{PeriodStart: compileNow, PeriodEnd: compileNow, Advice: "Совет"}
	charts, _ := fakeRenderer{}.Charts(bundle)

	require.NoError(t, reports.SendDaily(context.Background(), 77, bundle, charts))

	assert.Equal(t, []string{"text", "media", "reply"}, notifier.ops(77))
	text := notifier.find("text", 77)[0]
	assert.Equal(t, text.Ref.MessageID, notifier.find("media", 77)[0].ReplyTo)
	assert.Equal(t, text.Ref.MessageID, notifier.find("reply", 77)[0].ReplyTo)
	assert.Contains(t, notifier.find("reply", 77)[0].Text, "<b>Советы:</b>")
}

func TestSendDailyWithoutAdviceSkipsReply(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	reports := newTestReports(nil, nil, fakeRenderer{}, notifier, &fakeClock{})

	require.NoError(t, reports.SendDaily(context.Background(), 77, domain.ReportBundle{}, nil))
	assert.Equal(t, []string{"text"}, notifier.ops(77))
}

func TestSendSummaryPersonalChatWalksStatus(t *testing.T) {
	t.Parallel()

	src := &fakeSource{results: []sourceResult{{reviews: []domain.Review{review("1", 4, compileNow)}}}}
	notifier := &fakeNotifier{}
	reports := newTestReports(src, &fakeAdvisor{summary: "анализ"}, fakeRenderer{}, notifier, &fakeClock{})

	require.NoError(t, reports.SendSummary(context.Background(), 42))

	assert.Equal(t, []string{"text", "edit", "edit", "document", "delete"}, notifier.ops(42))
	status := notifier.find("text", 42)[0]
	assert.Equal(t, statusStarted, status.Text)
	edits := notifier.find("edit", 42)
	assert.Equal(t, statusAnalyzing, edits[0].Text)
	assert.Equal(t, statusRendering, edits[1].Text)
	assert.Equal(t, status.Ref.MessageID, notifier.find("delete", 42)[0].ReplyTo)

	doc := notifier.find("document", 42)[0].Text
	assert.True(t, strings.HasPrefix(doc, "Сводка_25.02-10.03.2025.pdf\n"))
	assert.Contains(t, doc, "📝 Отзывов: 1")
	assert.Contains(t, doc, "⭐️ Средняя оценка: 4.0")
}

func TestSendSummaryChannelHasNoStatus(t *testing.T) {
	t.Parallel()

	src := &fakeSource{results: []sourceResult{{err: ports.ErrNoReviews}}}
	notifier := &fakeNotifier{}
	reports := newTestReports(src, &fakeAdvisor{}, fakeRenderer{}, notifier, &fakeClock{})

	require.NoError(t, reports.SendSummary(context.Background(), -1001))
	assert.Equal(t, []string{"document"}, notifier.ops(-1001))
}

func TestSendSummaryFetchErrorEditsStatus(t *testing.T) {
	t.Parallel()

	src := &fakeSource{results: []sourceResult{{err: fmt.Errorf("get reviews: %w", ports.ErrRateLimited)}}}
	notifier := &fakeNotifier{}
	reports := newTestReports(src, &fakeAdvisor{}, fakeRenderer{}, notifier, &fakeClock{})

	err := reports.SendSummary(context.Background(), 42)
	require.ErrorIs(t, err, ports.ErrRateLimited)
	assert.Equal(t, []string{"text", "edit"}, notifier.ops(42))
	assert.Equal(t, "❌ Слишком много запросов к API, попробуйте через минуту", notifier.find("edit", 42)[0].Text)
}

func TestSendSummaryRenderErrorEditsStatus(t *testing.T) {
	t.Parallel()

	src := &fakeSource{results: []sourceResult{{reviews: []domain.Review{review("1", 4, compileNow)}}}}
	notifier := &fakeNotifier{}
	reports := newTestReports(src, nil, fakeRenderer{pdfErr: errors.New("font <missing>")}, notifier, &fakeClock{})

	require.Error(t, reports.SendSummary(context.Background(), 42))
	edits := notifier.find("edit", 42)
	require.NotEmpty(t, edits)
	assert.Equal(t, "❌ Ошибка при генерации отчёта: font &lt;missing&gt;", edits[len(edits)-1].Text)
	assert.Empty(t, notifier.find("document", 42))
}

func schedulerConfig() config.ReportsConfig {
	return config.ReportsConfig{
		DailyTime:         "12:30",
		PeriodDays:        14,
		SummaryHour:       10,
		DeliveryAttempts:  3,
		DailyRetryDelay:   100 * time.Second,
		SummaryRetryDelay: 30 * time.Second,
		DailyPacing:       time.Second,
		SummaryPacing:     2 * time.Second,
	}
}

func TestRunDailyCycleCompilesOnceAndFansOut(t *testing.T) {
	t.Parallel()

	src := &fakeSource{results: []sourceResult{{reviews: []domain.Review{review("1", 5, compileNow)}}}}
	notifier := &fakeNotifier{fail: func(op string, chatID int64) error {
		if chatID == -100 && op == "text" {
			return fmt.Errorf("chat not found: %w", ports.ErrRecipientRejected)
		}
		return nil
	}}
	clock := &fakeClock{}
	reports := newTestReports(src, &fakeAdvisor{advice: "совет"}, fakeRenderer{}, notifier, clock)

	s := NewReportScheduler(SchedulerDeps{
		Reports:    reports,
		Recipients: []int64{-100, 1, 2},
		Config:     schedulerConfig(),
		Clock:      clock,
		Logger:     logging.Discard(),
	})

	attempts := s.RunDailyCycle(context.Background())

	assert.Len(t, src.calls, 1)
	require.Len(t, attempts, 3)
	assert.Equal(t, OutcomeRejected, attempts[0].Outcome)
	assert.Equal(t, OutcomeDelivered, attempts[1].Outcome)
	assert.Equal(t, OutcomeDelivered, attempts[2].Outcome)
	assert.Equal(t, []string{"text", "media", "reply"}, notifier.ops(1))
	assert.Equal(t, []string{"text", "media", "reply"}, notifier.ops(2))
	assert.Equal(t, []time.Duration{time.Second, time.Second, time.Second}, clock.recorded())
}

func TestRunSummaryCycleCompilesPerRecipient(t *testing.T) {
	t.Parallel()

	src := &fakeSource{results: []sourceResult{{reviews: []domain.Review{review("1", 3, compileNow)}}}}
	notifier := &fakeNotifier{}
	clock := &fakeClock{}
	reports := newTestReports(src, &fakeAdvisor{}, fakeRenderer{}, notifier, clock)

	s := NewReportScheduler(SchedulerDeps{
		Reports:    reports,
		Recipients: []int64{-100, 7},
		Config:     schedulerConfig(),
		Clock:      clock,
		Logger:     logging.Discard(),
	})

	attempts := s.RunSummaryCycle(context.Background())
	require.Len(t, attempts, 2)
	assert.Len(t, src.calls, 2)
	assert.Equal(t, []string{"document"}, notifier.ops(-100))
	assert.Equal(t, []string{"text", "edit", "edit", "document", "delete"}, notifier.ops(7))
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, clock.recorded())
}

func TestRunSummaryCycleReusesStatusAcrossRetries(t *testing.T) {
	t.Parallel()

	src := &fakeSource{results: []sourceResult{{err: fmt.Errorf("get reviews: %w", ports.ErrRateLimited)}}}
	notifier := &fakeNotifier{}
	clock := &fakeClock{}
	reports := newTestReports(src, &fakeAdvisor{}, fakeRenderer{}, notifier, clock)

	s := NewReportScheduler(SchedulerDeps{
		Reports:    reports,
		Recipients: []int64{7},
		Config:     schedulerConfig(),
		Clock:      clock,
		Logger:     logging.Discard(),
	})

	attempts := s.RunSummaryCycle(context.Background())
	require.Len(t, attempts, 3)
	assert.Equal(t, OutcomeFailed, attempts[2].Outcome)
	assert.Len(t, src.calls, 3)

	assert.Equal(t, []string{"text", "edit", "edit", "edit"}, notifier.ops(7))
	status := notifier.find("text", 7)[0]
	edits := notifier.find("edit", 7)
	for _, e := range edits {
		assert.Equal(t, status.Ref.MessageID, e.ReplyTo)
	}
	assert.Equal(t, statusStarted, edits[0].Text)
	assert.Equal(t, statusStarted, edits[1].Text)
	assert.Equal(t, "❌ Слишком много запросов к API, попробуйте через минуту", edits[2].Text)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second, 2 * time.Second}, clock.recorded())
}

func TestRunSummaryCycleRecoversWithSingleStatus(t *testing.T) {
	t.Parallel()

	src := &fakeSource{results: []sourceResult{
		{err: errors.New("connection reset")},
		{reviews: []domain.Review{review("1", 5, compileNow)}},
	}}
	notifier := &fakeNotifier{}
	clock := &fakeClock{}
	reports := newTestReports(src, &fakeAdvisor{}, fakeRenderer{}, notifier, clock)

	s := NewReportScheduler(SchedulerDeps{
		Reports:    reports,
		Recipients: []int64{7},
		Config:     schedulerConfig(),
		Clock:      clock,
		Logger:     logging.Discard(),
	})

	attempts := s.RunSummaryCycle(context.Background())
	require.Len(t, attempts, 2)
	assert.Equal(t, OutcomeDelivered, attempts[1].Outcome)
	assert.Equal(t, []string{"text", "edit", "edit", "edit", "document", "delete"}, notifier.ops(7))
	for _, e := range notifier.find("edit", 7) {
		assert.NotContains(t, e.Text, "❌")
	}
}

func TestSchedulerNextTargets(t *testing.T) {
	t.Parallel()

	cfg := schedulerConfig()
	s := NewReportScheduler(SchedulerDeps{Config: cfg, Logger: logging.Discard()})

	now := time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC)
	next, ok := s.NextDaily(now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.March, 11, 12, 30, 0, 0, time.UTC), next)

	summary, ok := s.NextSummary(now)
	require.True(t, ok)
	assert.Equal(t, 15, summary.Day())
	assert.Equal(t, 10, summary.Hour())

	cfg.DailyTime = ""
	disabled := NewReportScheduler(SchedulerDeps{Config: cfg, Logger: logging.Discard()})
	_, ok = disabled.NextDaily(now)
	assert.False(t, ok)
}

func TestRunReturnsOnCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := NewReportScheduler(SchedulerDeps{
		Reports: newTestReports(nil, nil, fakeRenderer{}, &fakeNotifier{}, &fakeClock{}),
		Config:  schedulerConfig(),
		Clock:   &fakeClock{},
		Logger:  logging.Discard(),
	})
	require.NoError(t, s.Run(ctx))
}
