package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
	"FeedbackBot/internal/tgformat"
)

// SendDaily delivers a compiled bundle: the text report, the charts as a reply
// album and, when present, the advice as a second reply.
func (r *Reports) SendDaily(ctx context.Context, chatID int64, bundle domain.ReportBundle, charts []ports.Image) error {
	ref, err := r.notifier.SendText(ctx, chatID, DailyMessage(bundle, r.compiler.Location()))
	if err != nil {
		return fmt.Errorf("send daily report: %w", err)
	}

	if len(charts) > 0 {
		if err := r.notifier.SendMediaGroup(ctx, chatID, charts, &ref); err != nil {
			return fmt.Errorf("send daily charts: %w", err)
		}
	}

	if msg := AdviceMessage(bundle.Advice); msg != "" {
		if _, err := r.notifier.ReplyText(ctx, ref, msg); err != nil {
			return fmt.Errorf("send advice: %w", err)
		}
	}
	return nil
}

// SendDailyNow compiles and delivers a daily report to one chat on demand.
func (r *Reports) SendDailyNow(ctx context.Context, chatID int64) error {
	bundle, err := r.compiler.Compile(ctx)
	if err != nil {
		return err
	}
	charts, err := r.renderer.Charts(bundle)
	if err != nil {
		r.logger.Warn("charts unavailable", "error", err)
	}
	return r.SendDaily(ctx, chatID, bundle, charts)
}

// DailyMessage renders the daily report body in Telegram HTML.
func DailyMessage(b domain.ReportBundle, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var sb strings.Builder

	fmt.Fprintf(&sb, "<b>Отчёт с %s по %s</b>\n\n",
		b.PeriodStart.In(loc).Format(time.DateOnly), b.PeriodEnd.In(loc).Format(time.DateOnly))

	sb.WriteString("<b>Общая статистика</b>\n")
	if b.Stats.Count > 0 {
		fmt.Fprintf(&sb, "Отзывы: %d всего, %s\n", b.Stats.Count, moodLine(b.Stats))
	} else if b.Note != "" {
		fmt.Fprintf(&sb, "<i>%s</i>\n", tgformat.Escape(b.Note))
	} else {
		sb.WriteString("Отзывы: 0 всего\n")
	}
	fmt.Fprintf(&sb, "Отчёты от сотрудников: %d всего\n\n", len(b.AllReports))

	if len(b.TodayReviews) > 0 {
		fmt.Fprintf(&sb, "<b>Отзывы за сегодня: %s</b>:\n", moodLine(b.TodayStats))
		sb.WriteString(tgformat.Escape(domain.FormatReviews(b.TodayReviews, loc)))
		sb.WriteString("\n\n")
	} else {
		sb.WriteString("<b>Нет отзывов за сегодня</b> 🥹\n\n")
	}

	if len(b.TodayReports) > 0 {
		fmt.Fprintf(&sb, "<b>Отчёты от сотрудников за сегодня (%d)</b>\n", len(b.TodayReports))
		sb.WriteString(tgformat.Escape(domain.FormatReviews(b.TodayReports, loc)))
		sb.WriteString("\n\n")
	}

	return strings.TrimSpace(sb.String())
}

// AdviceMessage wraps model advice in an expandable quote; empty advice yields "".
func AdviceMessage(advice string) string {
	advice = strings.TrimSpace(advice)
	if advice == "" {
		return ""
	}
	return "<b>Советы:</b>\n" + tgformat.Blockquote(tgformat.FromMarkdown(advice), true)
}

func moodLine(s domain.Stats) string {
	return fmt.Sprintf("%d 😊 %d 😞     ⭐️ %.1f", s.PositiveCount, s.NegativeCount, s.MeanRating)
}
