package usecase

import (
	"context"
	"fmt"
	"time"

	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
	"FeedbackBot/internal/tgformat"
)

const (
	statusStarted   = "⏳ Генерирую PDF отчёт, подождите..."
	statusAnalyzing = "🤖 Генерирую AI-анализ..."
	statusRendering = "📄 Создаю PDF..."
)

// summaryDelivery carries one recipient's status message across delivery
// attempts. Errors are shown in the status only on the final attempt.
type summaryDelivery struct {
	chatID int64
	status *ports.MessageRef
	final  bool
}

// SendSummary compiles the period summary and sends it as a PDF. Personal chats
// get a status message that follows the stages and is removed on success or
// replaced with the error on failure. Channels (negative ids) get no status.
func (r *Reports) SendSummary(ctx context.Context, chatID int64) error {
	return r.sendSummary(ctx, &summaryDelivery{chatID: chatID, final: true})
}

func (r *Reports) sendSummary(ctx context.Context, d *summaryDelivery) error {
	chatID := d.chatID
	setStatus := func(ctx context.Context, text string) {
		if d.status == nil {
			return
		}
		if err := r.notifier.EditText(ctx, *d.status, text); err != nil {
			r.logger.Debug("couldn't update summary status", "chat_id", chatID, "error", err)
		}
	}
	fail := func(ctx context.Context, text string, err error) error {
		if d.final {
			setStatus(ctx, text)
		}
		return err
	}

	switch {
	case chatID <= 0:
	case d.status == nil:
		ref, err := r.notifier.SendText(ctx, chatID, statusStarted)
		if err != nil {
			return fmt.Errorf("send summary status: %w", err)
		}
		d.status = &ref
	default:
		setStatus(ctx, statusStarted)
	}

	bundle, err := r.compiler.CompileSummary(ctx, func(ctx context.Context, stage Stage) {
		if stage == StageAnalyzing {
			setStatus(ctx, statusAnalyzing)
		}
	})
	if err != nil {
		return fail(ctx, "❌ "+tgformat.Escape(bundle.Note), fmt.Errorf("compile summary: %w", err))
	}

	setStatus(ctx, statusRendering)
	pdf, err := r.renderer.PDF(bundle)
	if err != nil {
		return fail(ctx, "❌ Ошибка при генерации отчёта: "+tgformat.Escape(err.Error()), fmt.Errorf("render summary: %w", err))
	}

	if _, err := r.notifier.SendDocument(ctx, chatID, SummaryFilename(bundle, r.compiler.Location()), pdf, SummaryCaption(bundle, r.compiler.Location())); err != nil {
		return fail(ctx, "❌ Ошибка при отправке отчёта", fmt.Errorf("send summary: %w", err))
	}

	if d.status != nil {
		if err := r.notifier.DeleteMessage(ctx, *d.status); err != nil {
			r.logger.Debug("couldn't delete summary status", "chat_id", chatID, "error", err)
		}
		d.status = nil
	}
	return nil
}

// SummaryFilename is Сводка_dd.mm-dd.mm.yyyy.pdf for the bundle period.
func SummaryFilename(b domain.ReportBundle, loc *time.Location) string {
	l := loc
	if l == nil {
		l = time.UTC
	}
	return fmt.Sprintf("Сводка_%s-%s.pdf", b.PeriodStart.In(l).Format("02.01"), b.PeriodEnd.In(l).Format("02.01.2006"))
}

// SummaryCaption describes the attached PDF.
func SummaryCaption(b domain.ReportBundle, loc *time.Location) string {
	l := loc
	if l == nil {
		l = time.UTC
	}
	return fmt.Sprintf("📊 Сводка за период %s — %s\n\n📝 Отзывов: %d\n⭐️ Средняя оценка: %.1f\n👥 Отчётов от сотрудников: %d",
		b.PeriodStart.In(l).Format("02.01.2006"),
		b.PeriodEnd.In(l).Format("02.01.2006"),
		b.Stats.Count,
		b.Stats.MeanRating,
		len(b.AllReports),
	)
}
