package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/tgformat"
)

// Dialog states kept in the DialogStore.
const (
	stateFeedbackAdmin = "feedback:admin"
	stateFeedbackStaff = "feedback:staff"
)

const (
	thanks         = "Спасибо за обратную связь!"
	emptyFeedback  = "Пожалуйста, отправьте текст или голосовое сообщение"
	headerStaff    = "<b>Обратная связь от сотрудника:</b>"
	headerAdmin    = "<b>Обратная связь от администратора:</b>"
	maxVoiceBytes  = 20 << 20
	voiceExtension = ".ogg"
)

func (r *Router) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	state, err := r.dialogs.Get(ctx, msg.From.ID)
	if err != nil {
		return fmt.Errorf("get dialog: %w", err)
	}
	switch state {
	case stateFeedbackAdmin, stateFeedbackStaff:
		return r.feedback(ctx, msg, state == stateFeedbackAdmin)
	default:
		return nil
	}
}

// feedback stores a staff report, transcribing voice notes, announces it in the
// channel and thanks the author.
func (r *Router) feedback(ctx context.Context, msg *tgbotapi.Message, fromAdmin bool) error {
	if strings.TrimSpace(msg.Text) == "" && strings.TrimSpace(msg.Caption) == "" && msg.Voice == nil {
		_, err := r.sendHTML(msg.Chat.ID, emptyFeedback, cancelMarkup())
		return err
	}

	st, err := r.lookup(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if (fromAdmin && !st.admin) || (!fromAdmin && !st.any()) {
		return r.dialogs.Clear(ctx, msg.From.ID)
	}
	if err := r.dialogs.Clear(ctx, msg.From.ID); err != nil {
		r.logger.Warn("clear dialog", "user_id", msg.From.ID, "error", err)
	}

	report := domain.StaffReport{
		StaffID:         msg.From.ID,
		SubmittedAt:     msg.Time(),
		AuthorName:      displayName(msg.From),
		Text:            msg.Text,
		Caption:         msg.Caption,
		SourceChatID:    msg.Chat.ID,
		SourceMessageID: msg.MessageID,
	}
	if st.staff != nil {
		report.AuthorName = st.staff.DisplayName()
		report.Role = st.staff.Role
	}
	if msg.Voice != nil {
		report.VoiceFileID = msg.Voice.FileID
		transcription, err := r.transcribe(ctx, msg.Voice.FileID)
		if err != nil {
			r.logger.Error("transcription failed", "user_id", msg.From.ID, "error", err)
		}
		report.Transcription = transcription
	}
	r.logger.Info("feedback received", "user_id", msg.From.ID, "admin", fromAdmin, "voice", msg.Voice != nil)

	id, err := r.reports.AddReport(ctx, report)
	if err != nil {
		return fmt.Errorf("store report: %w", err)
	}
	r.logger.Debug("report stored", "report_id", id)

	if r.tg.ChannelID != 0 {
		if err := r.announce(msg, report.Transcription, fromAdmin); err != nil {
			r.logger.Warn("announce feedback", "channel_id", r.tg.ChannelID, "error", err)
		}
	}

	reply := tgbotapi.NewMessage(msg.Chat.ID, thanks)
	reply.ReplyToMessageID = msg.MessageID
	reply.ParseMode = parseModeHTML
	if report.Transcription != "" {
		reply.Text = thanks + "\n\nТранскрипция:\n" + tgformat.Blockquote(tgformat.Escape(report.Transcription), false)
	}
	if _, err := r.bot.Send(reply); err != nil {
		return fmt.Errorf("thank %d: %w", msg.Chat.ID, err)
	}

	if fromAdmin {
		text, markup := r.adminMenu()
		_, err = r.sendHTML(msg.Chat.ID, text, markup)
	} else {
		text, markup := staffMenu()
		_, err = r.sendHTML(msg.Chat.ID, text, markup)
	}
	return err
}

func (r *Router) announce(msg *tgbotapi.Message, transcription string, fromAdmin bool) error {
	header := tgbotapi.NewMessage(r.tg.ChannelID, headerStaff)
	if fromAdmin {
		header.Text = headerAdmin
	}
	header.ParseMode = parseModeHTML
	header.DisableNotification = true
	if _, err := r.bot.Send(header); err != nil {
		return fmt.Errorf("send header: %w", err)
	}

	forwarded, err := r.bot.Send(tgbotapi.NewForward(r.tg.ChannelID, msg.Chat.ID, msg.MessageID))
	if err != nil {
		return fmt.Errorf("forward: %w", err)
	}

	if transcription == "" {
		return nil
	}
	note := tgbotapi.NewMessage(r.tg.ChannelID, "<b>Транскрипция:</b>\n"+tgformat.Blockquote(tgformat.Escape(transcription), false))
	note.ParseMode = parseModeHTML
	note.DisableNotification = true
	note.ReplyToMessageID = forwarded.MessageID
	if _, err := r.bot.Send(note); err != nil {
		return fmt.Errorf("send transcription: %w", err)
	}
	return nil
}

func (r *Router) transcribe(ctx context.Context, fileID string) (string, error) {
	if r.transcriber == nil {
		return "", errors.New("transcriber is not configured")
	}
	audio, name, err := r.download(ctx, fileID)
	if err != nil {
		return "", err
	}
	text, err := r.transcriber.Transcribe(ctx, name, audio)
	if err != nil {
		return "", fmt.Errorf("transcribe %s: %w", fileID, err)
	}
	return text, nil
}

func (r *Router) download(ctx context.Context, fileID string) ([]byte, string, error) {
	file, err := r.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("get file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(r.fileURL, r.bot.Token, file.FilePath), nil)
	if err != nil {
		return nil, "", fmt.Errorf("build download request: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download %s: %w", fileID, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download %s: status %d", fileID, resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceBytes))
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", fileID, err)
	}

	ext := path.Ext(file.FilePath)
	if ext == "" {
		ext = voiceExtension
	}
	return data, "file" + ext, nil
}

// RetryPendingTranscriptions transcribes stored voice reports that have no
// transcript yet and returns how many succeeded.
func (r *Router) RetryPendingTranscriptions(ctx context.Context) (int, error) {
	pending, err := r.reports.PendingTranscriptions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load pending transcriptions: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}
	r.logger.Info("transcribing pending reports", "count", len(pending))

	done := 0
	for _, report := range pending {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		text, err := r.transcribe(ctx, report.VoiceFileID)
		if err != nil {
			r.logger.Error("error while transcribing voice message", "report_id", report.ID, "error", err)
			continue
		}
		if err := r.reports.MarkTranscribed(ctx, report.ID, text); err != nil {
			r.logger.Error("store transcription", "report_id", report.ID, "error", err)
			continue
		}
		r.logger.Info("transcribed", "report_id", report.ID)
		done++
	}
	return done, nil
}
