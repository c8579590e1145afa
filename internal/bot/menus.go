package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/tgformat"
)

// Callback data. Staff actions carry the target telegram id after a colon.
const (
	cbAdminMenu     = "admin:menu"
	cbManageStaff   = "admin:staff"
	cbStaffList     = "admin:staff_list"
	cbInvite        = "admin:invite"
	cbAdminFeedback = "admin:feedback"
	cbSummary       = "admin:summary"
	cbReport        = "admin:report"
	cbStaffMenu     = "staff:menu"
	cbStaffFeedback = "staff:feedback"
	cbCancel        = "feedback:cancel"

	cbDeletePrefix  = "staff:del:"
	cbRolesPrefix   = "staff:roles:"
	cbSetRolePrefix = "staff:setrole:"
)

const (
	feedbackPrompt   = "Введите общую обратную связь от посетителей"
	reportAnswer     = "Готовлю отчёт..."
	summaryAnswer    = "Готовлю сводку..."
	staffListTitle   = "Список сотрудников"
	manageStaffTitle = "Управление сотрудниками"
)

func (r *Router) adminMenu() (string, tgbotapi.InlineKeyboardMarkup) {
	text := "<b>Меню администратора 🛠</b>"
	if r.tg.ChannelLink != "" {
		text = fmt.Sprintf("<a href=\"%s\">Канал с отзывами</a>\n\n%s", tgformat.Escape(r.tg.ChannelLink), text)
	}
	return text, tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(manageStaffTitle, cbManageStaff)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Добавить обратную связь", cbAdminFeedback)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Сводка за 2 недели 📈", cbSummary)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Отчёт 📊", cbReport)),
	)
}

func staffMenu() (string, tgbotapi.InlineKeyboardMarkup) {
	return "<b>Меню сотрудника 🍽</b>", tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Добавить обратную связь", cbStaffFeedback)),
	)
}

func manageStaffMenu() (string, tgbotapi.InlineKeyboardMarkup) {
	return manageStaffTitle, tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Пригласить сотрудника", cbInvite)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(staffListTitle, cbStaffList)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Назад", cbAdminMenu)),
	)
}

func staffListMenu(staff []domain.Staff) (string, tgbotapi.InlineKeyboardMarkup) {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(staff)+1)
	for _, s := range staff {
		label := s.DisplayName()
		if s.Role != "" {
			label += " (" + s.Role + ")"
		}
		id := strconv.FormatInt(s.TelegramID, 10)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbRolesPrefix+id),
			tgbotapi.NewInlineKeyboardButtonData("❌", cbDeletePrefix+id),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Назад", cbManageStaff)))

	text := staffListTitle
	if len(staff) == 0 {
		text += "\n\n<i>Пока никого нет</i>"
	}
	return text, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func rolesMenu(s domain.Staff) (string, tgbotapi.InlineKeyboardMarkup) {
	id := strconv.FormatInt(s.TelegramID, 10)
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(domain.Roles)/2+2)
	for i := 0; i < len(domain.Roles); i += 2 {
		row := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(domain.Roles[i], cbSetRolePrefix+id+":"+strconv.Itoa(i)),
		}
		if i+1 < len(domain.Roles) {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(domain.Roles[i+1], cbSetRolePrefix+id+":"+strconv.Itoa(i+1)))
		}
		rows = append(rows, row)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Назад", cbStaffList)))

	text := fmt.Sprintf("Выберите должность для <b>%s</b>", tgformat.Escape(s.DisplayName()))
	if s.Role != "" {
		text += fmt.Sprintf("\nСейчас: <i>%s</i>", tgformat.Escape(s.Role))
	}
	return text, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

func cancelMarkup() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("Отмена", cbCancel)),
	)
}

func (r *Router) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}
	st, err := r.lookup(ctx, cb.From.ID)
	if err != nil {
		r.answer(cb, "")
		return err
	}

	data := cb.Data
	switch {
	case strings.HasPrefix(data, "admin:") || strings.HasPrefix(data, cbDeletePrefix) ||
		strings.HasPrefix(data, cbRolesPrefix) || strings.HasPrefix(data, cbSetRolePrefix):
		if !st.admin {
			r.answer(cb, notAdmin)
			return nil
		}
		return r.adminCallback(ctx, cb, data)
	case data == cbStaffMenu || data == cbStaffFeedback || data == cbCancel:
		if !st.any() {
			r.answer(cb, "Возникла ошибка, попробуйте перезапустить бота при помощи команды /start")
			return nil
		}
		return r.staffCallback(ctx, cb, st, data)
	default:
		r.answer(cb, "")
		return nil
	}
}

func (r *Router) adminCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data string) error {
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID

	switch {
	case data == cbAdminMenu:
		r.answer(cb, "")
		text, markup := r.adminMenu()
		return r.editHTML(chatID, msgID, text, markup)

	case data == cbManageStaff:
		r.answer(cb, "")
		text, markup := manageStaffMenu()
		return r.editHTML(chatID, msgID, text, markup)

	case data == cbStaffList:
		r.answer(cb, "")
		return r.showStaffList(ctx, chatID, msgID)

	case data == cbInvite:
		r.answer(cb, "")
		text := "Секрет для приглашения не настроен"
		if r.tg.StaffSecret != "" {
			link := fmt.Sprintf("https://t.me/%s?start=%s", r.bot.Self.UserName, r.tg.StaffSecret)
			text = "Отправьте сотруднику ссылку:\n" + tgformat.Escape(link)
		}
		_, markup := manageStaffMenu()
		return r.editHTML(chatID, msgID, text, markup)

	case data == cbAdminFeedback:
		r.answer(cb, "")
		if err := r.dialogs.Set(ctx, cb.From.ID, stateFeedbackAdmin, dialogTTL); err != nil {
			return fmt.Errorf("set dialog: %w", err)
		}
		return r.editHTML(chatID, msgID, feedbackPrompt, cancelMarkup())

	case data == cbReport:
		r.answer(cb, reportAnswer)
		if err := r.sender.SendDailyNow(ctx, cb.From.ID); err != nil {
			r.logger.Warn("on-demand report failed", "user_id", cb.From.ID, "error", err)
			_, _ = r.sendHTML(chatID, "❌ Не удалось отправить отчёт", nil)
		}
		return r.resendAdminMenu(chatID, msgID)

	case data == cbSummary:
		r.answer(cb, summaryAnswer)
		if err := r.sender.SendSummary(ctx, cb.From.ID); err != nil {
			r.logger.Warn("on-demand summary failed", "user_id", cb.From.ID, "error", err)
		}
		return r.resendAdminMenu(chatID, msgID)

	case strings.HasPrefix(data, cbDeletePrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(data, cbDeletePrefix), 10, 64)
		if err != nil {
			r.answer(cb, "")
			return fmt.Errorf("bad callback %q: %w", data, err)
		}
		if err := r.staff.RemoveStaff(ctx, id); err != nil {
			r.answer(cb, "")
			return fmt.Errorf("remove staff %d: %w", id, err)
		}
		r.logger.Info("staff removed", "staff_id", id, "by", cb.From.ID)
		r.answer(cb, "Сотрудник удалён")
		return r.showStaffList(ctx, chatID, msgID)

	case strings.HasPrefix(data, cbRolesPrefix):
		r.answer(cb, "")
		id, err := strconv.ParseInt(strings.TrimPrefix(data, cbRolesPrefix), 10, 64)
		if err != nil {
			return fmt.Errorf("bad callback %q: %w", data, err)
		}
		staff, err := r.staff.GetStaff(ctx, id)
		if err != nil {
			return err
		}
		if staff == nil {
			return r.showStaffList(ctx, chatID, msgID)
		}
		text, markup := rolesMenu(*staff)
		return r.editHTML(chatID, msgID, text, markup)

	case strings.HasPrefix(data, cbSetRolePrefix):
		idPart, rolePart, ok := strings.Cut(strings.TrimPrefix(data, cbSetRolePrefix), ":")
		id, idErr := strconv.ParseInt(idPart, 10, 64)
		idx, idxErr := strconv.Atoi(rolePart)
		if !ok || idErr != nil || idxErr != nil || idx < 0 || idx >= len(domain.Roles) {
			r.answer(cb, "")
			return fmt.Errorf("bad callback %q", data)
		}
		if err := r.staff.SetRole(ctx, id, domain.Roles[idx]); err != nil {
			r.answer(cb, "")
			return fmt.Errorf("set role %d: %w", id, err)
		}
		r.answer(cb, "Должность: "+domain.Roles[idx])
		return r.showStaffList(ctx, chatID, msgID)
	}

	r.answer(cb, "")
	return nil
}

func (r *Router) staffCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, st status, data string) error {
	chatID, msgID := cb.Message.Chat.ID, cb.Message.MessageID
	r.answer(cb, "")

	switch data {
	case cbStaffFeedback:
		if err := r.dialogs.Set(ctx, cb.From.ID, stateFeedbackStaff, dialogTTL); err != nil {
			return fmt.Errorf("set dialog: %w", err)
		}
		return r.editHTML(chatID, msgID, feedbackPrompt, cancelMarkup())

	case cbCancel:
		state, err := r.dialogs.Get(ctx, cb.From.ID)
		if err != nil {
			return fmt.Errorf("get dialog: %w", err)
		}
		if err := r.dialogs.Clear(ctx, cb.From.ID); err != nil {
			return fmt.Errorf("clear dialog: %w", err)
		}
		if st.admin && (state == stateFeedbackAdmin || st.staff == nil) {
			text, markup := r.adminMenu()
			return r.editHTML(chatID, msgID, text, markup)
		}
	}

	text, markup := staffMenu()
	return r.editHTML(chatID, msgID, text, markup)
}

func (r *Router) showStaffList(ctx context.Context, chatID int64, msgID int) error {
	staff, err := r.staff.ListStaff(ctx)
	if err != nil {
		return fmt.Errorf("list staff: %w", err)
	}
	text, markup := staffListMenu(staff)
	return r.editHTML(chatID, msgID, text, markup)
}

// resendAdminMenu moves the menu below the freshly delivered report.
func (r *Router) resendAdminMenu(chatID int64, msgID int) error {
	if _, err := r.bot.Request(tgbotapi.NewDeleteMessage(chatID, msgID)); err != nil {
		r.logger.Debug("delete old menu", "chat_id", chatID, "error", err)
	}
	text, markup := r.adminMenu()
	_, err := r.sendHTML(chatID, text, markup)
	return err
}

func (r *Router) answer(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := r.bot.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		r.logger.Debug("answer callback", "callback_id", cb.ID, "error", err)
	}
}
