package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"FeedbackBot/internal/domain"
)

const (
	welcomeAdmin   = "Добро пожаловать! Ваш статус: <i>администратор</i>."
	welcomeStaff   = "Добро пожаловать! Ваш статус: <i>сотрудник</i>."
	welcomeUnknown = "Добро пожаловать! Нам не удалось определить ваш статус, обратитесь к администратору."
	adminHint      = "Перейти в режим администратора /admin\nПерейти в режим сотрудника /staff"
	notAdmin       = "Вы не админ!"
)

var adminCommands = []tgbotapi.BotCommand{
	{Command: "admin", Description: "Включить режим администратора"},
	{Command: "staff", Description: "Включить режим сотрудника"},
}

func (r *Router) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return r.start(ctx, msg)
	case "admin":
		return r.adminCommand(ctx, msg)
	case "staff", "waiter":
		return r.staffCommand(ctx, msg)
	default:
		return nil
	}
}

func (r *Router) start(ctx context.Context, msg *tgbotapi.Message) error {
	user := msg.From
	st, err := r.lookup(ctx, user.ID)
	if err != nil {
		return err
	}
	if err := r.dialogs.Clear(ctx, user.ID); err != nil {
		r.logger.Warn("clear dialog", "user_id", user.ID, "error", err)
	}

	switch {
	case st.admin:
		cmds := tgbotapi.NewSetMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(user.ID), adminCommands...)
		if _, err := r.bot.Request(cmds); err != nil {
			r.logger.Warn("set admin commands", "user_id", user.ID, "error", err)
		}
		if _, err := r.sendHTML(msg.Chat.ID, welcomeAdmin, nil); err != nil {
			return err
		}
		_, err := r.sendHTML(msg.Chat.ID, adminHint, nil)
		return err

	case st.staff != nil:
		return r.welcomeStaff(msg.Chat.ID)

	case r.tg.StaffSecret != "" && msg.CommandArguments() == r.tg.StaffSecret:
		staff := domain.Staff{
			TelegramID: user.ID,
			FirstName:  user.FirstName,
			LastName:   user.LastName,
			Username:   user.UserName,
		}
		if err := r.staff.UpsertStaff(ctx, staff); err != nil {
			return fmt.Errorf("register staff %d: %w", user.ID, err)
		}
		r.logger.Info("staff registered", "user_id", user.ID, "name", staff.DisplayName())
		return r.welcomeStaff(msg.Chat.ID)

	default:
		_, err := r.sendHTML(msg.Chat.ID, welcomeUnknown, nil)
		return err
	}
}

func (r *Router) welcomeStaff(chatID int64) error {
	if _, err := r.bot.Request(tgbotapi.NewDeleteMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(chatID))); err != nil {
		r.logger.Warn("delete commands", "chat_id", chatID, "error", err)
	}
	if _, err := r.sendHTML(chatID, welcomeStaff, nil); err != nil {
		return err
	}
	text, markup := staffMenu()
	_, err := r.sendHTML(chatID, text, markup)
	return err
}

func (r *Router) adminCommand(ctx context.Context, msg *tgbotapi.Message) error {
	if !r.tg.IsAdmin(msg.From.ID) {
		if _, err := r.bot.Request(tgbotapi.NewDeleteMyCommandsWithScope(tgbotapi.NewBotCommandScopeChat(msg.From.ID))); err != nil {
			r.logger.Warn("delete commands", "user_id", msg.From.ID, "error", err)
		}
		_, err := r.sendHTML(msg.Chat.ID, notAdmin, nil)
		return err
	}
	if err := r.dialogs.Clear(ctx, msg.From.ID); err != nil {
		r.logger.Warn("clear dialog", "user_id", msg.From.ID, "error", err)
	}
	text, markup := r.adminMenu()
	_, err := r.sendHTML(msg.Chat.ID, text, markup)
	return err
}

func (r *Router) staffCommand(ctx context.Context, msg *tgbotapi.Message) error {
	st, err := r.lookup(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if !st.any() {
		_, err := r.sendHTML(msg.Chat.ID, welcomeUnknown, nil)
		return err
	}
	if err := r.dialogs.Clear(ctx, msg.From.ID); err != nil {
		r.logger.Warn("clear dialog", "user_id", msg.From.ID, "error", err)
	}
	text, markup := staffMenu()
	_, err = r.sendHTML(msg.Chat.ID, text, markup)
	return err
}
