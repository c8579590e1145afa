// Package bot routes Telegram updates to the admin and staff menus.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
)

const (
	parseModeHTML   = "HTML"
	dialogTTL       = 30 * time.Minute
	pollTimeout     = 60
	maxInFlight     = 8
	downloadTimeout = 60 * time.Second
)

// ReportSender delivers on-demand reports to a single chat.
type ReportSender interface {
	SendDailyNow(ctx context.Context, chatID int64) error
	SendSummary(ctx context.Context, chatID int64) error
}

// Deps wires the router.
type Deps struct {
	Bot         *tgbotapi.BotAPI
	Staff       ports.StaffStore
	Reports     ports.StaffReportStore
	Dialogs     ports.DialogStore
	Transcriber ports.Transcriber
	Sender      ReportSender
	Telegram    config.TelegramConfig
	// FileURL is the download URL format taking the token and file path;
	// defaults to tgbotapi.FileEndpoint.
	FileURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Router handles commands, menu callbacks and feedback messages.
type Router struct {
	bot         *tgbotapi.BotAPI
	staff       ports.StaffStore
	reports     ports.StaffReportStore
	dialogs     ports.DialogStore
	transcriber ports.Transcriber
	sender      ReportSender
	tg          config.TelegramConfig
	fileURL     string
	httpClient  *http.Client
	logger      *slog.Logger
}

// New constructs a router.
func New(deps Deps) *Router {
	r := &Router{
		bot:         deps.Bot,
		staff:       deps.Staff,
		reports:     deps.Reports,
		dialogs:     deps.Dialogs,
		transcriber: deps.Transcriber,
		sender:      deps.Sender,
		tg:          deps.Telegram,
		fileURL:     deps.FileURL,
		httpClient:  deps.HTTPClient,
		logger:      deps.Logger,
	}
	if r.fileURL == "" {
		r.fileURL = tgbotapi.FileEndpoint
	}
	if r.httpClient == nil {
		r.httpClient = &http.Client{Timeout: downloadTimeout}
	}
	if r.logger == nil {
		r.logger = slog.Default()
	}
	return r
}

// Run long-polls for updates until ctx is cancelled. Updates are handled
// concurrently with a bounded number in flight.
func (r *Router) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	u.AllowedUpdates = []string{"message", "callback_query"}
	updates := r.bot.GetUpdatesChan(u)
	r.logger.Info("bot started", "username", r.bot.Self.UserName)

	var g errgroup.Group
	g.SetLimit(maxInFlight)
	defer func() {
		r.bot.StopReceivingUpdates()
		_ = g.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			g.Go(func() error {
				r.HandleUpdate(ctx, update)
				return nil
			})
		}
	}
}

// HandleUpdate dispatches a single update. Handler errors are logged.
func (r *Router) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("update handler panicked", "update_id", update.UpdateID, "panic", rec)
		}
	}()

	var err error
	switch {
	case update.CallbackQuery != nil:
		err = r.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		if update.Message.IsCommand() {
			err = r.handleCommand(ctx, update.Message)
		} else {
			err = r.handleMessage(ctx, update.Message)
		}
	}
	if err != nil {
		r.logger.Error("handle update", "update_id", update.UpdateID, "error", err)
	}
}

// status resolves what the user may do.
type status struct {
	admin bool
	staff *domain.Staff
}

func (s status) any() bool { return s.admin || s.staff != nil }

func (r *Router) lookup(ctx context.Context, userID int64) (status, error) {
	st := status{admin: r.tg.IsAdmin(userID)}
	staff, err := r.staff.GetStaff(ctx, userID)
	if err != nil {
		return st, fmt.Errorf("lookup staff %d: %w", userID, err)
	}
	st.staff = staff
	return st, nil
}

func (r *Router) sendHTML(chatID int64, text string, markup any) (tgbotapi.Message, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = parseModeHTML
	msg.DisableWebPagePreview = true
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := r.bot.Send(msg)
	if err != nil {
		return tgbotapi.Message{}, fmt.Errorf("send to %d: %w", chatID, err)
	}
	return sent, nil
}

func (r *Router) editHTML(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	edit.ParseMode = parseModeHTML
	edit.DisableWebPagePreview = true
	if _, err := r.bot.Request(edit); err != nil {
		return fmt.Errorf("edit %d/%d: %w", chatID, messageID, err)
	}
	return nil
}

func displayName(u *tgbotapi.User) string {
	return domain.Staff{TelegramID: u.ID, FirstName: u.FirstName, LastName: u.LastName, Username: u.UserName}.DisplayName()
}
