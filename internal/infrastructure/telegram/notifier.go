package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"FeedbackBot/internal/ports"
)

const parseModeHTML = "HTML"

// NewBotAPI authenticates against the Bot API; endpoint may be empty for the public one.
func NewBotAPI(token, endpoint string) (*tgbotapi.BotAPI, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, &http.Client{Timeout: 60 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}
	return bot, nil
}

// Notifier delivers HTML messages, photos and documents through the Bot API.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	logger *slog.Logger
}

var _ ports.Notifier = (*Notifier)(nil)

// NewNotifier wraps an authenticated bot.
func NewNotifier(bot *tgbotapi.BotAPI, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{bot: bot, logger: logger.With("component", "telegram")}
}

// SendText posts an HTML message.
func (n *Notifier) SendText(ctx context.Context, chatID int64, html string) (ports.MessageRef, error) {
	msg := tgbotapi.NewMessage(chatID, html)
	msg.ParseMode = parseModeHTML
	msg.DisableWebPagePreview = true
	return n.send(ctx, "send text", msg)
}

// ReplyText posts an HTML message as a reply to ref.
func (n *Notifier) ReplyText(ctx context.Context, ref ports.MessageRef, html string) (ports.MessageRef, error) {
	msg := tgbotapi.NewMessage(ref.ChatID, html)
	msg.ParseMode = parseModeHTML
	msg.DisableWebPagePreview = true
	msg.ReplyToMessageID = ref.MessageID
	return n.send(ctx, "reply text", msg)
}

// SendMediaGroup posts images as one album, optionally replying to a previous message.
func (n *Notifier) SendMediaGroup(ctx context.Context, chatID int64, images []ports.Image, replyTo *ports.MessageRef) error {
	if len(images) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	media := make([]interface{}, 0, len(images))
	for _, img := range images {
		media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileBytes{Name: img.Name, Bytes: img.Bytes}))
	}
	group := tgbotapi.NewMediaGroup(chatID, media)
	if replyTo != nil {
		group.ReplyToMessageID = replyTo.MessageID
	}

	if _, err := n.bot.SendMediaGroup(group); err != nil {
		return classify("send media group", chatID, err)
	}
	return nil
}

// SendDocument uploads a file with an HTML caption.
func (n *Notifier) SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) (ports.MessageRef, error) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: filename, Bytes: data})
	doc.Caption = caption
	doc.ParseMode = parseModeHTML
	return n.send(ctx, "send document", doc)
}

// EditText replaces the text of a previously sent message.
func (n *Notifier) EditText(ctx context.Context, ref ports.MessageRef, html string) error {
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, html)
	edit.ParseMode = parseModeHTML
	return n.request(ctx, "edit text", ref.ChatID, edit)
}

// DeleteMessage removes a previously sent message.
func (n *Notifier) DeleteMessage(ctx context.Context, ref ports.MessageRef) error {
	return n.request(ctx, "delete message", ref.ChatID, tgbotapi.NewDeleteMessage(ref.ChatID, ref.MessageID))
}

func (n *Notifier) send(ctx context.Context, op string, c tgbotapi.Chattable) (ports.MessageRef, error) {
	if err := ctx.Err(); err != nil {
		return ports.MessageRef{}, err
	}
	msg, err := n.bot.Send(c)
	if err != nil {
		return ports.MessageRef{}, classify(op, chatOf(c), err)
	}
	ref := ports.MessageRef{MessageID: msg.MessageID}
	if msg.Chat != nil {
		ref.ChatID = msg.Chat.ID
	} else {
		ref.ChatID = chatOf(c)
	}
	return ref, nil
}

func (n *Notifier) request(ctx context.Context, op string, chatID int64, c tgbotapi.Chattable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := n.bot.Request(c); err != nil {
		return classify(op, chatID, err)
	}
	return nil
}

// classify marks errors that will not heal on retry (bad chat, bot blocked or kicked).
func classify(op string, chatID int64, err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusBadRequest, http.StatusForbidden:
			return fmt.Errorf("%s to %d: %s: %w", op, chatID, apiErr.Message, ports.ErrRecipientRejected)
		}
		return fmt.Errorf("%s to %d: %w", op, chatID, err)
	}
	return fmt.Errorf("%s to %d: %w", op, chatID, err)
}

func chatOf(c tgbotapi.Chattable) int64 {
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		return v.ChatID
	case tgbotapi.DocumentConfig:
		return v.ChatID
	}
	return 0
}
