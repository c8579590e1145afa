package ports

import (
	"context"
	"errors"
	"time"

	"FeedbackBot/internal/domain"
)

var (
	// ErrRateLimited signals the aggregator throttled the request.
	ErrRateLimited = errors.New("review source rate limited")
	// ErrUnauthorized signals authentication failed even after re-authenticating.
	ErrUnauthorized = errors.New("review source unauthorized")
	// ErrNoReviews signals an empty range; it is data absence, not a failure.
	ErrNoReviews = errors.New("no reviews in range")
	// ErrRecipientRejected marks a permanent per-recipient delivery failure.
	ErrRecipientRejected = errors.New("recipient rejected message")
)

// ReviewSource pulls customer reviews from the external aggregator.
type ReviewSource interface {
	FetchReviews(ctx context.Context, dateFrom time.Time) ([]domain.Review, error)
}

// StaffReportStore keeps feedback submitted by staff.
type StaffReportStore interface {
	ListReports(ctx context.Context, since time.Time) ([]domain.StaffReport, error)
	AddReport(ctx context.Context, report domain.StaffReport) (int64, error)
	MarkTranscribed(ctx context.Context, reportID int64, transcription string) error
	PendingTranscriptions(ctx context.Context) ([]domain.StaffReport, error)
}

// StaffStore keeps the staff registry.
type StaffStore interface {
	UpsertStaff(ctx context.Context, staff domain.Staff) error
	GetStaff(ctx context.Context, telegramID int64) (*domain.Staff, error)
	ListStaff(ctx context.Context) ([]domain.Staff, error)
	RemoveStaff(ctx context.Context, telegramID int64) error
	SetRole(ctx context.Context, telegramID int64, role string) error
}

// Advisor produces narrative advice and summaries; an empty string means nothing to say.
type Advisor interface {
	Advice(ctx context.Context, reviews, reports []domain.Review) (string, error)
	Summary(ctx context.Context, reviews, reports []domain.Review) (string, error)
}

// Completer issues a single chat completion.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Transcriber converts voice notes to text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, audio []byte) (string, error)
}

// Image is a rendered chart.
type Image struct {
	Name  string
	Bytes []byte
}

// Renderer turns bundles into binary artifacts.
type Renderer interface {
	Charts(bundle domain.ReportBundle) ([]Image, error)
	PDF(bundle domain.ReportBundle) ([]byte, error)
}

// MessageRef addresses a message previously sent through the Notifier.
type MessageRef struct {
	ChatID    int64
	MessageID int
}

// Notifier abstracts the messaging transport. Text payloads use the Telegram HTML subset.
type Notifier interface {
	SendText(ctx context.Context, chatID int64, html string) (MessageRef, error)
	SendMediaGroup(ctx context.Context, chatID int64, images []Image, replyTo *MessageRef) error
	SendDocument(ctx context.Context, chatID int64, filename string, data []byte, caption string) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, html string) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	ReplyText(ctx context.Context, ref MessageRef, html string) (MessageRef, error)
}

// Metrics records pipeline counters.
type Metrics interface {
	CompileCycle(kind, result string)
	Delivery(kind, outcome string)
	FetchAttempt(result string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) CompileCycle(string, string) {}
func (NopMetrics) Delivery(string, string)     {}
func (NopMetrics) FetchAttempt(string)         {}

// DialogStore remembers which prompt a chat user is answering.
type DialogStore interface {
	Get(ctx context.Context, userID int64) (string, error)
	Set(ctx context.Context, userID int64, state string, ttl time.Duration) error
	Clear(ctx context.Context, userID int64) error
}
