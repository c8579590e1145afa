package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"FeedbackBot/internal/ports"
	"FeedbackBot/internal/retry"
)

// Outcome is the result of one delivery attempt.
type Outcome string

const (
	OutcomeDelivered Outcome = "delivered"
	OutcomeRejected  Outcome = "rejected"
	OutcomeFailed    Outcome = "failed"
)

// DeliveryAttempt records one try at delivering a report to one recipient.
type DeliveryAttempt struct {
	RecipientID int64
	Attempt     int
	Outcome     Outcome
	Err         error
}

// DeliveryPolicy bounds per-recipient retries and pacing between recipients.
type DeliveryPolicy struct {
	Attempts   int
	RetryDelay time.Duration
	Pacing     time.Duration
}

// DeliverFunc sends one report to one recipient.
type DeliverFunc func(ctx context.Context, chatID int64) error

// FanOut delivers to recipients strictly in order, one at a time. A rejection
// wrapped with ports.ErrRecipientRejected ends retries for that recipient only;
// other errors are retried after RetryDelay. Pacing is waited after every
// recipient regardless of outcome.
func FanOut(ctx context.Context, kind string, recipients []int64, policy DeliveryPolicy, sleep retry.SleepFunc, metrics ports.Metrics, logger *slog.Logger, deliver DeliverFunc) []DeliveryAttempt {
	if sleep == nil {
		sleep = retry.Sleep
	}
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}

	var attempts []DeliveryAttempt
	for _, chatID := range recipients {
		if ctx.Err() != nil {
			break
		}
		log := logger.With("chat_id", chatID)

		p := retry.Policy{
			Attempts:  policy.Attempts,
			Delay:     policy.RetryDelay,
			Sleep:     sleep,
			Retryable: func(err error) bool { return !errors.Is(err, ports.ErrRecipientRejected) },
		}
		_ = retry.Do(ctx, p, func(ctx context.Context, attempt int) error {
			err := deliver(ctx, chatID)
			rec := DeliveryAttempt{RecipientID: chatID, Attempt: attempt, Outcome: OutcomeDelivered, Err: err}
			switch {
			case err == nil:
				log.Info("report delivered", "attempt", attempt)
			case errors.Is(err, ports.ErrRecipientRejected):
				rec.Outcome = OutcomeRejected
				log.Warn("recipient rejected report, skipping", "attempt", attempt, "error", err)
			default:
				rec.Outcome = OutcomeFailed
				log.Warn("couldn't deliver report", "attempt", attempt, "error", err)
			}
			metrics.Delivery(kind, string(rec.Outcome))
			attempts = append(attempts, rec)
			return err
		})

		if err := sleep(ctx, policy.Pacing); err != nil {
			break
		}
	}
	return attempts
}
