package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/infrastructure/telegram/telegramtest"
	"FeedbackBot/internal/logging"
	"FeedbackBot/internal/ports"
	"FeedbackBot/internal/usecase"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	srv := telegramtest.NewServer(t)
	return config.Config{
		Logging: config.LoggingConfig{Level: "error"},
		Telegram: config.TelegramConfig{
			BotToken:    "TOKEN",
			ChannelID:   -100,
			Admins:      []int64{1},
			APIEndpoint: srv.Endpoint(),
		},
		Reports: config.ReportsConfig{
			PeriodDays:    14,
			SummaryHour:   10,
			FetchAttempts: 1,
			StartupDelay:  time.Hour,
		},
		LLM:      config.LLMConfig{Provider: "openai", APIKey: "sk-test"},
		Database: config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"},
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Telegram.BotToken = ""
	_, err := New(context.Background(), cfg, logging.Discard())
	require.ErrorContains(t, err, "telegram.botToken")
}

func TestNewWiresAdapters(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Redis.URL = "redis://" + mr.Addr()
	cfg.Ops.Listen = "127.0.0.1:0"

	a, err := New(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.NotNil(t, a.redis)
	assert.NotNil(t, a.ops)

	done, err := a.Transcribe(context.Background())
	require.NoError(t, err)
	assert.Zero(t, done)
}

func TestNewFailsOnUnreachableRedis(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	cfg := testConfig(t)
	cfg.Redis.URL = "redis://" + addr
	_, err := New(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	a, err := New(context.Background(), testConfig(t), logging.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, a.Run(ctx))
}

func TestAttemptOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, usecase.OutcomeDelivered, attemptOf(1, nil).Outcome)
	rejected := attemptOf(2, fmt.Errorf("send: %w", ports.ErrRecipientRejected))
	assert.Equal(t, usecase.OutcomeRejected, rejected.Outcome)
	assert.EqualValues(t, 2, rejected.RecipientID)
	assert.Equal(t, usecase.OutcomeFailed, attemptOf(3, errors.New("boom")).Outcome)
}
