package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/domain"
)

func TestChatGPTComplete(t *testing.T) {
	t.Parallel()

	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  Совет  "}}]}`))
	}))
	defer server.Close()

	client := NewChatGPTClient(config.LLMConfig{Endpoint: server.URL, Model: "gpt-4o", APIKey: "secret"})
	got, err := client.Complete(context.Background(), "system", "user")
	require.NoError(t, err)
	assert.Equal(t, "Совет", got)

	assert.Equal(t, "gpt-4o", captured["model"])
	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "user", messages[1].(map[string]any)["content"])
}

func TestChatGPTCompleteHTTPError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewChatGPTClient(config.LLMConfig{Endpoint: server.URL, Model: "gpt-4o", APIKey: "k"})
	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestChatGPTCompleteTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewChatGPTClient(config.LLMConfig{Endpoint: server.URL, Model: "m", APIKey: "k", Timeout: 50 * time.Millisecond})
	_, err := client.Complete(context.Background(), "s", "u")
	require.Error(t, err)
}

func TestChatGPTMisconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewChatGPTClient(config.LLMConfig{}).Complete(context.Background(), "s", "u")
	require.Error(t, err)
}

func TestChatGPTTranscribe(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, "whisper-1", r.FormValue("model"))
		assert.Equal(t, "ru", r.FormValue("language"))
		assert.Equal(t, "text", r.FormValue("response_format"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "note.ogg", header.Filename)
		data, _ := io.ReadAll(file)
		assert.Equal(t, []byte("OggS"), data)

		_, _ = w.Write([]byte("Привет, всё хорошо\n"))
	}))
	defer server.Close()

	client := NewChatGPTClient(config.LLMConfig{APIKey: "k", TranscriptionEndpoint: server.URL, TranscriptionModel: "whisper-1"})
	text, err := client.Transcribe(context.Background(), "note.ogg", []byte("OggS"))
	require.NoError(t, err)
	assert.Equal(t, "Привет, всё хорошо", text)
}

type fakeInvoker struct {
	input *bedrockruntime.InvokeModelInput
	body  string
	err   error
}

func (f *fakeInvoker) InvokeModel(_ context.Context, in *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: []byte(f.body)}, nil
}

func TestBedrockComplete(t *testing.T) {
	t.Parallel()

	invoker := &fakeInvoker{body: `{"content":[{"type":"text","text":"Первый. "},{"type":"text","text":"Второй."}]}`}
	client := newBedrockClient(invoker, config.LLMConfig{BedrockModel: "anthropic.model"})

	got, err := client.Complete(context.Background(), "sys", "hello")
	require.NoError(t, err)
	assert.Equal(t, "Первый. Второй.", got)

	require.NotNil(t, invoker.input)
	assert.Equal(t, "anthropic.model", *invoker.input.ModelId)

	var req bedrockRequest
	require.NoError(t, json.Unmarshal(invoker.input.Body, &req))
	assert.Equal(t, anthropicVersion, req.AnthropicVersion)
	assert.Equal(t, "sys", req.System)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, "hello", req.Messages[0].Content[0].Text)
}

func TestBedrockCompleteError(t *testing.T) {
	t.Parallel()

	client := newBedrockClient(&fakeInvoker{err: errors.New("throttled")}, config.LLMConfig{})
	_, err := client.Complete(context.Background(), "s", "u")
	require.ErrorContains(t, err, "throttled")
}

type recordingCompleter struct {
	calls  int
	system string
	user   string
	reply  string
	err    error
}

func (r *recordingCompleter) Complete(_ context.Context, system, user string) (string, error) {
	r.calls++
	r.system, r.user = system, user
	return r.reply, r.err
}

func newTestAdvisor(t *testing.T, completer *recordingCompleter, now time.Time) *Advisor {
	t.Helper()
	advisor, err := NewAdvisor(completer, config.LLMConfig{}, time.UTC)
	require.NoError(t, err)
	advisor.now = func() time.Time { return now }
	return advisor
}

func TestAdvisorSkipsEmptyInput(t *testing.T) {
	t.Parallel()

	completer := &recordingCompleter{reply: "unused"}
	advisor := newTestAdvisor(t, completer, time.Now())

	advice, err := advisor.Advice(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, advice)

	summary, err := advisor.Summary(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, summary)
	assert.Zero(t, completer.calls)
}

func TestAdvisorAdvicePartitionsToday(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	completer := &recordingCompleter{reply: "Улучшите сервис"}
	advisor := newTestAdvisor(t, completer, now)

	reviews := []domain.Review{
		{Author: "Сегодня", Provider: "Google", Rating: 2, Text: "холодный суп", PublishedAt: now.Add(-time.Hour)},
		{Author: "Вчера", Provider: "2ГИС", Rating: 5, Text: "отлично", PublishedAt: now.Add(-20 * time.Hour)},
	}
	reports := []domain.Review{
		{Author: "Дана (Официант)", Provider: domain.ProviderStaffReport, Text: "гость ждал 30 минут", PublishedAt: now.Add(-2 * time.Hour)},
	}

	advice, err := advisor.Advice(context.Background(), reviews, reports)
	require.NoError(t, err)
	assert.Equal(t, "Улучшите сервис", advice)
	assert.Equal(t, 1, completer.calls)
	assert.Equal(t, adviceSystemPrompt, completer.system)

	todayIdx := strings.Index(completer.user, "Новые отзывы (Сегодня):")
	earlierIdx := strings.Index(completer.user, "Отзывы (Ранее):")
	reportsIdx := strings.Index(completer.user, "Отчеты от сотрудников:")
	require.True(t, todayIdx >= 0 && earlierIdx > todayIdx && reportsIdx > earlierIdx, completer.user)

	assert.Contains(t, completer.user[todayIdx:earlierIdx], "холодный суп")
	assert.Contains(t, completer.user[earlierIdx:reportsIdx], "отлично")
	assert.Contains(t, completer.user[reportsIdx:], "гость ждал 30 минут")
	assert.Contains(t, completer.user, "★★☆☆☆")
}

func TestAdvisorAdviceOnlyReports(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, time.March, 10, 18, 0, 0, 0, time.UTC)
	completer := &recordingCompleter{reply: "ok"}
	advisor := newTestAdvisor(t, completer, now)

	_, err := advisor.Advice(context.Background(), nil, []domain.Review{
		{Author: "Ерлан", Provider: domain.ProviderStaffReport, Text: "мало салфеток", PublishedAt: now},
	})
	require.NoError(t, err)
	assert.NotContains(t, completer.user, "Новые отзывы")
	assert.Contains(t, completer.user, "мало салфеток")
}

func TestAdvisorSummaryPropagatesFailure(t *testing.T) {
	t.Parallel()

	completer := &recordingCompleter{err: context.DeadlineExceeded}
	advisor := newTestAdvisor(t, completer, time.Now())

	_, err := advisor.Summary(context.Background(), []domain.Review{{Rating: 1, Text: "плохо"}}, nil)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, summarySystemPrompt, completer.system)
	assert.Contains(t, completer.user, "плохо")
}

func TestAdvisorPromptOverride(t *testing.T) {
	t.Parallel()

	completer := &recordingCompleter{reply: "x"}
	advisor, err := NewAdvisor(completer, config.LLMConfig{AdvicePrompt: "Будь краток"}, time.UTC)
	require.NoError(t, err)

	_, err = advisor.Advice(context.Background(), []domain.Review{{Rating: 4, PublishedAt: time.Now()}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "Будь краток", completer.system)
}
