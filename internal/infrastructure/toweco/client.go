package toweco

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
)

const (
	authPath      = "api/v1/auth/getToken"
	reviewsMethod = "private.getReviews"
	dateLayout    = "02.01.2006"
)

// testAuthors are synthetic reviews left while configuring the aggregator.
var testAuthors = map[string]struct{}{
	"Test":     {},
	"0":        {},
	"NEW TEST": {},
}

// Client implements ports.ReviewSource over the aggregator JSON-RPC API.
type Client struct {
	baseURL  string
	username string
	password string
	http     *http.Client
	logger   *slog.Logger

	mu    sync.Mutex
	token string
}

var _ ports.ReviewSource = (*Client)(nil)

// NewClient builds a client from configuration.
func NewClient(cfg config.TowecoConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	base := cfg.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return &Client{
		baseURL:  base,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout},
		logger:   logger,
	}
}

type rpcRequest struct {
	ID      int    `json:"id"`
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method,omitempty"`
	Params  any    `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  json.RawMessage `json:"error"`
}

type rpcErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type reviewRecord struct {
	ID          json.RawMessage `json:"id"`
	PublishedAt string          `json:"publishedAt"`
	Provider    string          `json:"provider"`
	Review      string          `json:"review"`
	ReviewURL   string          `json:"reviewURL"`
	Author      string          `json:"author"`
	Rating      int             `json:"rating"`
}

type reviewsResult struct {
	Reviews struct {
		Reviews []reviewRecord `json:"reviews"`
	} `json:"reviews"`
}

// Auth obtains a fresh access token.
func (c *Client) Auth(ctx context.Context) error {
	body, err := json.Marshal(rpcRequest{
		ID:      1,
		JSONRPC: "2.0",
		Params:  map[string]string{"username": c.username, "password": c.password},
	})
	if err != nil {
		return fmt.Errorf("marshal auth payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+authPath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("auth request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("auth returned %s: %w", resp.Status, ports.ErrUnauthorized)
	}

	var payload struct {
		Result struct {
			AccessToken string `json:"accessToken"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fmt.Errorf("decode auth response: %w", err)
	}
	if payload.Result.AccessToken == "" {
		return fmt.Errorf("auth response without token: %w", ports.ErrUnauthorized)
	}

	c.mu.Lock()
	c.token = payload.Result.AccessToken
	c.mu.Unlock()
	return nil
}

// FetchReviews returns reviews published since dateFrom, sorted by publish time.
// An empty range yields ports.ErrNoReviews.
func (c *Client) FetchReviews(ctx context.Context, dateFrom time.Time) ([]domain.Review, error) {
	params := map[string]any{"dateFrom": dateFrom.Format(dateLayout)}
	raw, err := c.call(ctx, reviewsMethod, params)
	if err != nil {
		return nil, err
	}

	var result reviewsResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}

	reviews := make([]domain.Review, 0, len(result.Reviews.Reviews))
	for _, rec := range result.Reviews.Reviews {
		if _, skip := testAuthors[rec.Author]; skip {
			continue
		}
		review, err := rec.toDomain()
		if err != nil {
			c.logger.Warn("skip malformed review", "author", rec.Author, "error", err)
			continue
		}
		reviews = append(reviews, review)
	}

	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].PublishedAt.Before(reviews[j].PublishedAt)
	})

	if len(reviews) == 0 {
		return nil, fmt.Errorf("since %s: %w", dateFrom.Format("2006-01-02"), ports.ErrNoReviews)
	}
	return reviews, nil
}

func (r reviewRecord) toDomain() (domain.Review, error) {
	publishedAt, err := time.Parse(time.RFC3339, r.PublishedAt)
	if err != nil {
		return domain.Review{}, fmt.Errorf("parse publishedAt %q: %w", r.PublishedAt, err)
	}
	if r.Rating < 1 || r.Rating > 5 {
		return domain.Review{}, fmt.Errorf("rating %d out of range", r.Rating)
	}
	return domain.Review{
		ID:          strings.Trim(string(r.ID), `"`),
		Author:      r.Author,
		PublishedAt: publishedAt,
		Provider:    r.Provider,
		Rating:      r.Rating,
		Text:        r.Review,
		URL:         r.ReviewURL,
	}, nil
}

// call performs one RPC, re-authenticating at most once on an unauthorized answer.
func (c *Client) call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	if c.currentToken() == "" {
		if err := c.Auth(ctx); err != nil {
			return nil, fmt.Errorf("authenticate: %w", err)
		}
	}

	result, err := c.post(ctx, method, params)
	if !errors.Is(err, ports.ErrUnauthorized) {
		return result, err
	}

	c.logger.Info("token rejected, re-authenticating", "method", method)
	if authErr := c.Auth(ctx); authErr != nil {
		return nil, fmt.Errorf("re-authenticate: %w", authErr)
	}
	return c.post(ctx, method, params)
}

func (c *Client) post(ctx context.Context, method string, params any) (json.RawMessage, error) {
	body, err := json.Marshal([]rpcRequest{{ID: 0, JSONRPC: "2.0", Method: method, Params: params}})
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.currentToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", method, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, fmt.Errorf("%s returned %s: %w", method, resp.Status, ports.ErrUnauthorized)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s returned %s: %w", method, resp.Status, ports.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%s returned %s: %s", method, resp.Status, strings.TrimSpace(string(snippet)))
	}

	var batch []rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&batch); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("%s: empty response batch", method)
	}

	first := batch[0]
	if len(first.Error) > 0 && string(first.Error) != "null" {
		return nil, classifyRPCError(method, first.Error)
	}
	return first.Result, nil
}

func classifyRPCError(method string, raw json.RawMessage) error {
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		if strings.EqualFold(text, "unauthorized") {
			return fmt.Errorf("%s: %w", method, ports.ErrUnauthorized)
		}
		return fmt.Errorf("%s: rpc error %q", method, text)
	}

	var obj rpcErrorObject
	if err := json.Unmarshal(raw, &obj); err == nil {
		switch {
		case obj.Code == http.StatusTooManyRequests:
			return fmt.Errorf("%s: %s: %w", method, obj.Message, ports.ErrRateLimited)
		case obj.Code == http.StatusUnauthorized, strings.EqualFold(obj.Message, "unauthorized"):
			return fmt.Errorf("%s: %w", method, ports.ErrUnauthorized)
		}
		return fmt.Errorf("%s: rpc error %d %s", method, obj.Code, obj.Message)
	}

	return fmt.Errorf("%s: rpc error %s", method, string(raw))
}

func (c *Client) currentToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}
