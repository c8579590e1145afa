package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
)

var almaty = time.FixedZone("ALMT", 5*60*60)

type fakeSource struct {
	mu      sync.Mutex
	results []sourceResult
	calls   []time.Time
}

type sourceResult struct {
	reviews []domain.Review
	err     error
}

// FetchReviews replays results in order, repeating the last one.
func (f *fakeSource) FetchReviews(_ context.Context, dateFrom time.Time) ([]domain.Review, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, dateFrom)
	if len(f.results) == 0 {
		return nil, ports.ErrNoReviews
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res.reviews, res.err
}

type fakeReportStore struct {
	reports []domain.StaffReport
	err     error
	since   time.Time
}

func (f *fakeReportStore) ListReports(_ context.Context, since time.Time) ([]domain.StaffReport, error) {
	f.since = since
	return f.reports, f.err
}

func (f *fakeReportStore) AddReport(context.Context, domain.StaffReport) (int64, error) {
	return 0, errors.New("not implemented")
}

func (f *fakeReportStore) MarkTranscribed(context.Context, int64, string) error {
	return errors.New("not implemented")
}

func (f *fakeReportStore) PendingTranscriptions(context.Context) ([]domain.StaffReport, error) {
	return nil, nil
}

type fakeAdvisor struct {
	advice, summary       string
	adviceErr, summaryErr error

	adviceReviews, adviceReports []domain.Review
	summaryReviews               []domain.Review
}

func (f *fakeAdvisor) Advice(_ context.Context, reviews, reports []domain.Review) (string, error) {
	f.adviceReviews, f.adviceReports = reviews, reports
	return f.advice, f.adviceErr
}

func (f *fakeAdvisor) Summary(_ context.Context, reviews, _ []domain.Review) (string, error) {
	f.summaryReviews = reviews
	return f.summary, f.summaryErr
}

type fakeRenderer struct {
	pdfErr error
}

func (fakeRenderer) Charts(domain.ReportBundle) ([]ports.Image, error) {
	return []ports.Image{{Name: "a.png", Bytes: []byte("a")}, {Name: "b.png", Bytes: []byte("b")}}, nil
}

func (f fakeRenderer) PDF(domain.ReportBundle) ([]byte, error) {
	if f.pdfErr != nil {
		return nil, f.pdfErr
	}
	return []byte("%PDF-1.3 fake"), nil
}

type sentCall struct {
	Op      string
	ChatID  int64
	Text    string
	ReplyTo int
	Ref     ports.MessageRef
}

type fakeNotifier struct {
	mu     sync.Mutex
	calls  []sentCall
	nextID int
	// fail returns an error for op on chat, consulted before each call.
	fail func(op string, chatID int64) error
}

func (n *fakeNotifier) record(op string, chatID int64, text string, replyTo int) (ports.MessageRef, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		if err := n.fail(op, chatID); err != nil {
			return ports.MessageRef{}, err
		}
	}
	n.nextID++
	ref := ports.MessageRef{ChatID: chatID, MessageID: n.nextID}
	n.calls = append(n.calls, sentCall{Op: op, ChatID: chatID, Text: text, ReplyTo: replyTo, Ref: ref})
	return ref, nil
}

func (n *fakeNotifier) SendText(_ context.Context, chatID int64, html string) (ports.MessageRef, error) {
	return n.record("text", chatID, html, 0)
}

func (n *fakeNotifier) ReplyText(_ context.Context, ref ports.MessageRef, html string) (ports.MessageRef, error) {
	return n.record("reply", ref.ChatID, html, ref.MessageID)
}

func (n *fakeNotifier) SendMediaGroup(_ context.Context, chatID int64, images []ports.Image, replyTo *ports.MessageRef) error {
	reply := 0
	if replyTo != nil {
		reply = replyTo.MessageID
	}
	_, err := n.record("media", chatID, fmt.Sprintf("%d images", len(images)), reply)
	return err
}

func (n *fakeNotifier) SendDocument(_ context.Context, chatID int64, filename string, _ []byte, caption string) (ports.MessageRef, error) {
	return n.record("document", chatID, filename+"\n"+caption, 0)
}

func (n *fakeNotifier) EditText(_ context.Context, ref ports.MessageRef, html string) error {
	_, err := n.record("edit", ref.ChatID, html, ref.MessageID)
	return err
}

func (n *fakeNotifier) DeleteMessage(_ context.Context, ref ports.MessageRef) error {
	_, err := n.record("delete", ref.ChatID, "", ref.MessageID)
	return err
}

func (n *fakeNotifier) ops(chatID int64) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, c := range n.calls {
		if c.ChatID == chatID {
			out = append(out, c.Op)
		}
	}
	return out
}

func (n *fakeNotifier) find(op string, chatID int64) []sentCall {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentCall
	for _, c := range n.calls {
		if c.Op == op && c.ChatID == chatID {
			out = append(out, c)
		}
	}
	return out
}

// fakeClock never blocks; it records every requested sleep.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) recorded() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

type countingMetrics struct {
	mu     sync.Mutex
	counts map[string]int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{counts: map[string]int{}}
}

func (m *countingMetrics) inc(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
}

func (m *countingMetrics) CompileCycle(kind, result string) { m.inc("compile/" + kind + "/" + result) }
func (m *countingMetrics) Delivery(kind, outcome string)    { m.inc("delivery/" + kind + "/" + outcome) }
func (m *countingMetrics) FetchAttempt(result string)       { m.inc("fetch/" + result) }

func (m *countingMetrics) get(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[key]
}
