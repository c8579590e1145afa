package llm

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/osteele/liquid"

	"FeedbackBot/internal/config"
	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
)

// Advisor implements ports.Advisor on top of any Completer.
type Advisor struct {
	completer     ports.Completer
	adviceSystem  string
	summarySystem string
	advice        *liquid.Template
	summary       *liquid.Template
	loc           *time.Location
	now           func() time.Time
}

var _ ports.Advisor = (*Advisor)(nil)

// NewAdvisor parses prompt templates once; cfg prompts override the built-in system prompts.
func NewAdvisor(completer ports.Completer, cfg config.LLMConfig, loc *time.Location) (*Advisor, error) {
	engine := liquid.NewEngine()

	advice, err := engine.ParseString(adviceTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse advice template: %w", err)
	}
	summary, err := engine.ParseString(summaryTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}
	if loc == nil {
		loc = time.UTC
	}

	a := &Advisor{
		completer:     completer,
		adviceSystem:  adviceSystemPrompt,
		summarySystem: summarySystemPrompt,
		advice:        advice,
		summary:       summary,
		loc:           loc,
		now:           time.Now,
	}
	if p := strings.TrimSpace(cfg.AdvicePrompt); p != "" {
		a.adviceSystem = p
	}
	if p := strings.TrimSpace(cfg.SummaryPrompt); p != "" {
		a.summarySystem = p
	}
	return a, nil
}

// Advice asks for short recommendations; reviews published today are set apart from earlier ones.
func (a *Advisor) Advice(ctx context.Context, reviews, reports []domain.Review) (string, error) {
	if len(reviews) == 0 && len(reports) == 0 {
		return "", nil
	}

	today := a.now().In(a.loc)
	var fresh, earlier []domain.Review
	for _, r := range sortedByTime(reviews) {
		if sameDay(r.PublishedAt.In(a.loc), today) {
			fresh = append(fresh, r)
		} else {
			earlier = append(earlier, r)
		}
	}

	prompt, err := a.advice.RenderString(liquid.Bindings{
		"today":   domain.FormatReviews(fresh, a.loc),
		"earlier": domain.FormatReviews(earlier, a.loc),
		"reports": domain.FormatReviews(sortedByTime(reports), a.loc),
	})
	if err != nil {
		return "", fmt.Errorf("render advice prompt: %w", err)
	}

	advice, cerr := a.completer.Complete(ctx, a.adviceSystem, strings.TrimSpace(prompt))
	if cerr != nil {
		return "", fmt.Errorf("advice completion: %w", cerr)
	}
	return advice, nil
}

// Summary asks for a root-cause analysis over the whole period.
func (a *Advisor) Summary(ctx context.Context, reviews, reports []domain.Review) (string, error) {
	if len(reviews) == 0 && len(reports) == 0 {
		return "", nil
	}

	prompt, err := a.summary.RenderString(liquid.Bindings{
		"reviews": domain.FormatReviews(sortedByTime(reviews), a.loc),
		"reports": domain.FormatReviews(sortedByTime(reports), a.loc),
	})
	if err != nil {
		return "", fmt.Errorf("render summary prompt: %w", err)
	}

	summary, cerr := a.completer.Complete(ctx, a.summarySystem, strings.TrimSpace(prompt))
	if cerr != nil {
		return "", fmt.Errorf("summary completion: %w", cerr)
	}
	return summary, nil
}

func sortedByTime(in []domain.Review) []domain.Review {
	out := append([]domain.Review(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PublishedAt.Before(out[j].PublishedAt) })
	return out
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
