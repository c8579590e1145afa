package domain

import (
	"errors"
	"strings"
	"time"
)

const (
	starFull       = "★"
	starEmpty      = "☆"
	authorPrefix   = "Автор: "
	timestampShape = "02/01/2006 15:04"
)

// FormatReview renders the canonical text block used in prompts and chat messages:
//
//	★★★★☆
//	Provider, dd/mm/yyyy HH:MM
//	Автор: Name
//	Body
//
// The stars line is omitted for unrated items.
func FormatReview(r Review, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	var b strings.Builder
	if r.HasRating() {
		b.WriteString(Stars(r.Rating))
	}
	b.WriteString("\n")
	b.WriteString(r.Provider)
	b.WriteString(", ")
	b.WriteString(r.PublishedAt.In(loc).Format(timestampShape))
	b.WriteString("\n")
	b.WriteString(authorPrefix)
	b.WriteString(r.Author)
	b.WriteString("\n")
	b.WriteString(r.Text)
	return strings.TrimSpace(b.String())
}

// FormatReviews joins formatted blocks with a blank line.
func FormatReviews(reviews []Review, loc *time.Location) string {
	blocks := make([]string, 0, len(reviews))
	for _, r := range reviews {
		blocks = append(blocks, FormatReview(r, loc))
	}
	return strings.Join(blocks, "\n\n")
}

// Stars renders a 1..5 rating as filled and empty star glyphs.
func Stars(rating int) string {
	if rating < 0 {
		rating = 0
	}
	if rating > 5 {
		rating = 5
	}
	return strings.Repeat(starFull, rating) + strings.Repeat(starEmpty, 5-rating)
}

// ParseReview recovers provider, author, rating and publish time from a canonical block.
func ParseReview(text string, loc *time.Location) (Review, error) {
	if loc == nil {
		loc = time.UTC
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 0 {
		return Review{}, errors.New("empty review block")
	}

	var r Review
	if first := strings.TrimSpace(lines[0]); first != "" && strings.Trim(first, starFull+starEmpty) == "" {
		r.Rating = strings.Count(first, starFull)
		lines = lines[1:]
	}
	if len(lines) < 2 {
		return Review{}, errors.New("review block is missing header lines")
	}

	header := lines[0]
	idx := strings.LastIndex(header, ", ")
	if idx < 0 {
		return Review{}, errors.New("review header has no timestamp")
	}
	r.Provider = header[:idx]
	published, err := time.ParseInLocation(timestampShape, header[idx+2:], loc)
	if err != nil {
		return Review{}, err
	}
	r.PublishedAt = published

	author, ok := strings.CutPrefix(lines[1], authorPrefix)
	if !ok {
		return Review{}, errors.New("review block has no author line")
	}
	r.Author = author
	r.Text = strings.Join(lines[2:], "\n")
	return r, nil
}
