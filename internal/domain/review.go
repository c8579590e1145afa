package domain

import "time"

// ProviderStaffReport marks staff feedback mapped into the review shape.
const ProviderStaffReport = "Отчёт от сотрудника"

// Review is a single customer review fetched from the aggregator.
type Review struct {
	ID          string
	Author      string
	PublishedAt time.Time
	Provider    string
	Rating      int
	Text        string
	URL         string
}

// HasRating reports whether the item carries a customer star rating.
// Staff reports mapped to reviews do not.
func (r Review) HasRating() bool {
	return r.Rating >= 1 && r.Rating <= 5
}

// Stats aggregates ratings over a set of reviews.
type Stats struct {
	Count         int
	PositiveCount int
	NegativeCount int
	NeutralCount  int
	MeanRating    float64
}

// ComputeStats derives aggregate counters; reviews without a rating are ignored.
func ComputeStats(reviews []Review) Stats {
	var (
		stats Stats
		sum   int
	)
	for _, r := range reviews {
		if !r.HasRating() {
			continue
		}
		stats.Count++
		sum += r.Rating
		switch {
		case r.Rating > 3:
			stats.PositiveCount++
		case r.Rating < 3:
			stats.NegativeCount++
		default:
			stats.NeutralCount++
		}
	}
	if stats.Count > 0 {
		stats.MeanRating = float64(sum) / float64(stats.Count)
	}
	return stats
}

// ReportBundle is the transient output of one compile cycle.
type ReportBundle struct {
	PeriodStart  time.Time
	PeriodEnd    time.Time
	AllReviews   []Review
	TodayReviews []Review
	AllReports   []Review
	TodayReports []Review
	Stats        Stats
	TodayStats   Stats
	Advice       string
	Summary      string
	// Note explains why the review set is empty (fetch failure or no data).
	Note string
	// FetchErr is the error surfaced by the last failed fetch attempt, if any.
	FetchErr error
}

// HasData reports whether the bundle carries any review or staff report.
func (b ReportBundle) HasData() bool {
	return len(b.AllReviews) > 0 || len(b.AllReports) > 0
}
