package render

import (
	"fmt"
	"math"
	"sort"
	"time"

	"FeedbackBot/internal/domain"
	"FeedbackBot/internal/ports"
)

const (
	timelineDays = 14
	noDataText   = "Нет данных за период"
)

var monthsShort = [...]string{"Янв", "Фев", "Мар", "Апр", "Май", "Июн", "Июл", "Авг", "Сен", "Окт", "Ноя", "Дек"}

// Renderer implements ports.Renderer with pure-Go rasterisation and fpdf.
type Renderer struct {
	loc *time.Location
}

var _ ports.Renderer = (*Renderer)(nil)

// New builds a renderer that buckets days in loc.
func New(loc *time.Location) *Renderer {
	if loc == nil {
		loc = time.UTC
	}
	return &Renderer{loc: loc}
}

// Charts renders the timeline, provider pie and rating histogram, in that order.
func (r *Renderer) Charts(bundle domain.ReportBundle) ([]ports.Image, error) {
	rated := ratedReviews(bundle.AllReviews)

	timeline, err := r.timeline(bundle, rated)
	if err != nil {
		return nil, fmt.Errorf("timeline chart: %w", err)
	}
	pie, err := providerPie(rated)
	if err != nil {
		return nil, fmt.Errorf("provider chart: %w", err)
	}
	histogram, err := ratingHistogram(rated)
	if err != nil {
		return nil, fmt.Errorf("rating chart: %w", err)
	}

	return []ports.Image{
		{Name: "timeline.png", Bytes: timeline},
		{Name: "providers.png", Bytes: pie},
		{Name: "ratings.png", Bytes: histogram},
	}, nil
}

func ratedReviews(in []domain.Review) []domain.Review {
	out := make([]domain.Review, 0, len(in))
	for _, rv := range in {
		if rv.HasRating() {
			out = append(out, rv)
		}
	}
	return out
}

func placeholder(width, height int, title string) ([]byte, error) {
	c, err := newCanvas(width, height)
	if err != nil {
		return nil, err
	}
	c.text(title, float64(width)/2, 50, 28, true, darkGrey, alignCenter)
	c.centeredText(noDataText, float64(width)/2, float64(height)/2, 32, false, midGrey)
	return c.encode()
}

type dayBucket struct {
	day   time.Time
	count int
	sum   int
}

func (b dayBucket) mean() float64 {
	if b.count == 0 {
		return 0
	}
	return float64(b.sum) / float64(b.count)
}

func (r *Renderer) buckets(bundle domain.ReportBundle, rated []domain.Review) []dayBucket {
	end := bundle.PeriodEnd
	if end.IsZero() {
		end = time.Now()
	}
	endDay := truncateDay(end.In(r.loc))
	startDay := endDay.AddDate(0, 0, -(timelineDays - 1))
	for _, rv := range rated {
		if d := truncateDay(rv.PublishedAt.In(r.loc)); d.Before(startDay) {
			startDay = d
		}
	}

	var out []dayBucket
	index := map[time.Time]int{}
	for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
		index[d] = len(out)
		out = append(out, dayBucket{day: d})
	}
	for _, rv := range rated {
		if i, ok := index[truncateDay(rv.PublishedAt.In(r.loc))]; ok {
			out[i].count++
			out[i].sum += rv.Rating
		}
	}
	return out
}

func (r *Renderer) timeline(bundle domain.ReportBundle, rated []domain.Review) ([]byte, error) {
	const (
		width, height = 1200, 620
		left, right   = 80.0, 40.0
		top, bottom   = 110.0, 80.0
		title         = "Отзывы и оценки"
	)
	if len(rated) == 0 {
		return placeholder(width, height, title)
	}

	c, err := newCanvas(width, height)
	if err != nil {
		return nil, err
	}
	days := r.buckets(bundle, rated)

	maxCount := 0
	for _, d := range days {
		maxCount = max(maxCount, d.count)
	}
	yMax := float64(max(5, maxCount)) * 1.03
	plotW := float64(width) - left - right
	plotH := float64(height) - top - bottom
	baseY := top + plotH
	yFor := func(v float64) float64 { return baseY - v/yMax*plotH }

	step := int(math.Ceil(yMax / 10))
	for v := 0; float64(v) <= yMax; v += step {
		y := yFor(float64(v))
		c.line(left, y, left+plotW, y, 1, gridGrey)
		c.text(fmt.Sprint(v), left-10, y+5, 14, false, darkGrey, alignRight)
	}
	c.line(left, baseY, left+plotW, baseY, 2, darkGrey)
	c.line(left, top, left, baseY, 2, darkGrey)

	slot := plotW / float64(len(days))
	barW := slot * 0.8
	today := truncateDay(bundle.PeriodEnd.In(r.loc))
	for i, d := range days {
		cx := left + slot*(float64(i)+0.5)
		if d.count > 0 {
			barTop := yFor(float64(d.count))
			c.fillRect(cx-barW/2, barTop, cx+barW/2, baseY, RatingColor(d.mean()))
			mid := (barTop + baseY) / 2
			c.centeredText(fmt.Sprintf("%.1f", d.mean()), cx, mid, 16, true, white)
			if baseY-barTop > 44 {
				c.stars(cx, mid+20, 4, int(d.mean()), white, gridGrey)
			}
		}
		labelColor := darkGrey
		if d.day.Equal(today) {
			labelColor = todayTick
		}
		c.text(dayLabel(d.day), cx, baseY+22, 13, false, labelColor, alignCenter)
	}

	c.text(title, float64(width)/2, 36, 24, true, darkGrey, alignCenter)
	c.text("Цвет и число внутри столбца - средняя оценка за этот день", 10, 62, 14, false, black, alignLeft)
	c.text("Высота столбца - количество отзывов за этот день", 10, 82, 14, false, black, alignLeft)
	c.text("Дата", left+plotW/2, float64(height)-20, 16, false, darkGrey, alignCenter)
	c.text("Количество отзывов", left, top-12, 14, false, darkGrey, alignLeft)

	stats := domain.ComputeStats(rated)
	c.text(fmt.Sprintf("Всего отзывов: %d", stats.Count), float64(width)-right, 62, 16, false, black, alignRight)
	c.text(fmt.Sprintf("Средняя оценка: %.1f", stats.MeanRating), float64(width)-right, 84, 16, false, black, alignRight)

	return c.encode()
}

type providerSlice struct {
	name  string
	count int
}

func providerPie(rated []domain.Review) ([]byte, error) {
	const (
		size  = 1000
		title = "Распределение отзывов по площадкам"
	)
	if len(rated) == 0 {
		return placeholder(size, size, title)
	}

	counts := map[string]int{}
	for _, rv := range rated {
		counts[rv.Provider]++
	}
	slices := make([]providerSlice, 0, len(counts))
	for name, n := range counts {
		slices = append(slices, providerSlice{name: name, count: n})
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].count != slices[j].count {
			return slices[i].count > slices[j].count
		}
		return slices[i].name < slices[j].name
	})

	c, err := newCanvas(size, size)
	if err != nil {
		return nil, err
	}
	cx, cy, radius := float64(size)/2, float64(size)/2+30, 340.0
	total := float64(len(rated))

	angle := 140.0
	for _, s := range slices {
		span := 360 * float64(s.count) / total
		c.fillWedge(cx, cy, 0, radius, angle, angle+span, ProviderColor(s.name))
		angle += span
	}

	angle = 140.0
	for _, s := range slices {
		span := 360 * float64(s.count) / total
		mid := (angle + span/2) * math.Pi / 180
		pct := 100 * float64(s.count) / total
		inX, inY := cx+radius*0.62*math.Cos(mid), cy-radius*0.62*math.Sin(mid)
		c.centeredText(fmt.Sprintf("%.0f%% (%d)", pct, s.count), inX, inY, 24, true, white)

		outX, outY := cx+radius*1.12*math.Cos(mid), cy-radius*1.12*math.Sin(mid)
		a := alignLeft
		if math.Cos(mid) < 0 {
			a = alignRight
		}
		c.text(s.name, outX, outY+8, 24, false, darkGrey, a)
		angle += span
	}

	c.text(title, cx, 50, 30, true, darkGrey, alignCenter)
	return c.encode()
}

func ratingHistogram(rated []domain.Review) ([]byte, error) {
	const (
		width, height = 1000, 600
		left, right   = 80.0, 40.0
		top, bottom   = 80.0, 100.0
		title         = "Распределение отзывов по рейтингу"
	)
	if len(rated) == 0 {
		return placeholder(width, height, title)
	}

	var counts [5]int
	for _, rv := range rated {
		counts[rv.Rating-1]++
	}
	maxCount := 0
	for _, n := range counts {
		maxCount = max(maxCount, n)
	}

	c, err := newCanvas(width, height)
	if err != nil {
		return nil, err
	}
	plotW := float64(width) - left - right
	plotH := float64(height) - top - bottom
	baseY := top + plotH
	yMax := float64(maxCount) * 1.05
	yFor := func(v float64) float64 { return baseY - v/yMax*plotH }

	step := int(math.Ceil(yMax / 8))
	for v := 0; float64(v) <= yMax; v += step {
		y := yFor(float64(v))
		c.line(left, y, left+plotW, y, 1, gridGrey)
		c.text(fmt.Sprint(v), left-10, y+5, 14, false, darkGrey, alignRight)
	}
	c.line(left, baseY, left+plotW, baseY, 2, darkGrey)

	slot := plotW / 5
	total := float64(len(rated))
	for i, n := range counts {
		cx := left + slot*(float64(i)+0.5)
		if n > 0 {
			barTop := yFor(float64(n))
			c.fillRect(cx-slot*0.4, barTop, cx+slot*0.4, baseY, histogramColors[i])
			c.centeredText(fmt.Sprintf("%.1f%% (%d)", 100*float64(n)/total, n), cx, (barTop+baseY)/2, 20, false, white)
		}
		c.stars(cx, baseY+28, 11, i+1, starGold, gridGrey)
	}

	c.text(title, float64(width)/2, 44, 26, true, darkGrey, alignCenter)
	c.text("Рейтинг", left+plotW/2, float64(height)-20, 18, false, darkGrey, alignCenter)
	c.text("Количество отзывов", left, top-12, 16, false, darkGrey, alignLeft)
	return c.encode()
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func dayLabel(d time.Time) string {
	return fmt.Sprintf("%02d %s", d.Day(), monthsShort[d.Month()-1])
}
