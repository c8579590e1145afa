package render

import (
	"bytes"
	"image/png"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackBot/internal/domain"
)

func sampleBundle() domain.ReportBundle {
	end := time.Date(2024, time.December, 16, 18, 0, 0, 0, time.UTC)
	reviews := []domain.Review{
		{PublishedAt: time.Date(2024, time.December, 11, 16, 13, 37, 0, time.UTC), Rating: 3, Provider: "2ГИС"},
		{PublishedAt: time.Date(2024, time.December, 12, 16, 13, 37, 0, time.UTC), Rating: 2, Provider: "Google"},
		{PublishedAt: time.Date(2024, time.December, 12, 4, 41, 1, 0, time.UTC), Rating: 5, Provider: "2ГИС"},
		{PublishedAt: time.Date(2024, time.December, 12, 3, 13, 34, 0, time.UTC), Rating: 5, Provider: "Яндекс"},
		{PublishedAt: time.Date(2024, time.December, 16, 3, 13, 34, 0, time.UTC), Rating: 5, Provider: "Неизвестная площадка"},
	}
	return domain.ReportBundle{
		PeriodStart: end.AddDate(0, 0, -13),
		PeriodEnd:   end,
		AllReviews:  reviews,
		AllReports: []domain.Review{
			{Provider: domain.ProviderStaffReport, Author: "Дана", Text: "всё хорошо", PublishedAt: end},
		},
		Stats:   domain.ComputeStats(reviews),
		Summary: "## Проблемы\n- **Долгое** ожидание\n- Холодный суп <горячее>",
	}
}

func decodePNG(t *testing.T, data []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	b := img.Bounds()
	return b.Dx(), b.Dy()
}

func TestChartsProduceThreePNGs(t *testing.T) {
	t.Parallel()

	images, err := New(time.UTC).Charts(sampleBundle())
	require.NoError(t, err)
	require.Len(t, images, 3)

	w, h := decodePNG(t, images[0].Bytes)
	assert.Equal(t, 1200, w)
	assert.Equal(t, 620, h)
	w, h = decodePNG(t, images[1].Bytes)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 1000, h)
	w, h = decodePNG(t, images[2].Bytes)
	assert.Equal(t, 1000, w)
	assert.Equal(t, 600, h)
}

func TestChartsAreReproducible(t *testing.T) {
	t.Parallel()

	r := New(time.UTC)
	first, err := r.Charts(sampleBundle())
	require.NoError(t, err)
	second, err := r.Charts(sampleBundle())
	require.NoError(t, err)

	for i := range first {
		assert.Equal(t, first[i].Bytes, second[i].Bytes, first[i].Name)
	}
}

func TestChartsEmptyInputRendersPlaceholders(t *testing.T) {
	t.Parallel()

	end := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	images, err := New(time.UTC).Charts(domain.ReportBundle{PeriodStart: end.AddDate(0, 0, -13), PeriodEnd: end})
	require.NoError(t, err)
	require.Len(t, images, 3)
	for _, img := range images {
		assert.NotEmpty(t, img.Bytes)
		decodePNG(t, img.Bytes)
	}

	withData, err := New(time.UTC).Charts(sampleBundle())
	require.NoError(t, err)
	// Placeholders carry far less ink than real charts.
	assert.Less(t, len(images[0].Bytes), len(withData[0].Bytes))
}

func TestRatingColorGradient(t *testing.T) {
	t.Parallel()

	assert.Equal(t, parseHex("#d73027"), RatingColor(1))
	assert.Equal(t, parseHex("#ffc000"), RatingColor(3))
	assert.Equal(t, parseHex("#66bd63"), RatingColor(5))
	assert.Equal(t, RatingColor(1), RatingColor(-3))
	assert.Equal(t, RatingColor(5), RatingColor(9))

	mid := RatingColor(1.5)
	assert.NotEqual(t, RatingColor(1), mid)
	assert.NotEqual(t, RatingColor(2), mid)
}

func TestProviderColor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, parseHex("#50A739"), ProviderColor("2ГИС"))
	assert.Equal(t, parseHex("#ff4433"), ProviderColor("Яндекс"))
	assert.Equal(t, defaultProviderColor, ProviderColor("что-то новое"))
}

func TestPDFIsValidDocument(t *testing.T) {
	t.Parallel()

	data, err := New(time.UTC).PDF(sampleBundle())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.Contains(t, string(data[len(data)-16:]), "%%EOF")
	assert.Greater(t, len(data), 10_000)
}

func TestPDFWithoutData(t *testing.T) {
	t.Parallel()

	end := time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)
	data, err := New(time.UTC).PDF(domain.ReportBundle{PeriodStart: end.AddDate(0, 0, -13), PeriodEnd: end})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
}

func TestMoodMeterSizeTracksRating(t *testing.T) {
	t.Parallel()

	low, err := moodMeter(1.2)
	require.NoError(t, err)
	high, err := moodMeter(4.8)
	require.NoError(t, err)
	again, err := moodMeter(4.8)
	require.NoError(t, err)

	assert.Equal(t, high, again)
	assert.NotEqual(t, low, high)
	decodePNG(t, low)
}
