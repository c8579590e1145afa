package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FeedbackBot/internal/logging"
)

func TestNextDaily(t *testing.T) {
	t.Parallel()

	before := time.Date(2025, time.March, 10, 6, 30, 15, 0, time.UTC)
	got := NextDaily(before, 9, 0)
	assert.Equal(t, time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC), got)

	after := time.Date(2025, time.March, 10, 9, 0, 1, 0, time.UTC)
	todayTarget := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	got = NextDaily(after, 9, 0)
	assert.Equal(t, todayTarget.Add(24*time.Hour), got)
	assert.Equal(t, 24*time.Hour, got.Sub(todayTarget))

	exact := todayTarget
	assert.Equal(t, todayTarget.Add(24*time.Hour), NextDaily(exact, 9, 0))
}

func TestNextDailyNormalisesToUTC(t *testing.T) {
	t.Parallel()

	almaty, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	// 12:00 local is 07:00 UTC, before the 08:15 UTC slot.
	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, almaty)
	got := NextDaily(now, 8, 15)
	assert.Equal(t, time.Date(2025, time.June, 1, 8, 15, 0, 0, time.UTC), got)
	assert.Equal(t, time.UTC, got.Location())
}

func TestIsSummaryDay(t *testing.T) {
	t.Parallel()

	cases := []struct {
		date time.Time
		want bool
	}{
		{time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.January, 30, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, time.April, 30, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, time.February, 28, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2024, time.February, 29, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2025, time.December, 14, 0, 0, 0, 0, time.UTC), false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, IsSummaryDay(tc.date), tc.date.Format("2006-01-02"))
	}
}

func TestNextSummary(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	// Summary day, before 10:00 → today.
	now := time.Date(2025, time.May, 15, 9, 59, 0, 0, loc)
	got, ok := NextSummary(now, loc, 10, 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.May, 15, 10, 0, 0, 0, loc), got)

	// Summary day, already past → end of month.
	now = time.Date(2025, time.May, 15, 10, 0, 0, 0, loc)
	got, ok = NextSummary(now, loc, 10, 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.May, 31, 10, 0, 0, 0, loc), got)

	// Last day of month past the hour → 15th of next month.
	now = time.Date(2025, time.May, 31, 18, 0, 0, 0, loc)
	got, ok = NextSummary(now, loc, 10, 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.June, 15, 10, 0, 0, 0, loc), got)

	// Leap February.
	now = time.Date(2024, time.February, 20, 0, 0, 0, 0, loc)
	got, ok = NextSummary(now, loc, 10, 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, time.February, 29, 10, 0, 0, 0, loc), got)
}

func TestNextSummaryUsesBusinessDay(t *testing.T) {
	t.Parallel()

	loc, err := time.LoadLocation("Asia/Almaty")
	require.NoError(t, err)

	// 2025-05-14 20:00 UTC is already the 15th in Almaty.
	now := time.Date(2025, time.May, 14, 20, 0, 0, 0, time.UTC)
	got, ok := NextSummary(now, loc, 10, 0)
	require.True(t, ok)
	assert.Equal(t, time.Date(2025, time.May, 15, 10, 0, 0, 0, loc), got)
	assert.True(t, got.After(now))
}

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
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func TestTimerFiresAtComputedTargets(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Date(2025, time.March, 10, 8, 0, 0, 0, time.UTC)}
	next := func(now time.Time) (time.Time, bool) { return NextDaily(now, 9, 30), true }
	timer := NewTimer("daily", next, clock, 10*time.Second, logging.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var fired []time.Time
	err := timer.Run(ctx, func(_ context.Context, at time.Time) {
		fired = append(fired, at)
		if len(fired) == 3 {
			cancel()
		}
	})
	require.NoError(t, err)

	require.Len(t, fired, 3)
	assert.Equal(t, time.Date(2025, time.March, 10, 9, 30, 0, 0, time.UTC), fired[0])
	assert.Equal(t, 24*time.Hour, fired[1].Sub(fired[0]))
	assert.Equal(t, 24*time.Hour, fired[2].Sub(fired[1]))
	assert.Equal(t, 10*time.Second, clock.sleeps[0])
}
