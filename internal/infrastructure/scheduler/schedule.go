package scheduler

import (
	"time"
)

// summaryScanDays bounds the forward search for the next summary day.
const summaryScanDays = 31

// NextDaily returns the next UTC instant at hour:minute strictly after now;
// if today's slot has passed (or is now) the target moves to tomorrow.
func NextDaily(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !now.Before(target) {
		target = target.AddDate(0, 0, 1)
	}
	return target
}

// IsSummaryDay reports whether date is the 15th or the last day of its month.
func IsSummaryDay(date time.Time) bool {
	if date.Day() == 15 {
		return true
	}
	return date.Day() == lastDayOfMonth(date)
}

func lastDayOfMonth(date time.Time) int {
	firstOfNext := time.Date(date.Year(), date.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1).Day()
}

// NextSummary finds the next summary day at hour:minute in loc strictly after now.
// ok is false only if no qualifying day exists within the scan window.
func NextSummary(now time.Time, loc *time.Location, hour, minute int) (time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	if IsSummaryDay(day) {
		target := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, loc)
		if local.Before(target) {
			return target, true
		}
	}

	for i := 1; i <= summaryScanDays; i++ {
		candidate := day.AddDate(0, 0, i)
		if IsSummaryDay(candidate) {
			return time.Date(candidate.Year(), candidate.Month(), candidate.Day(), hour, minute, 0, 0, loc), true
		}
	}
	return time.Time{}, false
}
