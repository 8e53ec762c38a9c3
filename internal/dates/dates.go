package dates

import (
	"fmt"
	"time"
)

// DateKeyLayout is the wire format for calendar dates: YYYY-MM-DD.
// Keys are always the local wall-clock date, never a UTC-shifted one, so the
// calendar day a user sees can't drift near timezone boundaries.
const DateKeyLayout = "2006-01-02"

// ToDateKey formats t's calendar date, in t's location, as YYYY-MM-DD.
func ToDateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key as midnight in loc. The round trip
// ToDateKey(ParseDateKey(k, loc)) == k holds for every valid key.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateKeyLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return t, nil
}

// Midnight zeroes the time-of-day portion of t, keeping its location.
func Midnight(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, t.Location())
}

// DaysRemaining returns the number of whole calendar days from today until
// the date named by key. Zero means due today, negative means overdue.
func DaysRemaining(key string, today time.Time) (int, error) {
	target, err := ParseDateKey(key, today.Location())
	if err != nil {
		return 0, err
	}
	diff := Midnight(target).Sub(Midnight(today))
	days := int(diff.Hours() / 24)
	if diff > 0 && diff%(24*time.Hour) != 0 {
		// DST transitions make some days 23 or 25 hours long. Round up so a
		// date after today never reports zero days remaining.
		days++
	}
	return days, nil
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// First of next month, back one day.
	firstOfMonth := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 1, -1).Day()
}

// NextMonthlyOccurrence returns the date key of the next occurrence of a
// monthly day-of-month anchor, relative to today. If today's day-of-month has
// not passed the anchor the occurrence is this month, otherwise next month
// (December wraps into January of the next year). The day is clamped to the
// last valid day of the target month, so an anchor of 31 lands on Feb 28/29.
func NextMonthlyOccurrence(dayOfMonth int, today time.Time) string {
	year, month, day := today.Date()
	if day > dayOfMonth {
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	if last := DaysInMonth(year, month); dayOfMonth > last {
		dayOfMonth = last
	}
	return ToDateKey(time.Date(year, month, dayOfMonth, 0, 0, 0, 0, today.Location()))
}

// AddToDateKey shifts a date key by calendar units using time.AddDate
// normalization (Jan 31 + 1 month = Mar 2/3).
func AddToDateKey(key string, years, months, days int, loc *time.Location) (string, error) {
	t, err := ParseDateKey(key, loc)
	if err != nil {
		return "", err
	}
	return ToDateKey(t.AddDate(years, months, days)), nil
}
