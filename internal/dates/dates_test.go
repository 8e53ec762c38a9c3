package dates

import (
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateKey_RoundTrip(t *testing.T) {
	t.Parallel()

	keys := []string{"2024-01-01", "2024-02-29", "2024-12-31", "1999-06-15"}
	for _, key := range keys {
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			parsed, err := ParseDateKey(key, time.UTC)
			if err != nil {
				t.Fatalf("ParseDateKey(%q) error: %v", key, err)
			}
			if got := ToDateKey(parsed); got != key {
				t.Errorf("round trip of %q = %q", key, got)
			}
		})
	}
}

func TestParseDateKey_Invalid(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"", "2024-13-01", "not-a-date", "2024/01/02"} {
		if _, err := ParseDateKey(key, time.UTC); err == nil {
			t.Errorf("ParseDateKey(%q) expected error", key)
		}
	}
}

func TestDaysRemaining(t *testing.T) {
	t.Parallel()

	today := date(2024, time.March, 15)

	tests := []struct {
		name string
		key  string
		want int
	}{
		{"today", "2024-03-15", 0},
		{"tomorrow", "2024-03-16", 1},
		{"yesterday", "2024-03-14", -1},
		{"next week", "2024-03-22", 7},
		{"last month", "2024-02-15", -29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DaysRemaining(tt.key, today)
			if err != nil {
				t.Fatalf("DaysRemaining(%q) error: %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("DaysRemaining(%q) = %d, want %d", tt.key, got, tt.want)
			}
		})
	}
}

func TestDaysRemaining_IgnoresTimeOfDay(t *testing.T) {
	t.Parallel()

	lateTonight := time.Date(2024, time.March, 15, 23, 59, 0, 0, time.UTC)
	got, err := DaysRemaining("2024-03-16", lateTonight)
	if err != nil {
		t.Fatal(err)
	}
	if got != 1 {
		t.Errorf("DaysRemaining near midnight = %d, want 1", got)
	}
}

func TestDaysInMonth(t *testing.T) {
	t.Parallel()

	tests := []struct {
		year  int
		month time.Month
		want  int
	}{
		{2024, time.February, 29}, // leap year
		{2023, time.February, 28},
		{2024, time.April, 30},
		{2024, time.December, 31},
	}
	for _, tt := range tests {
		if got := DaysInMonth(tt.year, tt.month); got != tt.want {
			t.Errorf("DaysInMonth(%d, %v) = %d, want %d", tt.year, tt.month, got, tt.want)
		}
	}
}

func TestNextMonthlyOccurrence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		dayOfMonth int
		today      time.Time
		want       string
	}{
		{"later this month", 20, date(2024, time.March, 15), "2024-03-20"},
		{"due today", 15, date(2024, time.March, 15), "2024-03-15"},
		{"already passed", 10, date(2024, time.March, 15), "2024-04-10"},
		{"clamped to feb in leap year", 31, date(2024, time.February, 1), "2024-02-29"},
		{"clamped to feb", 31, date(2023, time.February, 5), "2023-02-28"},
		{"december wraps to january", 5, date(2024, time.December, 20), "2025-01-05"},
		{"clamp in thirty day month", 31, date(2024, time.April, 1), "2024-04-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := NextMonthlyOccurrence(tt.dayOfMonth, tt.today); got != tt.want {
				t.Errorf("NextMonthlyOccurrence(%d, %s) = %q, want %q",
					tt.dayOfMonth, ToDateKey(tt.today), got, tt.want)
			}
		})
	}
}

func TestNextMonthlyOccurrence_ClampProperty(t *testing.T) {
	t.Parallel()

	// For every anchor day and a spread of todays, the returned day equals
	// min(anchor, days in target month) and the month only advances when
	// today's day has passed the anchor.
	todays := []time.Time{
		date(2024, time.January, 1),
		date(2024, time.January, 31),
		date(2024, time.February, 14),
		date(2023, time.February, 28),
		date(2024, time.June, 30),
		date(2024, time.December, 31),
	}
	for dayOfMonth := 1; dayOfMonth <= 31; dayOfMonth++ {
		for _, today := range todays {
			key := NextMonthlyOccurrence(dayOfMonth, today)
			got, err := ParseDateKey(key, time.UTC)
			if err != nil {
				t.Fatalf("invalid key %q: %v", key, err)
			}

			wantMonth := today.Month()
			wantYear := today.Year()
			if today.Day() > dayOfMonth {
				wantMonth++
				if wantMonth > time.December {
					wantMonth = time.January
					wantYear++
				}
			}
			wantDay := dayOfMonth
			if last := DaysInMonth(wantYear, wantMonth); wantDay > last {
				wantDay = last
			}
			if got.Year() != wantYear || got.Month() != wantMonth || got.Day() != wantDay {
				t.Errorf("NextMonthlyOccurrence(%d, %s) = %q, want %04d-%02d-%02d",
					dayOfMonth, ToDateKey(today), key, wantYear, wantMonth, wantDay)
			}
		}
	}
}

func TestAddToDateKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		key     string
		y, m, d int
		want    string
	}{
		{"one day", "2024-03-15", 0, 0, 1, "2024-03-16"},
		{"one week", "2024-03-15", 0, 0, 7, "2024-03-22"},
		{"one month normalizes", "2024-01-31", 0, 1, 0, "2024-03-02"},
		{"one year over leap day", "2024-02-29", 1, 0, 0, "2025-03-01"},
		{"year rollover", "2024-12-31", 0, 0, 1, "2025-01-01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := AddToDateKey(tt.key, tt.y, tt.m, tt.d, time.UTC)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("AddToDateKey(%q, %d, %d, %d) = %q, want %q", tt.key, tt.y, tt.m, tt.d, got, tt.want)
			}
		})
	}
}
