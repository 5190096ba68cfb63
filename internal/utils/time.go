package utils

import (
	"fmt"
	"time"

	"github.com/julianstephens/habitsync/internal/constants"
)

// ParseDate parses a YYYY-MM-DD string as a calendar date at UTC midnight.
func ParseDate(dateStr string) (time.Time, error) {
	t, err := time.Parse(constants.DateFormat, dateStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (expected YYYY-MM-DD): %w", dateStr, err)
	}
	return t, nil
}

// FormatDate formats t as YYYY-MM-DD using its own calendar day.
func FormatDate(t time.Time) string {
	return t.Format(constants.DateFormat)
}

// Today returns the local calendar date.
func Today() string {
	return time.Now().Format(constants.DateFormat)
}

// AddDays shifts a YYYY-MM-DD date by delta calendar days.
func AddDays(dateStr string, delta int) (string, error) {
	t, err := ParseDate(dateStr)
	if err != nil {
		return "", err
	}
	return FormatDate(t.AddDate(0, 0, delta)), nil
}

// DaysInRange returns the inclusive number of calendar days in [from, to].
// It returns 0 when to is before from.
func DaysInRange(from, to string) (int, error) {
	f, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	t, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	if t.Before(f) {
		return 0, nil
	}
	return int(t.Sub(f).Hours()/24) + 1, nil
}

// DateRange lists every date in [from, to], oldest first.
func DateRange(from, to string) ([]string, error) {
	n, err := DaysInRange(from, to)
	if err != nil {
		return nil, err
	}
	f, _ := ParseDate(from)
	dates := make([]string, 0, n)
	for i := 0; i < n; i++ {
		dates = append(dates, FormatDate(f.AddDate(0, 0, i)))
	}
	return dates, nil
}

// ValidateDate reports whether s is a valid YYYY-MM-DD date.
func ValidateDate(s string) bool {
	_, err := time.Parse(constants.DateFormat, s)
	return err == nil
}

// FormatTimestamp renders a timestamp for text storage.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(constants.TimestampFormat)
}

// ParseTimestamp parses a stored timestamp. RFC3339 without fractional
// seconds is accepted too.
func ParseTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}
