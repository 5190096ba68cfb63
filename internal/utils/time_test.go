package utils

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDaysInRange(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		want     int
	}{
		{"single day", "2024-01-15", "2024-01-15", 1},
		{"one week", "2024-01-09", "2024-01-15", 7},
		{"across month", "2024-01-30", "2024-02-02", 4},
		{"leap day", "2024-02-28", "2024-03-01", 3},
		{"inverted", "2024-01-15", "2024-01-14", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DaysInRange(tt.from, tt.to)
			if err != nil {
				t.Fatalf("DaysInRange() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("DaysInRange(%s, %s) = %d, want %d", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestDaysInRangeInvalid(t *testing.T) {
	if _, err := DaysInRange("2024-13-01", "2024-01-01"); err == nil {
		t.Error("expected error for invalid month")
	}
}

func TestDateRange(t *testing.T) {
	got, err := DateRange("2024-02-27", "2024-03-01")
	if err != nil {
		t.Fatalf("DateRange() error = %v", err)
	}
	want := []string{"2024-02-27", "2024-02-28", "2024-02-29", "2024-03-01"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DateRange() mismatch (-want +got):\n%s", diff)
	}
}

func TestAddDays(t *testing.T) {
	got, err := AddDays("2024-03-01", -1)
	if err != nil {
		t.Fatalf("AddDays() error = %v", err)
	}
	if got != "2024-02-29" {
		t.Errorf("AddDays() = %s, want 2024-02-29", got)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.FixedZone("X", 3600))
	parsed, err := ParseTimestamp(FormatTimestamp(ts))
	if err != nil {
		t.Fatalf("ParseTimestamp() error = %v", err)
	}
	if !parsed.Equal(ts) {
		t.Errorf("round trip = %v, want %v", parsed, ts)
	}
	if _, err := ParseTimestamp("2024-01-15T10:30:00Z"); err != nil {
		t.Errorf("ParseTimestamp() rejected RFC3339 without fraction: %v", err)
	}
}

func TestFormatTimestampSortsLexically(t *testing.T) {
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	earlier := FormatTimestamp(base)
	later := FormatTimestamp(base.Add(500 * time.Millisecond))
	if !(earlier < later) {
		t.Errorf("FormatTimestamp order: %q should sort before %q", earlier, later)
	}
}
