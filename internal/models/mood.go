package models

import "time"

const (
	MinMood = 1
	MaxMood = 5
)

// MoodEntry is the single mood record for a day.
type MoodEntry struct {
	Date      string    `json:"date"` // YYYY-MM-DD
	Mood      int       `json:"mood"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// MoodPoint is one day of a mood series. Mood is 0 when no entry exists.
type MoodPoint struct {
	Date string `json:"date"`
	Mood int    `json:"mood"`
}
