package models

import "fmt"

// CheckinCompletion is one habit's status in a check-in.
type CheckinCompletion struct {
	HabitID string `json:"habitId"`
	Done    *bool  `json:"done"`
}

// CheckinRequest is the body of POST /api/checkins. Mood and notes are
// optional; completions for habits the caller does not own are ignored.
type CheckinRequest struct {
	Date        string              `json:"date"`
	Mood        *int                `json:"mood,omitempty"`
	Notes       *string             `json:"notes,omitempty"`
	Completions []CheckinCompletion `json:"completions,omitempty"`
}

// Validate checks the shape of the request. It does not check habit
// ownership.
func (r CheckinRequest) Validate() error {
	if err := validateDate("date", r.Date); err != nil {
		return err
	}
	if r.Mood != nil && (*r.Mood < MinMood || *r.Mood > MaxMood) {
		return invalid(fmt.Sprintf("mood: must be between %d and %d", MinMood, MaxMood))
	}
	for i, c := range r.Completions {
		if c.HabitID == "" {
			return invalid(fmt.Sprintf("completions[%d].habitId: required", i))
		}
		if c.Done == nil {
			return invalid(fmt.Sprintf("completions[%d].done: required boolean", i))
		}
	}
	return nil
}

// Checkin is a day's mood and completed habits as stored on the server.
// Completions only lists done habits.
type Checkin struct {
	Date        string              `json:"date"`
	Mood        *int                `json:"mood,omitempty"`
	Notes       *string             `json:"notes,omitempty"`
	Completions []CheckinCompletion `json:"completions"`
}
