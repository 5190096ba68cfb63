package models

// HabitStat summarizes one active habit over a date range.
type HabitStat struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Color           *string `json:"color"`
	CompletionCount int     `json:"completionCount"`
	CompletionRate  float64 `json:"completionRate"`
	CurrentStreak   int     `json:"currentStreak"`
}

// RangeSummary aggregates habit and mood data over [From, To].
type RangeSummary struct {
	From              string      `json:"from"`
	To                string      `json:"to"`
	Days              int         `json:"days"`
	AvgMood           *float64    `json:"avgMood"`
	CompletionPercent float64     `json:"completionPercent"`
	BestStreak        int         `json:"bestStreak"`
	Habits            []HabitStat `json:"habits"`
}
