// Package analytics derives streaks and range summaries from habit,
// completion and mood data. Every function is a pure read.
package analytics

import (
	"context"
	"errors"
	"math"

	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/utils"
)

// Reader is the read surface analytics needs. The local store and the
// per-user server store view both implement it.
type Reader interface {
	ListHabits(ctx context.Context, includeArchived bool) ([]models.Habit, error)
	CompletionDates(ctx context.Context, habitID, from, to string) ([]string, error)
	CountCompletions(ctx context.Context, habitID, from, to string) (int, error)
	ListMoods(ctx context.Context, from, to string) ([]models.MoodEntry, error)
}

type Engine struct {
	r     Reader
	today func() string
}

func NewEngine(r Reader) *Engine {
	return &Engine{r: r, today: utils.Today}
}

// CurrentStreak counts consecutive completed days ending at asOf. It is 0
// when asOf itself is not completed.
func (e *Engine) CurrentStreak(ctx context.Context, habitID, asOf string) (int, error) {
	if _, err := utils.ParseDate(asOf); err != nil {
		return 0, err
	}
	dates, err := e.r.CompletionDates(ctx, habitID, "", asOf)
	if err != nil {
		return 0, err
	}
	return streakFrom(dates, asOf)
}

// streakFrom walks back from asOf over sorted completion dates.
func streakFrom(dates []string, asOf string) (int, error) {
	want := asOf
	streak := 0
	for i := len(dates) - 1; i >= 0; i-- {
		if dates[i] > want {
			continue
		}
		if dates[i] != want {
			break
		}
		streak++
		prev, err := utils.AddDays(want, -1)
		if err != nil {
			return 0, err
		}
		want = prev
	}
	return streak, nil
}

// LastNDays reports completion for each of the n days ending at asOf,
// oldest first.
func (e *Engine) LastNDays(ctx context.Context, habitID string, n int, asOf string) ([]bool, error) {
	if n <= 0 {
		return []bool{}, nil
	}
	from, err := utils.AddDays(asOf, -(n - 1))
	if err != nil {
		return nil, err
	}
	dates, err := e.r.CompletionDates(ctx, habitID, from, asOf)
	if err != nil {
		return nil, err
	}
	done := make(map[string]bool, len(dates))
	for _, d := range dates {
		done[d] = true
	}

	days, err := utils.DateRange(from, asOf)
	if err != nil {
		return nil, err
	}
	out := make([]bool, len(days))
	for i, d := range days {
		out[i] = done[d]
	}
	return out, nil
}

// ErrInvalidRange is returned when from is after to.
var ErrInvalidRange = errors.New("from must be before or equal to to")

func checkRange(from, to string) (int, error) {
	if _, err := utils.ParseDate(from); err != nil {
		return 0, err
	}
	if _, err := utils.ParseDate(to); err != nil {
		return 0, err
	}
	if from > to {
		return 0, ErrInvalidRange
	}
	return utils.DaysInRange(from, to)
}

// RangeStats summarizes the active habits and mood entries over [from, to].
// Streaks are measured as of to, or today when to is in the future, and
// never count days before from.
func (e *Engine) RangeStats(ctx context.Context, from, to string) (models.RangeSummary, error) {
	days, err := checkRange(from, to)
	if err != nil {
		return models.RangeSummary{}, err
	}
	ref := to
	if today := e.today(); today < ref {
		ref = today
	}

	habits, err := e.r.ListHabits(ctx, false)
	if err != nil {
		return models.RangeSummary{}, err
	}

	summary := models.RangeSummary{From: from, To: to, Days: days, Habits: []models.HabitStat{}}
	total := 0
	for _, h := range habits {
		count, err := e.r.CountCompletions(ctx, h.ID, from, to)
		if err != nil {
			return models.RangeSummary{}, err
		}
		inRange, err := e.r.CompletionDates(ctx, h.ID, from, ref)
		if err != nil {
			return models.RangeSummary{}, err
		}
		streak, err := streakFrom(inRange, ref)
		if err != nil {
			return models.RangeSummary{}, err
		}
		summary.Habits = append(summary.Habits, models.HabitStat{
			ID:              h.ID,
			Name:            h.Name,
			Color:           h.Color,
			CompletionCount: count,
			CompletionRate:  float64(count) / float64(days),
			CurrentStreak:   streak,
		})
		total += count
		if streak > summary.BestStreak {
			summary.BestStreak = streak
		}
	}
	if len(habits) > 0 {
		summary.CompletionPercent = math.Min(100, float64(total)/float64(len(habits)*days)*100)
	}

	moods, err := e.r.ListMoods(ctx, from, to)
	if err != nil {
		return models.RangeSummary{}, err
	}
	if len(moods) > 0 {
		sum := 0
		for _, m := range moods {
			sum += m.Mood
		}
		avg := round2(float64(sum) / float64(len(moods)))
		summary.AvgMood = &avg
	}
	return summary, nil
}

// MoodSeries returns one point per day of [from, to]; days without an entry
// have mood 0.
func (e *Engine) MoodSeries(ctx context.Context, from, to string) ([]models.MoodPoint, error) {
	if _, err := checkRange(from, to); err != nil {
		return nil, err
	}
	entries, err := e.r.ListMoods(ctx, from, to)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]int, len(entries))
	for _, m := range entries {
		byDate[m.Date] = m.Mood
	}

	days, err := utils.DateRange(from, to)
	if err != nil {
		return nil, err
	}
	points := make([]models.MoodPoint, len(days))
	for i, d := range days {
		points[i] = models.MoodPoint{Date: d, Mood: byDate[d]}
	}
	return points, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
