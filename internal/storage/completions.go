package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/julianstephens/habitsync/internal/utils"
)

// SetCompletion marks (done) or unmarks a habit for date. Marking an already
// completed day and unmarking an open day are both no-ops.
func (q *Queries) SetCompletion(ctx context.Context, habitID, date string, done bool, now time.Time) error {
	var err error
	if done {
		_, err = q.db.ExecContext(ctx, `
			INSERT INTO habit_completions (habit_id, date, created_at) VALUES (?, ?, ?)
			ON CONFLICT(habit_id, date) DO NOTHING`,
			habitID, date, utils.FormatTimestamp(now))
	} else {
		_, err = q.db.ExecContext(ctx,
			"DELETE FROM habit_completions WHERE habit_id = ? AND date = ?", habitID, date)
	}
	if err != nil {
		return fmt.Errorf("failed to set completion for habit %s on %s: %w", habitID, date, err)
	}
	return nil
}

func (q *Queries) HasCompletion(ctx context.Context, habitID, date string) (bool, error) {
	var n int
	err := q.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM habit_completions WHERE habit_id = ? AND date = ?", habitID, date).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check completion: %w", err)
	}
	return n > 0, nil
}

// CompletionDates lists the completed dates of a habit in [from, to], oldest
// first. An empty from leaves the range open at the start.
func (q *Queries) CompletionDates(ctx context.Context, habitID, from, to string) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT date FROM habit_completions
		WHERE habit_id = ? AND date >= ? AND date <= ?
		ORDER BY date`, habitID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions: %w", err)
	}
	defer rows.Close()

	dates := []string{}
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (q *Queries) CountCompletions(ctx context.Context, habitID, from, to string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM habit_completions
		WHERE habit_id = ? AND date >= ? AND date <= ?`, habitID, from, to).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return n, nil
}

// CompletedHabitIDs returns the ids of the habits completed on date.
func (q *Queries) CompletedHabitIDs(ctx context.Context, date string) (map[string]bool, error) {
	rows, err := q.db.QueryContext(ctx, "SELECT habit_id FROM habit_completions WHERE date = ?", date)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions for %s: %w", date, err)
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// CountOrphanCompletions counts completions whose habit no longer exists.
func (q *Queries) CountOrphanCompletions(ctx context.Context) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM habit_completions c
		LEFT JOIN habits h ON h.id = c.habit_id
		WHERE h.id IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count orphan completions: %w", err)
	}
	return n, nil
}
