package serverstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/utils"
)

// SetCompletion creates (done) or deletes the completion row. Both
// directions are idempotent.
func (q *Queries) SetCompletion(ctx context.Context, userID, habitID, date string, done bool, now time.Time) error {
	var err error
	if done {
		_, err = q.exec(ctx, q.sb.Insert("habit_completions").
			Columns("user_id", "habit_id", "date", "created_at").
			Values(userID, habitID, date, utils.FormatTimestamp(now)).
			Suffix("ON CONFLICT (user_id, habit_id, date) DO NOTHING"))
	} else {
		_, err = q.exec(ctx, q.sb.Delete("habit_completions").
			Where(sq.Eq{"user_id": userID, "habit_id": habitID, "date": date}))
	}
	if err != nil {
		return fmt.Errorf("failed to set completion for habit %s on %s: %w", habitID, date, err)
	}
	return nil
}

func completionRange(userID, habitID, from, to string) sq.And {
	return sq.And{
		sq.Eq{"user_id": userID, "habit_id": habitID},
		sq.GtOrEq{"date": from},
		sq.LtOrEq{"date": to},
	}
}

// CompletedHabitIDs lists the habits the user completed on date.
func (q *Queries) CompletedHabitIDs(ctx context.Context, userID, date string) ([]string, error) {
	rows, err := q.query(ctx, q.sb.Select("habit_id").From("habit_completions").
		Where(sq.Eq{"user_id": userID, "date": date}).OrderBy("habit_id"))
	if err != nil {
		return nil, fmt.Errorf("failed to list completions for %s: %w", date, err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CompletionDates lists completed dates in [from, to], oldest first. An
// empty from leaves the range open at the start.
func (q *Queries) CompletionDates(ctx context.Context, userID, habitID, from, to string) ([]string, error) {
	rows, err := q.query(ctx, q.sb.Select("date").From("habit_completions").
		Where(completionRange(userID, habitID, from, to)).OrderBy("date"))
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

func (q *Queries) CountCompletions(ctx context.Context, userID, habitID, from, to string) (int, error) {
	row, err := q.queryRow(ctx, q.sb.Select("COUNT(*)").From("habit_completions").
		Where(completionRange(userID, habitID, from, to)))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return n, nil
}

// UpsertMood overwrites the user's mood entry for date.
func (q *Queries) UpsertMood(ctx context.Context, userID, date string, mood int, notes *string, now time.Time) error {
	ts := utils.FormatTimestamp(now)
	_, err := q.exec(ctx, q.sb.Insert("mood_entries").
		Columns("user_id", "date", "mood", "notes", "created_at", "updated_at").
		Values(userID, date, mood, nullString(notes), ts, ts).
		Suffix("ON CONFLICT (user_id, date) DO UPDATE SET mood = excluded.mood, notes = excluded.notes, updated_at = excluded.updated_at"))
	if err != nil {
		return fmt.Errorf("failed to save mood for %s: %w", date, err)
	}
	return nil
}

var moodColumns = []string{"date", "mood", "notes", "created_at", "updated_at"}

func scanMood(row scanner) (models.MoodEntry, error) {
	var m models.MoodEntry
	var notes sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&m.Date, &m.Mood, &notes, &createdAt, &updatedAt); err != nil {
		return models.MoodEntry{}, err
	}
	if notes.Valid {
		n := notes.String
		m.Notes = &n
	}
	var err error
	if m.CreatedAt, err = utils.ParseTimestamp(createdAt); err != nil {
		return models.MoodEntry{}, err
	}
	if m.UpdatedAt, err = utils.ParseTimestamp(updatedAt); err != nil {
		return models.MoodEntry{}, err
	}
	return m, nil
}

// GetMood returns the user's entry for date.
func (q *Queries) GetMood(ctx context.Context, userID, date string) (models.MoodEntry, error) {
	row, err := q.queryRow(ctx, q.sb.Select(moodColumns...).From("mood_entries").
		Where(sq.Eq{"user_id": userID, "date": date}))
	if err != nil {
		return models.MoodEntry{}, err
	}
	m, err := scanMood(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MoodEntry{}, fmt.Errorf("mood for %s: %w", date, ErrNotFound)
	}
	return m, err
}

// UpdateMoodNotes replaces the notes of an existing entry and reports whether
// one existed.
func (q *Queries) UpdateMoodNotes(ctx context.Context, userID, date string, notes *string, now time.Time) (bool, error) {
	res, err := q.exec(ctx, q.sb.Update("mood_entries").
		Set("notes", nullString(notes)).
		Set("updated_at", utils.FormatTimestamp(now)).
		Where(sq.Eq{"user_id": userID, "date": date}))
	if err != nil {
		return false, fmt.Errorf("failed to update notes for %s: %w", date, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListMoods returns the user's entries in [from, to], oldest first.
func (q *Queries) ListMoods(ctx context.Context, userID, from, to string) ([]models.MoodEntry, error) {
	rows, err := q.query(ctx, q.sb.Select(moodColumns...).
		From("mood_entries").
		Where(sq.And{sq.Eq{"user_id": userID}, sq.GtOrEq{"date": from}, sq.LtOrEq{"date": to}}).
		OrderBy("date"))
	if err != nil {
		return nil, fmt.Errorf("failed to list moods: %w", err)
	}
	defer rows.Close()

	entries := []models.MoodEntry{}
	for rows.Next() {
		m, err := scanMood(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, m)
	}
	return entries, rows.Err()
}
