package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/utils"
)

func scanMood(row scanner) (models.MoodEntry, error) {
	var m models.MoodEntry
	var notes sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&m.Date, &m.Mood, &notes, &createdAt, &updatedAt); err != nil {
		return models.MoodEntry{}, err
	}
	m.Notes = stringPtr(notes)

	var err error
	if m.CreatedAt, err = utils.ParseTimestamp(createdAt); err != nil {
		return models.MoodEntry{}, fmt.Errorf("failed to parse created_at for mood %s: %w", m.Date, err)
	}
	if m.UpdatedAt, err = utils.ParseTimestamp(updatedAt); err != nil {
		return models.MoodEntry{}, fmt.Errorf("failed to parse updated_at for mood %s: %w", m.Date, err)
	}
	return m, nil
}

// UpsertMood writes the mood entry for date, overwriting mood and notes.
func (q *Queries) UpsertMood(ctx context.Context, date string, mood int, notes *string, now time.Time) error {
	ts := utils.FormatTimestamp(now)
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO mood_entries (date, mood, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			mood = excluded.mood,
			notes = excluded.notes,
			updated_at = excluded.updated_at`,
		date, mood, nullString(notes), ts, ts)
	if err != nil {
		return fmt.Errorf("failed to save mood for %s: %w", date, err)
	}
	return nil
}

func (q *Queries) GetMood(ctx context.Context, date string) (models.MoodEntry, error) {
	row := q.db.QueryRowContext(ctx,
		"SELECT date, mood, notes, created_at, updated_at FROM mood_entries WHERE date = ?", date)
	m, err := scanMood(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.MoodEntry{}, fmt.Errorf("mood for %s: %w", date, ErrNotFound)
	}
	return m, err
}

// ListMoods returns the entries in [from, to], oldest first.
func (q *Queries) ListMoods(ctx context.Context, from, to string) ([]models.MoodEntry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT date, mood, notes, created_at, updated_at FROM mood_entries
		WHERE date >= ? AND date <= ? ORDER BY date`, from, to)
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
