package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/utils"
)

const habitColumns = "id, name, color, is_archived, created_at, updated_at"

func scanHabit(row scanner) (models.Habit, error) {
	var h models.Habit
	var color, updatedAt sql.NullString
	var createdAt string

	if err := row.Scan(&h.ID, &h.Name, &color, &h.IsArchived, &createdAt, &updatedAt); err != nil {
		return models.Habit{}, err
	}
	h.Color = stringPtr(color)

	var err error
	if h.CreatedAt, err = utils.ParseTimestamp(createdAt); err != nil {
		return models.Habit{}, fmt.Errorf("failed to parse created_at for habit %s: %w", h.ID, err)
	}
	// A NULL updated_at reads as the zero time, which loses every LWW
	// comparison against a dated server copy.
	ts, err := timePtr(updatedAt, "updated_at")
	if err != nil {
		return models.Habit{}, err
	}
	if ts != nil {
		h.UpdatedAt = *ts
	}
	return h, nil
}

func (q *Queries) InsertHabit(ctx context.Context, h models.Habit) error {
	var updatedAt sql.NullString
	if !h.UpdatedAt.IsZero() {
		updatedAt = sql.NullString{String: utils.FormatTimestamp(h.UpdatedAt), Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO habits (id, name, color, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		h.ID, h.Name, nullString(h.Color), h.IsArchived, utils.FormatTimestamp(h.CreatedAt), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert habit %s: %w", h.ID, err)
	}
	return nil
}

// UpsertHabit writes every field of h, replacing an existing row with the
// same id. The created_at of an existing row is kept.
func (q *Queries) UpsertHabit(ctx context.Context, h models.Habit) error {
	var updatedAt sql.NullString
	if !h.UpdatedAt.IsZero() {
		updatedAt = sql.NullString{String: utils.FormatTimestamp(h.UpdatedAt), Valid: true}
	}
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO habits (id, name, color, is_archived, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			color = excluded.color,
			is_archived = excluded.is_archived,
			updated_at = excluded.updated_at`,
		h.ID, h.Name, nullString(h.Color), h.IsArchived, utils.FormatTimestamp(h.CreatedAt), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert habit %s: %w", h.ID, err)
	}
	return nil
}

func (q *Queries) GetHabit(ctx context.Context, id string) (models.Habit, error) {
	row := q.db.QueryRowContext(ctx, "SELECT "+habitColumns+" FROM habits WHERE id = ?", id)
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return h, err
}

// FindHabit resolves ref as a habit id, falling back to a case-insensitive
// name match.
func (q *Queries) FindHabit(ctx context.Context, ref string) (models.Habit, error) {
	h, err := q.GetHabit(ctx, ref)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return h, err
	}

	row := q.db.QueryRowContext(ctx,
		"SELECT "+habitColumns+" FROM habits WHERE name = ? COLLATE NOCASE ORDER BY is_archived, created_at LIMIT 1",
		strings.TrimSpace(ref))
	h, err = scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Habit{}, fmt.Errorf("habit %q: %w", ref, ErrNotFound)
	}
	return h, err
}

// ListHabits returns habits ordered by creation time.
func (q *Queries) ListHabits(ctx context.Context, includeArchived bool) ([]models.Habit, error) {
	query := "SELECT " + habitColumns + " FROM habits"
	if !includeArchived {
		query += " WHERE is_archived = 0"
	}
	query += " ORDER BY created_at, id"

	rows, err := q.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	habits := []models.Habit{}
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, err
		}
		habits = append(habits, h)
	}
	return habits, rows.Err()
}

// UpdateHabitFields applies the present fields of patch and stamps
// updated_at.
func (q *Queries) UpdateHabitFields(ctx context.Context, id string, patch models.HabitPatch, updatedAt time.Time) error {
	update := sq.Update("habits").
		Set("updated_at", utils.FormatTimestamp(updatedAt)).
		Where(sq.Eq{"id": id})
	if patch.Name != nil {
		update = update.Set("name", *patch.Name)
	}
	if patch.Color != nil {
		update = update.Set("color", *patch.Color)
	}
	if patch.IsArchived != nil {
		update = update.Set("is_archived", *patch.IsArchived)
	}

	query, args, err := update.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build habit update: %w", err)
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update habit %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return nil
}
