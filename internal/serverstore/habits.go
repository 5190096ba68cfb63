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

var habitColumns = []string{"id", "user_id", "name", "color", "is_archived", "created_at", "updated_at"}

// OwnedHabit is a habit with the id of the user that owns it.
type OwnedHabit struct {
	models.Habit
	UserID string
}

type scanner interface {
	Scan(dest ...any) error
}

func scanHabit(row scanner) (OwnedHabit, error) {
	var h OwnedHabit
	var color sql.NullString
	var createdAt, updatedAt string
	if err := row.Scan(&h.ID, &h.UserID, &h.Name, &color, &h.IsArchived, &createdAt, &updatedAt); err != nil {
		return OwnedHabit{}, err
	}
	if color.Valid {
		c := color.String
		h.Color = &c
	}

	var err error
	if h.CreatedAt, err = utils.ParseTimestamp(createdAt); err != nil {
		return OwnedHabit{}, fmt.Errorf("failed to parse created_at for habit %s: %w", h.ID, err)
	}
	if h.UpdatedAt, err = utils.ParseTimestamp(updatedAt); err != nil {
		return OwnedHabit{}, fmt.Errorf("failed to parse updated_at for habit %s: %w", h.ID, err)
	}
	return h, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// LookupHabit finds a habit by id regardless of owner.
func (q *Queries) LookupHabit(ctx context.Context, id string) (OwnedHabit, error) {
	row, err := q.queryRow(ctx, q.sb.Select(habitColumns...).From("habits").Where(sq.Eq{"id": id}))
	if err != nil {
		return OwnedHabit{}, err
	}
	h, err := scanHabit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return OwnedHabit{}, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return h, err
}

// GetHabit returns the user's habit. A habit owned by someone else is
// reported as not found.
func (q *Queries) GetHabit(ctx context.Context, userID, id string) (models.Habit, error) {
	h, err := q.LookupHabit(ctx, id)
	if err != nil {
		return models.Habit{}, err
	}
	if h.UserID != userID {
		return models.Habit{}, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return h.Habit, nil
}

func (q *Queries) InsertHabit(ctx context.Context, userID string, h models.Habit) error {
	_, err := q.exec(ctx, q.sb.Insert("habits").Columns(habitColumns...).Values(
		h.ID, userID, h.Name, nullString(h.Color), h.IsArchived,
		utils.FormatTimestamp(h.CreatedAt), utils.FormatTimestamp(h.UpdatedAt),
	))
	if err != nil {
		return fmt.Errorf("failed to insert habit %s: %w", h.ID, err)
	}
	return nil
}

// UpdateHabit applies the present fields of patch to the user's habit and
// stamps updated_at.
func (q *Queries) UpdateHabit(ctx context.Context, userID, id string, patch models.HabitPatch, now time.Time) error {
	update := q.sb.Update("habits").
		Set("updated_at", utils.FormatTimestamp(now)).
		Where(sq.Eq{"id": id, "user_id": userID})
	if patch.Name != nil {
		update = update.Set("name", *patch.Name)
	}
	if patch.Color != nil {
		update = update.Set("color", *patch.Color)
	}
	if patch.IsArchived != nil {
		update = update.Set("is_archived", *patch.IsArchived)
	}

	res, err := q.exec(ctx, update)
	if err != nil {
		return fmt.Errorf("failed to update habit %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListHabits returns the user's habits ordered by creation time.
func (q *Queries) ListHabits(ctx context.Context, userID string, includeArchived bool) ([]models.Habit, error) {
	where := sq.Eq{"user_id": userID}
	if !includeArchived {
		where["is_archived"] = false
	}
	rows, err := q.query(ctx, q.sb.Select(habitColumns...).From("habits").Where(where).OrderBy("created_at", "id"))
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
		habits = append(habits, h.Habit)
	}
	return habits, rows.Err()
}
