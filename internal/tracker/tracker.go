// Package tracker performs local mutations. Each one writes the local entity
// and enqueues the matching sync operation in a single transaction, so the
// outbox never misses a change and never carries one that did not happen.
package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/outbox"
	"github.com/julianstephens/habitsync/internal/storage"
)

type Tracker struct {
	store *storage.Store
	queue *outbox.Queue
	now   func() time.Time
}

func New(store *storage.Store, queue *outbox.Queue) *Tracker {
	return &Tracker{store: store, queue: queue, now: time.Now}
}

// CreateHabit creates a habit under a fresh client-side id.
func (t *Tracker) CreateHabit(ctx context.Context, name string, color *string) (models.Habit, error) {
	name = strings.TrimSpace(name)
	payload := models.HabitCreatePayload{ClientHabitID: uuid.NewString(), Name: name, Color: color}
	if err := payload.Validate(); err != nil {
		return models.Habit{}, err
	}

	now := t.now().UTC()
	habit := models.Habit{
		ID:        payload.ClientHabitID,
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := t.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.InsertHabit(ctx, habit); err != nil {
			return err
		}
		_, err := t.queue.Enqueue(ctx, q, payload)
		return err
	})
	if err != nil {
		return models.Habit{}, err
	}
	logger.Info("Created habit", "id", habit.ID, "name", habit.Name)
	return habit, nil
}

// UpdateHabit applies a partial update to an existing habit and bumps its
// updatedAt.
func (t *Tracker) UpdateHabit(ctx context.Context, id string, patch models.HabitPatch) (models.Habit, error) {
	if patch.Empty() {
		return models.Habit{}, fmt.Errorf("nothing to update")
	}
	if patch.Name != nil {
		trimmed := strings.TrimSpace(*patch.Name)
		patch.Name = &trimmed
	}
	payload := models.HabitUpdatePayload{HabitID: id, Name: patch.Name, Color: patch.Color, IsArchived: patch.IsArchived}
	if err := payload.Validate(); err != nil {
		return models.Habit{}, err
	}

	var habit models.Habit
	err := t.store.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if habit, err = q.GetHabit(ctx, id); err != nil {
			return err
		}
		now := t.now().UTC()
		if err := q.UpdateHabitFields(ctx, id, patch, now); err != nil {
			return err
		}
		patch.Apply(&habit)
		habit.UpdatedAt = now
		_, err = t.queue.Enqueue(ctx, q, payload)
		return err
	})
	if err != nil {
		return models.Habit{}, err
	}
	logger.Info("Updated habit", "id", id)
	return habit, nil
}

// ArchiveHabit sets or clears the archived flag.
func (t *Tracker) ArchiveHabit(ctx context.Context, id string, archived bool) (models.Habit, error) {
	return t.UpdateHabit(ctx, id, models.HabitPatch{IsArchived: &archived})
}

// SetCompletion marks or unmarks a habit for date.
func (t *Tracker) SetCompletion(ctx context.Context, habitID, date string, done bool) error {
	payload := models.CompletionSetPayload{Date: date, HabitID: habitID, Done: &done}
	if err := payload.Validate(); err != nil {
		return err
	}

	return t.store.WithTx(ctx, func(q *storage.Queries) error {
		if _, err := q.GetHabit(ctx, habitID); err != nil {
			return err
		}
		if err := q.SetCompletion(ctx, habitID, date, done, t.now().UTC()); err != nil {
			return err
		}
		_, err := t.queue.Enqueue(ctx, q, payload)
		return err
	})
}

// SetMood records the mood for date, replacing any earlier entry.
func (t *Tracker) SetMood(ctx context.Context, date string, mood int, notes *string) error {
	payload := models.MoodSetPayload{Date: date, Mood: &mood, Notes: notes}
	if err := payload.Validate(); err != nil {
		return err
	}

	return t.store.WithTx(ctx, func(q *storage.Queries) error {
		if err := q.UpsertMood(ctx, date, mood, notes, t.now().UTC()); err != nil {
			return err
		}
		_, err := t.queue.Enqueue(ctx, q, payload)
		return err
	})
}
