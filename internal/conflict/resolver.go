// Package conflict merges habits pulled from the server into the local store
// with whole-record last-writer-wins on updatedAt.
package conflict

import (
	"context"
	"errors"
	"time"

	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/storage"
)

// MergeReport counts what a merge did with each pulled habit.
type MergeReport struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
	Kept     int `json:"kept"`
}

type Resolver struct {
	store *storage.Store
	now   func() time.Time
}

func NewResolver(store *storage.Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// ServerWins reports whether a server copy stamped server replaces a local
// copy stamped local. Equal clocks keep the local copy.
func ServerWins(server *time.Time, local time.Time) bool {
	if server == nil {
		return false
	}
	return server.After(local)
}

// Merge applies the pulled habits in one transaction. A habit missing locally
// is inserted; an existing one is overwritten only when the server copy is
// strictly newer.
func (r *Resolver) Merge(ctx context.Context, remote []models.RemoteHabit) (MergeReport, error) {
	var report MergeReport
	err := r.store.WithTx(ctx, func(q *storage.Queries) error {
		report = MergeReport{}
		for _, rh := range remote {
			incoming := toHabit(rh, r.now().UTC())

			local, err := q.GetHabit(ctx, rh.ID)
			if errors.Is(err, storage.ErrNotFound) {
				if err := q.InsertHabit(ctx, incoming); err != nil {
					return err
				}
				report.Inserted++
				continue
			}
			if err != nil {
				return err
			}

			if !ServerWins(rh.UpdatedAt, local.UpdatedAt) {
				report.Kept++
				continue
			}
			if err := q.UpsertHabit(ctx, incoming); err != nil {
				return err
			}
			report.Updated++
		}
		return nil
	})
	if err != nil {
		return MergeReport{}, err
	}
	logger.Info("Merged pulled habits", "inserted", report.Inserted, "updated", report.Updated, "kept", report.Kept)
	return report, nil
}

func toHabit(rh models.RemoteHabit, now time.Time) models.Habit {
	h := models.Habit{
		ID:         rh.ID,
		Name:       rh.Name,
		Color:      rh.Color,
		IsArchived: rh.IsArchived,
		CreatedAt:  now,
	}
	if rh.CreatedAt != nil {
		h.CreatedAt = rh.CreatedAt.UTC()
	}
	if rh.UpdatedAt != nil {
		h.UpdatedAt = rh.UpdatedAt.UTC()
	}
	return h
}
