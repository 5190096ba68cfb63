package serverstore

import (
	"context"

	"github.com/julianstephens/habitsync/internal/models"
)

// UserView is the read surface of one user's data, shaped for the analytics
// engine.
type UserView struct {
	q      *Queries
	userID string
}

// ForUser scopes reads to userID.
func (s *Store) ForUser(userID string) *UserView {
	return &UserView{q: s.Queries, userID: userID}
}

func (v *UserView) ListHabits(ctx context.Context, includeArchived bool) ([]models.Habit, error) {
	return v.q.ListHabits(ctx, v.userID, includeArchived)
}

func (v *UserView) CompletionDates(ctx context.Context, habitID, from, to string) ([]string, error) {
	return v.q.CompletionDates(ctx, v.userID, habitID, from, to)
}

func (v *UserView) CountCompletions(ctx context.Context, habitID, from, to string) (int, error) {
	return v.q.CountCompletions(ctx, v.userID, habitID, from, to)
}

func (v *UserView) ListMoods(ctx context.Context, from, to string) ([]models.MoodEntry, error) {
	return v.q.ListMoods(ctx, v.userID, from, to)
}
