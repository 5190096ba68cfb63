package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/julianstephens/habitsync/internal/analytics"
	apperrors "github.com/julianstephens/habitsync/internal/errors"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/serverstore"
	"github.com/julianstephens/habitsync/internal/syncserver"
	"github.com/julianstephens/habitsync/internal/utils"
)

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	ops, err := syncserver.ParseRequest(body, s.cfg.MaxBatchOps)
	if err != nil {
		var verr *syncserver.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, apperrors.CodeValidation, verr.Message, verr.Details)
			return
		}
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.applier.Apply(r.Context(), UserID(r.Context()), ops))
}

type habitResponse struct {
	Habit models.RemoteHabit `json:"habit"`
}

func (s *Server) handleListHabits(w http.ResponseWriter, r *http.Request) {
	includeArchived := false
	if v := r.URL.Query().Get("includeArchived"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, apperrors.CodeValidation, "includeArchived must be a boolean", nil)
			return
		}
		includeArchived = b
	}

	habits, err := s.store.ListHabits(r.Context(), UserID(r.Context()), includeArchived)
	if err != nil {
		writeInternal(w, err)
		return
	}
	list := models.HabitList{Habits: make([]models.RemoteHabit, 0, len(habits))}
	for _, h := range habits {
		list.Habits = append(list.Habits, h.Remote())
	}
	writeJSON(w, http.StatusOK, list)
}

type createHabitRequest struct {
	Name  string  `json:"name"`
	Color *string `json:"color"`
}

func (s *Server) handleCreateHabit(w http.ResponseWriter, r *http.Request) {
	var req createHabitRequest
	if !decodeBody(w, r, &req) {
		return
	}
	req.Name = strings.TrimSpace(req.Name)

	payload := models.HabitCreatePayload{ClientHabitID: uuid.New().String(), Name: req.Name, Color: req.Color}
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.CodeValidation, err.Error(), nil)
		return
	}

	now := s.now().UTC()
	habit := models.Habit{
		ID:        payload.ClientHabitID,
		Name:      payload.Name,
		Color:     payload.Color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.InsertHabit(r.Context(), UserID(r.Context()), habit); err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, habitResponse{Habit: habit.Remote()})
}

func (s *Server) handleUpdateHabit(w http.ResponseWriter, r *http.Request) {
	var patch models.HabitPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		patch.Name = &name
	}
	payload := models.HabitUpdatePayload{
		HabitID:    r.PathValue("id"),
		Name:       patch.Name,
		Color:      patch.Color,
		IsArchived: patch.IsArchived,
	}
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.CodeValidation, err.Error(), nil)
		return
	}
	s.patchHabit(w, r, payload.HabitID, patch)
}

// handleArchiveHabit archives the habit. Habits are never hard-deleted.
func (s *Server) handleArchiveHabit(w http.ResponseWriter, r *http.Request) {
	archived := true
	s.patchHabit(w, r, r.PathValue("id"), models.HabitPatch{IsArchived: &archived})
}

func (s *Server) patchHabit(w http.ResponseWriter, r *http.Request, id string, patch models.HabitPatch) {
	ctx := r.Context()
	userID := UserID(ctx)

	var habit models.Habit
	err := s.store.WithTx(ctx, func(q *serverstore.Queries) error {
		if !patch.Empty() {
			if err := q.UpdateHabit(ctx, userID, id, patch, s.now().UTC()); err != nil {
				return err
			}
		}
		var err error
		habit, err = q.GetHabit(ctx, userID, id)
		return err
	})
	if errors.Is(err, serverstore.ErrNotFound) {
		writeError(w, http.StatusNotFound, apperrors.CodeNotFound, "habit not found", nil)
		return
	}
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, habitResponse{Habit: habit.Remote()})
}

// handleSaveCheckin records a day's mood and completions outside the sync
// path. A mood without notes keeps the stored notes; notes without a mood
// only touch an existing entry.
func (s *Server) handleSaveCheckin(w http.ResponseWriter, r *http.Request) {
	var req models.CheckinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, apperrors.CodeValidation, err.Error(), nil)
		return
	}

	ctx := r.Context()
	userID := UserID(ctx)
	now := s.now().UTC()

	var checkin models.Checkin
	err := s.store.WithTx(ctx, func(q *serverstore.Queries) error {
		switch {
		case req.Mood != nil:
			notes := req.Notes
			if notes == nil {
				existing, err := q.GetMood(ctx, userID, req.Date)
				if err != nil && !errors.Is(err, serverstore.ErrNotFound) {
					return err
				}
				notes = existing.Notes
			}
			if err := q.UpsertMood(ctx, userID, req.Date, *req.Mood, notes, now); err != nil {
				return err
			}
		case req.Notes != nil:
			if _, err := q.UpdateMoodNotes(ctx, userID, req.Date, req.Notes, now); err != nil {
				return err
			}
		}

		for _, c := range req.Completions {
			if _, err := q.GetHabit(ctx, userID, c.HabitID); errors.Is(err, serverstore.ErrNotFound) {
				continue
			} else if err != nil {
				return err
			}
			if err := q.SetCompletion(ctx, userID, c.HabitID, req.Date, *c.Done, now); err != nil {
				return err
			}
		}

		var err error
		checkin, err = loadCheckin(ctx, q, userID, req.Date)
		return err
	})
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkin)
}

func (s *Server) handleGetCheckin(w http.ResponseWriter, r *http.Request) {
	date := r.PathValue("date")
	if !utils.ValidateDate(date) {
		writeError(w, http.StatusBadRequest, apperrors.CodeValidation, "date must be in YYYY-MM-DD format",
			map[string]string{"date": date})
		return
	}

	ctx := r.Context()
	var checkin models.Checkin
	err := s.store.WithTx(ctx, func(q *serverstore.Queries) error {
		var err error
		checkin, err = loadCheckin(ctx, q, UserID(ctx), date)
		return err
	})
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, checkin)
}

func loadCheckin(ctx context.Context, q *serverstore.Queries, userID, date string) (models.Checkin, error) {
	checkin := models.Checkin{Date: date, Completions: []models.CheckinCompletion{}}

	mood, err := q.GetMood(ctx, userID, date)
	switch {
	case err == nil:
		checkin.Mood = &mood.Mood
		checkin.Notes = mood.Notes
	case !errors.Is(err, serverstore.ErrNotFound):
		return models.Checkin{}, err
	}

	ids, err := q.CompletedHabitIDs(ctx, userID, date)
	if err != nil {
		return models.Checkin{}, err
	}
	done := true
	for _, id := range ids {
		checkin.Completions = append(checkin.Completions, models.CheckinCompletion{HabitID: id, Done: &done})
	}
	return checkin, nil
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if !utils.ValidateDate(from) || !utils.ValidateDate(to) {
		writeError(w, http.StatusBadRequest, apperrors.CodeValidation, "from and to must be dates in YYYY-MM-DD format",
			map[string]string{"from": from, "to": to})
		return
	}

	summary, err := analytics.NewEngine(s.store.ForUser(UserID(r.Context()))).RangeStats(r.Context(), from, to)
	if errors.Is(err, analytics.ErrInvalidRange) {
		writeError(w, http.StatusBadRequest, apperrors.CodeValidation, err.Error(), nil)
		return
	}
	if err != nil {
		writeInternal(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
