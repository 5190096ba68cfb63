// Package syncserver applies batches of client operations idempotently.
//
// Operations run one at a time in submission order. Each is checked against
// the user's ledger, decoded and validated, then applied in its own
// transaction together with its ledger entry. A failing operation is
// reported and the batch carries on.
package syncserver

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/julianstephens/habitsync/internal/errors"
	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/serverstore"
)

// errAlreadyApplied aborts the transaction of an op that a concurrent request
// recorded first.
var errAlreadyApplied = errors.New("operation already applied")

type Applier struct {
	store *serverstore.Store
	now   func() time.Time
}

func NewApplier(store *serverstore.Store) *Applier {
	return &Applier{store: store, now: time.Now}
}

// Apply classifies every op as applied, skipped or failed.
func (a *Applier) Apply(ctx context.Context, userID string, ops []models.SyncOp) models.SyncResponse {
	resp := models.NewSyncResponse()
	for _, op := range ops {
		skipped, err := a.applyOne(ctx, userID, op)
		switch {
		case err != nil:
			code := apperrors.GetCode(err)
			message := err.Error()
			var coded *apperrors.CodedError
			if errors.As(err, &coded) {
				message = coded.Message
			}
			if code == "" {
				code = apperrors.CodeApplyFailed
			}
			resp.Failed = append(resp.Failed, models.FailedOp{OpID: op.ID, Code: code, Message: message})
			logger.Debug("Operation failed", "user", userID, "op", op.ID, "type", op.Type, "code", code, "error", err)
		case skipped:
			resp.Skipped = append(resp.Skipped, op.ID)
		default:
			resp.Applied = append(resp.Applied, op.ID)
		}
	}
	logger.Info("Applied sync batch", "user", userID, "ops", len(ops),
		"applied", len(resp.Applied), "skipped", len(resp.Skipped), "failed", len(resp.Failed))
	return resp
}

func (a *Applier) applyOne(ctx context.Context, userID string, op models.SyncOp) (skipped bool, err error) {
	seen, err := a.store.HasOp(ctx, userID, op.ID)
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeApplyFailed, err.Error(), err)
	}
	if seen {
		return true, nil
	}

	payload, err := models.DecodePayload(op.Type, op.Payload)
	if errors.Is(err, models.ErrUnknownOpType) {
		return false, apperrors.New(apperrors.CodeUnknownOpType, fmt.Sprintf("Unknown op type: %s", op.Type))
	}
	if err != nil {
		return false, apperrors.Wrap(apperrors.CodeInvalidPayload, err.Error(), err)
	}

	err = a.store.WithTx(ctx, func(q *serverstore.Queries) error {
		if err := a.effect(ctx, q, userID, payload); err != nil {
			return err
		}
		inserted, err := q.RecordOp(ctx, userID, op.ID, op.Type, a.now().UTC())
		if err != nil {
			return err
		}
		if !inserted {
			return errAlreadyApplied
		}
		return nil
	})
	if errors.Is(err, errAlreadyApplied) {
		return true, nil
	}
	return false, err
}

// effect performs the domain change of one validated payload.
func (a *Applier) effect(ctx context.Context, q *serverstore.Queries, userID string, payload models.Payload) error {
	now := a.now().UTC()
	switch p := payload.(type) {
	case models.CompletionSetPayload:
		if err := requireHabit(ctx, q, userID, p.HabitID); err != nil {
			return err
		}
		return q.SetCompletion(ctx, userID, p.HabitID, p.Date, p.IsDone(), now)

	case models.MoodSetPayload:
		return q.UpsertMood(ctx, userID, p.Date, *p.Mood, p.Notes, now)

	case models.HabitCreatePayload:
		existing, err := q.LookupHabit(ctx, p.ClientHabitID)
		if err == nil {
			if existing.UserID != userID {
				return apperrors.New(apperrors.CodeApplyFailed, fmt.Sprintf("Habit id %s is already in use", p.ClientHabitID))
			}
			// Replayed create under a new op id: nothing to do.
			return nil
		}
		if !errors.Is(err, serverstore.ErrNotFound) {
			return err
		}
		return q.InsertHabit(ctx, userID, models.Habit{
			ID:        p.ClientHabitID,
			Name:      p.Name,
			Color:     p.Color,
			CreatedAt: now,
			UpdatedAt: now,
		})

	case models.HabitUpdatePayload:
		if err := requireHabit(ctx, q, userID, p.HabitID); err != nil {
			return err
		}
		patch := p.Patch()
		if patch.Empty() {
			return nil
		}
		return q.UpdateHabit(ctx, userID, p.HabitID, patch, now)
	}
	return apperrors.New(apperrors.CodeUnknownOpType, fmt.Sprintf("Unknown op type: %s", payload.OpType()))
}

func requireHabit(ctx context.Context, q *serverstore.Queries, userID, habitID string) error {
	_, err := q.GetHabit(ctx, userID, habitID)
	if errors.Is(err, serverstore.ErrNotFound) {
		return apperrors.New(apperrors.CodeHabitNotFound, fmt.Sprintf("Habit %s not found", habitID))
	}
	return err
}
