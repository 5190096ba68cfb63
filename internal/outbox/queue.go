// Package outbox is the durable FIFO of operations waiting to be pushed to
// the sync server.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/habitsync/internal/logger"
	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/storage"
)

// Queue manages the outbox table of a local store.
type Queue struct {
	store  *storage.Store
	policy Policy
	now    func() time.Time
}

func NewQueue(store *storage.Store, policy Policy) *Queue {
	return &Queue{store: store, policy: policy, now: time.Now}
}

// Stats counts the outbox by state.
type Stats = storage.OutboxCounts

// Enqueue records a new pending operation through q, which may be a
// transaction's Queries so the op commits together with its local write.
func (qu *Queue) Enqueue(ctx context.Context, q *storage.Queries, payload models.Payload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload: %w", payload.OpType(), err)
	}
	op := models.Operation{
		ID:        uuid.NewString(),
		Type:      payload.OpType(),
		Payload:   raw,
		CreatedAt: qu.now().UTC(),
	}
	if q == nil {
		q = qu.store.Queries
	}
	if err := q.InsertOp(ctx, op); err != nil {
		return "", err
	}
	logger.Debug("Enqueued operation", "id", op.ID, "type", op.Type)
	return op.ID, nil
}

// Pending returns up to limit due operations, oldest first.
func (qu *Queue) Pending(ctx context.Context, limit int) ([]models.Operation, error) {
	return qu.store.SelectPending(ctx, qu.now().UTC(), limit)
}

// All returns every live operation including those backing off.
func (qu *Queue) All(ctx context.Context) ([]models.Operation, error) {
	return qu.store.ListOps(ctx)
}

// Ack removes acknowledged operations. Unknown ids are ignored.
func (qu *Queue) Ack(ctx context.Context, ids []string) error {
	n, err := qu.store.DeleteOps(ctx, ids)
	if err != nil {
		return err
	}
	logger.Debug("Acknowledged operations", "requested", len(ids), "removed", n)
	return nil
}

// Fail records a failed attempt. The op is rescheduled with backoff, or moved
// to the dead-letter list once the policy is exhausted. Unknown ids are
// ignored.
func (qu *Queue) Fail(ctx context.Context, id, errMsg string) error {
	return qu.store.WithTx(ctx, func(q *storage.Queries) error {
		op, err := q.GetOp(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return nil
			}
			return err
		}

		now := qu.now().UTC()
		attempts := op.Attempts + 1
		var next, dead *time.Time
		if qu.policy.Exhausted(attempts) {
			dead = &now
			logger.Warn("Operation moved to dead letters", "id", id, "type", op.Type, "attempts", attempts, "error", errMsg)
		} else if d := qu.policy.Delay(attempts); d > 0 {
			t := now.Add(d)
			next = &t
		}
		return q.RecordFailure(ctx, id, attempts, errMsg, next, dead)
	})
}

// DeadLetters lists operations that exhausted their attempts.
func (qu *Queue) DeadLetters(ctx context.Context) ([]models.Operation, error) {
	return qu.store.ListDeadOps(ctx)
}

// Requeue makes an operation (dead or waiting) due immediately with a fresh
// attempt budget.
func (qu *Queue) Requeue(ctx context.Context, id string) error {
	return qu.store.ResetOp(ctx, id)
}

// Discard drops an operation without sending it.
func (qu *Queue) Discard(ctx context.Context, id string) error {
	n, err := qu.store.DeleteOps(ctx, []string{id})
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("op %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (qu *Queue) Stats(ctx context.Context) (Stats, error) {
	return qu.store.CountOps(ctx, qu.now().UTC())
}
