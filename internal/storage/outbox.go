package storage

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

const opColumns = "id, type, payload_json, created_at, attempts, last_error, next_attempt_at, dead_at"

func scanOp(row scanner) (models.Operation, error) {
	var op models.Operation
	var payload, createdAt string
	var lastError, nextAttemptAt, deadAt sql.NullString

	if err := row.Scan(&op.ID, &op.Type, &payload, &createdAt, &op.Attempts, &lastError, &nextAttemptAt, &deadAt); err != nil {
		return models.Operation{}, err
	}
	op.Payload = []byte(payload)
	op.LastError = stringPtr(lastError)

	var err error
	if op.CreatedAt, err = utils.ParseTimestamp(createdAt); err != nil {
		return models.Operation{}, fmt.Errorf("failed to parse created_at for op %s: %w", op.ID, err)
	}
	if op.NextAttemptAt, err = timePtr(nextAttemptAt, "next_attempt_at"); err != nil {
		return models.Operation{}, err
	}
	if op.DeadAt, err = timePtr(deadAt, "dead_at"); err != nil {
		return models.Operation{}, err
	}
	return op, nil
}

func (q *Queries) listOps(ctx context.Context, query string, args ...any) ([]models.Operation, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list outbox: %w", err)
	}
	defer rows.Close()

	ops := []models.Operation{}
	for rows.Next() {
		op, err := scanOp(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

func (q *Queries) InsertOp(ctx context.Context, op models.Operation) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO outbox (id, type, payload_json, created_at, attempts)
		VALUES (?, ?, ?, ?, ?)`,
		op.ID, string(op.Type), string(op.Payload), utils.FormatTimestamp(op.CreatedAt), op.Attempts)
	if err != nil {
		return fmt.Errorf("failed to insert op %s: %w", op.ID, err)
	}
	return nil
}

func (q *Queries) GetOp(ctx context.Context, id string) (models.Operation, error) {
	op, err := scanOp(q.db.QueryRowContext(ctx, "SELECT "+opColumns+" FROM outbox WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Operation{}, fmt.Errorf("op %s: %w", id, ErrNotFound)
	}
	return op, err
}

// SelectPending returns up to limit live operations that are due at now,
// oldest first. Ties on created_at keep insertion order.
func (q *Queries) SelectPending(ctx context.Context, now time.Time, limit int) ([]models.Operation, error) {
	return q.listOps(ctx, "SELECT "+opColumns+` FROM outbox
		WHERE dead_at IS NULL AND (next_attempt_at IS NULL OR next_attempt_at <= ?)
		ORDER BY created_at, seq
		LIMIT ?`, utils.FormatTimestamp(now), limit)
}

// ListOps returns every live operation, due or waiting, oldest first.
func (q *Queries) ListOps(ctx context.Context) ([]models.Operation, error) {
	return q.listOps(ctx, "SELECT "+opColumns+" FROM outbox WHERE dead_at IS NULL ORDER BY created_at, seq")
}

func (q *Queries) ListDeadOps(ctx context.Context) ([]models.Operation, error) {
	return q.listOps(ctx, "SELECT "+opColumns+" FROM outbox WHERE dead_at IS NOT NULL ORDER BY created_at, seq")
}

// DeleteOps removes the given operations and returns how many existed.
func (q *Queries) DeleteOps(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query, args, err := sq.Delete("outbox").Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build outbox delete: %w", err)
	}
	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete ops: %w", err)
	}
	return res.RowsAffected()
}

// RecordFailure stores the outcome of a failed attempt.
func (q *Queries) RecordFailure(ctx context.Context, id string, attempts int, lastError string, nextAttemptAt, deadAt *time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE outbox SET attempts = ?, last_error = ?, next_attempt_at = ?, dead_at = ?
		WHERE id = ?`,
		attempts, lastError, nullTime(nextAttemptAt), nullTime(deadAt), id)
	if err != nil {
		return fmt.Errorf("failed to record failure for op %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("op %s: %w", id, ErrNotFound)
	}
	return nil
}

// ResetOp makes an operation immediately due again with a fresh attempt
// count. last_error is kept for inspection.
func (q *Queries) ResetOp(ctx context.Context, id string) error {
	res, err := q.db.ExecContext(ctx,
		"UPDATE outbox SET attempts = 0, next_attempt_at = NULL, dead_at = NULL WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to reset op %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("op %s: %w", id, ErrNotFound)
	}
	return nil
}

// OutboxCounts splits the outbox into due, waiting (backing off) and dead
// operations as of now.
type OutboxCounts struct {
	Due     int `json:"due"`
	Waiting int `json:"waiting"`
	Dead    int `json:"dead"`
}

func (q *Queries) CountOps(ctx context.Context, now time.Time) (OutboxCounts, error) {
	var c OutboxCounts
	err := q.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN dead_at IS NULL AND (next_attempt_at IS NULL OR next_attempt_at <= ?) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN dead_at IS NULL AND next_attempt_at > ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN dead_at IS NOT NULL THEN 1 ELSE 0 END), 0)
		FROM outbox`, utils.FormatTimestamp(now), utils.FormatTimestamp(now)).Scan(&c.Due, &c.Waiting, &c.Dead)
	if err != nil {
		return OutboxCounts{}, fmt.Errorf("failed to count outbox: %w", err)
	}
	return c, nil
}
