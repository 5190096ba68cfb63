package serverstore

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/julianstephens/habitsync/internal/models"
	"github.com/julianstephens/habitsync/internal/utils"
)

// HasOp reports whether the user's operation is already in the ledger.
func (q *Queries) HasOp(ctx context.Context, userID, opID string) (bool, error) {
	row, err := q.queryRow(ctx, q.sb.Select("COUNT(*)").From("sync_ops").
		Where(sq.Eq{"user_id": userID, "op_id": opID}))
	if err != nil {
		return false, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check ledger: %w", err)
	}
	return n > 0, nil
}

// RecordOp adds the operation to the ledger. It returns false when the entry
// already existed, which means another request applied it first.
func (q *Queries) RecordOp(ctx context.Context, userID, opID string, opType models.OpType, appliedAt time.Time) (bool, error) {
	res, err := q.exec(ctx, q.sb.Insert("sync_ops").
		Columns("user_id", "op_id", "op_type", "applied_at").
		Values(userID, opID, string(opType), utils.FormatTimestamp(appliedAt)).
		Suffix("ON CONFLICT (user_id, op_id) DO NOTHING"))
	if err != nil {
		return false, fmt.Errorf("failed to record op %s: %w", opID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to record op %s: %w", opID, err)
	}
	return n == 1, nil
}

// CountOps returns the number of ledger entries for the user.
func (q *Queries) CountOps(ctx context.Context, userID string) (int, error) {
	row, err := q.queryRow(ctx, q.sb.Select("COUNT(*)").From("sync_ops").Where(sq.Eq{"user_id": userID}))
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger: %w", err)
	}
	return n, nil
}
