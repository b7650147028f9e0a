package repository

import (
	"context"

	"github.com/google/uuid"
)

const getUsageCount = `-- name: GetUsageCount :one
SELECT COALESCE((
    SELECT count FROM usage_logs
    WHERE user_id = $1 AND year_month = $2 AND kind = $3
), 0)::int AS count`

type GetUsageCountParams struct {
	UserID    uuid.UUID `json:"user_id"`
	YearMonth string    `json:"year_month"`
	Kind      string    `json:"kind"`
}

func (q *Queries) GetUsageCount(ctx context.Context, arg GetUsageCountParams) (int32, error) {
	row := q.db.QueryRowContext(ctx, getUsageCount, arg.UserID, arg.YearMonth, arg.Kind)
	var count int32
	err := row.Scan(&count)
	return count, err
}

// incrementUsage is a single atomic upsert so concurrent increments never
// lose an update.
const incrementUsage = `-- name: IncrementUsage :one
INSERT INTO usage_logs (user_id, year_month, kind, count)
VALUES ($1, $2, $3, 1)
ON CONFLICT (user_id, year_month, kind)
DO UPDATE SET count = usage_logs.count + 1, updated_at = NOW()
RETURNING count`

type IncrementUsageParams struct {
	UserID    uuid.UUID `json:"user_id"`
	YearMonth string    `json:"year_month"`
	Kind      string    `json:"kind"`
}

func (q *Queries) IncrementUsage(ctx context.Context, arg IncrementUsageParams) (int32, error) {
	row := q.db.QueryRowContext(ctx, incrementUsage, arg.UserID, arg.YearMonth, arg.Kind)
	var count int32
	err := row.Scan(&count)
	return count, err
}
