package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const subscriptionColumns = `id, user_id, plan, status, pending_plan, billing_key, customer_key,
       current_period_start, current_period_end, version, created_at, updated_at`

func scanSubscription(row interface{ Scan(...interface{}) error }) (Subscription, error) {
	var i Subscription
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Plan,
		&i.Status,
		&i.PendingPlan,
		&i.BillingKey,
		&i.CustomerKey,
		&i.CurrentPeriodStart,
		&i.CurrentPeriodEnd,
		&i.Version,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getSubscriptionByUserID = `-- name: GetSubscriptionByUserID :one
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE user_id = $1`

func (q *Queries) GetSubscriptionByUserID(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	row := q.db.QueryRowContext(ctx, getSubscriptionByUserID, userID)
	return scanSubscription(row)
}

// getSubscriptionByUserIDForUpdate holds the row lock until the surrounding
// transaction ends, so the versioned update that follows cannot lose.
const getSubscriptionByUserIDForUpdate = `-- name: GetSubscriptionByUserIDForUpdate :one
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE user_id = $1
FOR UPDATE`

func (q *Queries) GetSubscriptionByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (Subscription, error) {
	row := q.db.QueryRowContext(ctx, getSubscriptionByUserIDForUpdate, userID)
	return scanSubscription(row)
}

const createSubscription = `-- name: CreateSubscription :one
INSERT INTO subscriptions (
    user_id, plan, status, billing_key, customer_key, current_period_start, current_period_end
) VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + subscriptionColumns

type CreateSubscriptionParams struct {
	UserID             uuid.UUID      `json:"user_id"`
	Plan               string         `json:"plan"`
	Status             string         `json:"status"`
	BillingKey         sql.NullString `json:"billing_key"`
	CustomerKey        sql.NullString `json:"customer_key"`
	CurrentPeriodStart sql.NullTime   `json:"current_period_start"`
	CurrentPeriodEnd   sql.NullTime   `json:"current_period_end"`
}

func (q *Queries) CreateSubscription(ctx context.Context, arg CreateSubscriptionParams) (Subscription, error) {
	row := q.db.QueryRowContext(ctx, createSubscription,
		arg.UserID,
		arg.Plan,
		arg.Status,
		arg.BillingKey,
		arg.CustomerKey,
		arg.CurrentPeriodStart,
		arg.CurrentPeriodEnd,
	)
	return scanSubscription(row)
}

// updateSubscription replaces every mutable column, guarded by the version the
// caller read. Zero affected rows means another writer got there first.
const updateSubscription = `-- name: UpdateSubscription :execrows
UPDATE subscriptions
SET plan = $3,
    status = $4,
    pending_plan = $5,
    billing_key = $6,
    customer_key = $7,
    current_period_start = $8,
    current_period_end = $9,
    version = version + 1,
    updated_at = NOW()
WHERE user_id = $1 AND version = $2`

type UpdateSubscriptionParams struct {
	UserID             uuid.UUID      `json:"user_id"`
	Version            int32          `json:"version"`
	Plan               string         `json:"plan"`
	Status             string         `json:"status"`
	PendingPlan        sql.NullString `json:"pending_plan"`
	BillingKey         sql.NullString `json:"billing_key"`
	CustomerKey        sql.NullString `json:"customer_key"`
	CurrentPeriodStart sql.NullTime   `json:"current_period_start"`
	CurrentPeriodEnd   sql.NullTime   `json:"current_period_end"`
}

func (q *Queries) UpdateSubscription(ctx context.Context, arg UpdateSubscriptionParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateSubscription,
		arg.UserID,
		arg.Version,
		arg.Plan,
		arg.Status,
		arg.PendingPlan,
		arg.BillingKey,
		arg.CustomerKey,
		arg.CurrentPeriodStart,
		arg.CurrentPeriodEnd,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listDueSubscriptions = `-- name: ListDueSubscriptions :many
SELECT ` + subscriptionColumns + `
FROM subscriptions
WHERE billing_key IS NOT NULL
  AND status = 'active'
  AND current_period_end <= $1
ORDER BY current_period_end
LIMIT $2`

type ListDueSubscriptionsParams struct {
	AsOf  time.Time `json:"as_of"`
	Limit int32     `json:"limit"`
}

func (q *Queries) ListDueSubscriptions(ctx context.Context, arg ListDueSubscriptionsParams) ([]Subscription, error) {
	rows, err := q.db.QueryContext(ctx, listDueSubscriptions, arg.AsOf, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Subscription
	for rows.Next() {
		i, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
