package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"
)

const paymentLogColumns = `id, user_id, order_id, amount, currency, status, plan, method, transaction_id,
       description, failure_reason, metadata, paid_at, created_at, updated_at`

func scanPaymentLog(row interface{ Scan(...interface{}) error }) (PaymentLog, error) {
	var i PaymentLog
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.OrderID,
		&i.Amount,
		&i.Currency,
		&i.Status,
		&i.Plan,
		&i.Method,
		&i.TransactionID,
		&i.Description,
		&i.FailureReason,
		&i.Metadata,
		&i.PaidAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPaymentLog = `-- name: CreatePaymentLog :one
INSERT INTO payment_logs (
    user_id, order_id, amount, currency, status, plan, method,
    transaction_id, description, failure_reason, metadata, paid_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
RETURNING ` + paymentLogColumns

type CreatePaymentLogParams struct {
	UserID        uuid.UUID             `json:"user_id"`
	OrderID       string                `json:"order_id"`
	Amount        int64                 `json:"amount"`
	Currency      string                `json:"currency"`
	Status        string                `json:"status"`
	Plan          string                `json:"plan"`
	Method        string                `json:"method"`
	TransactionID sql.NullString        `json:"transaction_id"`
	Description   string                `json:"description"`
	FailureReason sql.NullString        `json:"failure_reason"`
	Metadata      pqtype.NullRawMessage `json:"metadata"`
	PaidAt        sql.NullTime          `json:"paid_at"`
}

func (q *Queries) CreatePaymentLog(ctx context.Context, arg CreatePaymentLogParams) (PaymentLog, error) {
	row := q.db.QueryRowContext(ctx, createPaymentLog,
		arg.UserID,
		arg.OrderID,
		arg.Amount,
		arg.Currency,
		arg.Status,
		arg.Plan,
		arg.Method,
		arg.TransactionID,
		arg.Description,
		arg.FailureReason,
		arg.Metadata,
		arg.PaidAt,
	)
	return scanPaymentLog(row)
}

const getPaymentLogByOrderID = `-- name: GetPaymentLogByOrderID :one
SELECT ` + paymentLogColumns + ` FROM payment_logs WHERE order_id = $1`

func (q *Queries) GetPaymentLogByOrderID(ctx context.Context, orderID string) (PaymentLog, error) {
	row := q.db.QueryRowContext(ctx, getPaymentLogByOrderID, orderID)
	return scanPaymentLog(row)
}

// updatePaymentLogStatus moves a log out of from_status only, so replayed
// webhooks are no-ops.
const updatePaymentLogStatus = `-- name: UpdatePaymentLogStatus :execrows
UPDATE payment_logs
SET status = $3,
    transaction_id = COALESCE($4, transaction_id),
    method = COALESCE(NULLIF($5, ''), method),
    failure_reason = $6,
    metadata = COALESCE($7, metadata),
    paid_at = COALESCE($8, paid_at),
    updated_at = NOW()
WHERE order_id = $1 AND status = $2`

type UpdatePaymentLogStatusParams struct {
	OrderID       string                `json:"order_id"`
	FromStatus    string                `json:"from_status"`
	Status        string                `json:"status"`
	TransactionID sql.NullString        `json:"transaction_id"`
	Method        string                `json:"method"`
	FailureReason sql.NullString        `json:"failure_reason"`
	Metadata      pqtype.NullRawMessage `json:"metadata"`
	PaidAt        sql.NullTime          `json:"paid_at"`
}

func (q *Queries) UpdatePaymentLogStatus(ctx context.Context, arg UpdatePaymentLogStatusParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updatePaymentLogStatus,
		arg.OrderID,
		arg.FromStatus,
		arg.Status,
		arg.TransactionID,
		arg.Method,
		arg.FailureReason,
		arg.Metadata,
		arg.PaidAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listPaymentLogsByUser = `-- name: ListPaymentLogsByUser :many
SELECT ` + paymentLogColumns + `
FROM payment_logs
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListPaymentLogsByUserParams struct {
	UserID uuid.UUID `json:"user_id"`
	Limit  int32     `json:"limit"`
	Offset int32     `json:"offset"`
}

func (q *Queries) ListPaymentLogsByUser(ctx context.Context, arg ListPaymentLogsByUserParams) ([]PaymentLog, error) {
	rows, err := q.db.QueryContext(ctx, listPaymentLogsByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PaymentLog
	for rows.Next() {
		i, err := scanPaymentLog(rows)
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
