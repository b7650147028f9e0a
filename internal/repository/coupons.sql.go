package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const couponColumns = `id, code, plan, duration_days, redeemed_by, redeemed_at, expires_at, created_by, created_at`

func scanCoupon(row interface{ Scan(...interface{}) error }) (Coupon, error) {
	var i Coupon
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.Plan,
		&i.DurationDays,
		&i.RedeemedBy,
		&i.RedeemedAt,
		&i.ExpiresAt,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createCoupon = `-- name: CreateCoupon :one
INSERT INTO coupons (code, plan, duration_days, created_by)
VALUES ($1, $2, $3, $4)
RETURNING ` + couponColumns

type CreateCouponParams struct {
	Code         string        `json:"code"`
	Plan         string        `json:"plan"`
	DurationDays int32         `json:"duration_days"`
	CreatedBy    uuid.NullUUID `json:"created_by"`
}

func (q *Queries) CreateCoupon(ctx context.Context, arg CreateCouponParams) (Coupon, error) {
	row := q.db.QueryRowContext(ctx, createCoupon,
		arg.Code,
		arg.Plan,
		arg.DurationDays,
		arg.CreatedBy,
	)
	return scanCoupon(row)
}

const getCouponByCode = `-- name: GetCouponByCode :one
SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

func (q *Queries) GetCouponByCode(ctx context.Context, code string) (Coupon, error) {
	row := q.db.QueryRowContext(ctx, getCouponByCode, code)
	return scanCoupon(row)
}

// redeemCoupon only claims an unredeemed coupon. Zero affected rows means a
// concurrent redemption won.
const redeemCoupon = `-- name: RedeemCoupon :execrows
UPDATE coupons
SET redeemed_by = $2,
    redeemed_at = $3,
    expires_at = $4
WHERE id = $1 AND redeemed_by IS NULL`

type RedeemCouponParams struct {
	ID         uuid.UUID `json:"id"`
	RedeemedBy uuid.UUID `json:"redeemed_by"`
	RedeemedAt time.Time `json:"redeemed_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

func (q *Queries) RedeemCoupon(ctx context.Context, arg RedeemCouponParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, redeemCoupon,
		arg.ID,
		arg.RedeemedBy,
		arg.RedeemedAt,
		arg.ExpiresAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const listCoupons = `-- name: ListCoupons :many
SELECT ` + couponColumns + `
FROM coupons
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

type ListCouponsParams struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

func (q *Queries) ListCoupons(ctx context.Context, arg ListCouponsParams) ([]Coupon, error) {
	rows, err := q.db.QueryContext(ctx, listCoupons, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Coupon
	for rows.Next() {
		i, err := scanCoupon(rows)
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
