package repository

import "context"

const getActivePlanPrice = `-- name: GetActivePlanPrice :one
SELECT plan, amount, currency, order_name, active, updated_at
FROM plan_prices
WHERE plan = $1 AND active`

func (q *Queries) GetActivePlanPrice(ctx context.Context, plan string) (PlanPrice, error) {
	row := q.db.QueryRowContext(ctx, getActivePlanPrice, plan)
	var i PlanPrice
	err := row.Scan(
		&i.Plan,
		&i.Amount,
		&i.Currency,
		&i.OrderName,
		&i.Active,
		&i.UpdatedAt,
	)
	return i, err
}

const listActivePlanPrices = `-- name: ListActivePlanPrices :many
SELECT plan, amount, currency, order_name, active, updated_at
FROM plan_prices
WHERE active
ORDER BY amount`

func (q *Queries) ListActivePlanPrices(ctx context.Context) ([]PlanPrice, error) {
	rows, err := q.db.QueryContext(ctx, listActivePlanPrices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []PlanPrice
	for rows.Next() {
		var i PlanPrice
		if err := rows.Scan(
			&i.Plan,
			&i.Amount,
			&i.Currency,
			&i.OrderName,
			&i.Active,
			&i.UpdatedAt,
		); err != nil {
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
