package repository

import (
	"context"
	"database/sql"
)

const groupPolicyColumns = `group_name, monthly_project_limit, monthly_presentation_limit, description, created_at, updated_at`

func scanGroupPolicy(row interface{ Scan(...interface{}) error }) (GroupPolicy, error) {
	var i GroupPolicy
	err := row.Scan(
		&i.GroupName,
		&i.MonthlyProjectLimit,
		&i.MonthlyPresentationLimit,
		&i.Description,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getGroupPolicy = `-- name: GetGroupPolicy :one
SELECT ` + groupPolicyColumns + ` FROM group_policies WHERE group_name = $1`

func (q *Queries) GetGroupPolicy(ctx context.Context, groupName string) (GroupPolicy, error) {
	row := q.db.QueryRowContext(ctx, getGroupPolicy, groupName)
	return scanGroupPolicy(row)
}

const listGroupPolicies = `-- name: ListGroupPolicies :many
SELECT ` + groupPolicyColumns + ` FROM group_policies ORDER BY group_name`

func (q *Queries) ListGroupPolicies(ctx context.Context) ([]GroupPolicy, error) {
	rows, err := q.db.QueryContext(ctx, listGroupPolicies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []GroupPolicy
	for rows.Next() {
		i, err := scanGroupPolicy(rows)
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

const createGroupPolicy = `-- name: CreateGroupPolicy :one
INSERT INTO group_policies (group_name, monthly_project_limit, monthly_presentation_limit, description)
VALUES ($1, $2, $3, $4)
RETURNING ` + groupPolicyColumns

type CreateGroupPolicyParams struct {
	GroupName                string `json:"group_name"`
	MonthlyProjectLimit      int32  `json:"monthly_project_limit"`
	MonthlyPresentationLimit int32  `json:"monthly_presentation_limit"`
	Description              string `json:"description"`
}

func (q *Queries) CreateGroupPolicy(ctx context.Context, arg CreateGroupPolicyParams) (GroupPolicy, error) {
	row := q.db.QueryRowContext(ctx, createGroupPolicy,
		arg.GroupName,
		arg.MonthlyProjectLimit,
		arg.MonthlyPresentationLimit,
		arg.Description,
	)
	return scanGroupPolicy(row)
}

const updateGroupPolicy = `-- name: UpdateGroupPolicy :one
UPDATE group_policies
SET monthly_project_limit = COALESCE($2, monthly_project_limit),
    monthly_presentation_limit = COALESCE($3, monthly_presentation_limit),
    description = COALESCE($4, description),
    updated_at = NOW()
WHERE group_name = $1
RETURNING ` + groupPolicyColumns

type UpdateGroupPolicyParams struct {
	GroupName                string         `json:"group_name"`
	MonthlyProjectLimit      sql.NullInt32  `json:"monthly_project_limit"`
	MonthlyPresentationLimit sql.NullInt32  `json:"monthly_presentation_limit"`
	Description              sql.NullString `json:"description"`
}

func (q *Queries) UpdateGroupPolicy(ctx context.Context, arg UpdateGroupPolicyParams) (GroupPolicy, error) {
	row := q.db.QueryRowContext(ctx, updateGroupPolicy,
		arg.GroupName,
		arg.MonthlyProjectLimit,
		arg.MonthlyPresentationLimit,
		arg.Description,
	)
	return scanGroupPolicy(row)
}

const deleteGroupPolicy = `-- name: DeleteGroupPolicy :execrows
DELETE FROM group_policies WHERE group_name = $1`

func (q *Queries) DeleteGroupPolicy(ctx context.Context, groupName string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteGroupPolicy, groupName)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
