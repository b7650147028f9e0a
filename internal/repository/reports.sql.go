package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const reportColumns = `id, project_id, user_id, status, file_key, file_size, error_message, created_at, completed_at`

func scanReport(row interface{ Scan(...interface{}) error }) (Report, error) {
	var i Report
	err := row.Scan(
		&i.ID,
		&i.ProjectID,
		&i.UserID,
		&i.Status,
		&i.FileKey,
		&i.FileSize,
		&i.ErrorMessage,
		&i.CreatedAt,
		&i.CompletedAt,
	)
	return i, err
}

const createReport = `-- name: CreateReport :one
INSERT INTO reports (project_id, user_id)
VALUES ($1, $2)
RETURNING ` + reportColumns

type CreateReportParams struct {
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func (q *Queries) CreateReport(ctx context.Context, arg CreateReportParams) (Report, error) {
	row := q.db.QueryRowContext(ctx, createReport, arg.ProjectID, arg.UserID)
	return scanReport(row)
}

const getReportByID = `-- name: GetReportByID :one
SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

func (q *Queries) GetReportByID(ctx context.Context, id uuid.UUID) (Report, error) {
	row := q.db.QueryRowContext(ctx, getReportByID, id)
	return scanReport(row)
}

const getReportByIDAndUserID = `-- name: GetReportByIDAndUserID :one
SELECT ` + reportColumns + ` FROM reports WHERE id = $1 AND user_id = $2`

type GetReportByIDAndUserIDParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) GetReportByIDAndUserID(ctx context.Context, arg GetReportByIDAndUserIDParams) (Report, error) {
	row := q.db.QueryRowContext(ctx, getReportByIDAndUserID, arg.ID, arg.UserID)
	return scanReport(row)
}

const listReportsByProject = `-- name: ListReportsByProject :many
SELECT ` + reportColumns + `
FROM reports
WHERE project_id = $1
ORDER BY created_at DESC`

func (q *Queries) ListReportsByProject(ctx context.Context, projectID uuid.UUID) ([]Report, error) {
	rows, err := q.db.QueryContext(ctx, listReportsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Report
	for rows.Next() {
		i, err := scanReport(rows)
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

const updateReportStatus = `-- name: UpdateReportStatus :exec
UPDATE reports SET status = $2, error_message = $3 WHERE id = $1`

type UpdateReportStatusParams struct {
	ID           uuid.UUID      `json:"id"`
	Status       string         `json:"status"`
	ErrorMessage sql.NullString `json:"error_message"`
}

func (q *Queries) UpdateReportStatus(ctx context.Context, arg UpdateReportStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateReportStatus, arg.ID, arg.Status, arg.ErrorMessage)
	return err
}

const updateReportCompleted = `-- name: UpdateReportCompleted :exec
UPDATE reports
SET status = 'completed', file_key = $2, file_size = $3, error_message = NULL, completed_at = NOW()
WHERE id = $1`

type UpdateReportCompletedParams struct {
	ID       uuid.UUID `json:"id"`
	FileKey  string    `json:"file_key"`
	FileSize int64     `json:"file_size"`
}

func (q *Queries) UpdateReportCompleted(ctx context.Context, arg UpdateReportCompletedParams) error {
	_, err := q.db.ExecContext(ctx, updateReportCompleted, arg.ID, arg.FileKey, arg.FileSize)
	return err
}
