package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const presentationColumns = `id, project_id, user_id, status, content, error_message, created_at, updated_at`

func scanPresentation(row interface{ Scan(...interface{}) error }) (Presentation, error) {
	var i Presentation
	err := row.Scan(
		&i.ID,
		&i.ProjectID,
		&i.UserID,
		&i.Status,
		&i.Content,
		&i.ErrorMessage,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPresentation = `-- name: CreatePresentation :one
INSERT INTO presentations (project_id, user_id)
VALUES ($1, $2)
RETURNING ` + presentationColumns

type CreatePresentationParams struct {
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
}

func (q *Queries) CreatePresentation(ctx context.Context, arg CreatePresentationParams) (Presentation, error) {
	row := q.db.QueryRowContext(ctx, createPresentation, arg.ProjectID, arg.UserID)
	return scanPresentation(row)
}

const getPresentationByID = `-- name: GetPresentationByID :one
SELECT ` + presentationColumns + ` FROM presentations WHERE id = $1`

func (q *Queries) GetPresentationByID(ctx context.Context, id uuid.UUID) (Presentation, error) {
	row := q.db.QueryRowContext(ctx, getPresentationByID, id)
	return scanPresentation(row)
}

const listPresentationsByProject = `-- name: ListPresentationsByProject :many
SELECT ` + presentationColumns + `
FROM presentations
WHERE project_id = $1
ORDER BY created_at DESC`

func (q *Queries) ListPresentationsByProject(ctx context.Context, projectID uuid.UUID) ([]Presentation, error) {
	rows, err := q.db.QueryContext(ctx, listPresentationsByProject, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Presentation
	for rows.Next() {
		i, err := scanPresentation(rows)
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

const updatePresentationStatus = `-- name: UpdatePresentationStatus :exec
UPDATE presentations
SET status = $2, error_message = $3, updated_at = NOW()
WHERE id = $1`

type UpdatePresentationStatusParams struct {
	ID           uuid.UUID      `json:"id"`
	Status       string         `json:"status"`
	ErrorMessage sql.NullString `json:"error_message"`
}

func (q *Queries) UpdatePresentationStatus(ctx context.Context, arg UpdatePresentationStatusParams) error {
	_, err := q.db.ExecContext(ctx, updatePresentationStatus, arg.ID, arg.Status, arg.ErrorMessage)
	return err
}

const updatePresentationContent = `-- name: UpdatePresentationContent :exec
UPDATE presentations
SET content = $2, status = 'completed', error_message = NULL, updated_at = NOW()
WHERE id = $1`

type UpdatePresentationContentParams struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
}

func (q *Queries) UpdatePresentationContent(ctx context.Context, arg UpdatePresentationContentParams) error {
	_, err := q.db.ExecContext(ctx, updatePresentationContent, arg.ID, arg.Content)
	return err
}
