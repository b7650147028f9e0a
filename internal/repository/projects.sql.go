package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

const projectColumns = `id, user_id, title, status, file_key, file_name, content_type, file_size,
       analysis, error_message, created_at, updated_at`

func scanProject(row interface{ Scan(...interface{}) error }) (Project, error) {
	var i Project
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Title,
		&i.Status,
		&i.FileKey,
		&i.FileName,
		&i.ContentType,
		&i.FileSize,
		&i.Analysis,
		&i.ErrorMessage,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createProject = `-- name: CreateProject :one
INSERT INTO projects (id, user_id, title, file_key, file_name, content_type, file_size)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + projectColumns

type CreateProjectParams struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Title       string    `json:"title"`
	FileKey     string    `json:"file_key"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	FileSize    int64     `json:"file_size"`
}

func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, createProject,
		arg.ID,
		arg.UserID,
		arg.Title,
		arg.FileKey,
		arg.FileName,
		arg.ContentType,
		arg.FileSize,
	)
	return scanProject(row)
}

const getProjectByID = `-- name: GetProjectByID :one
SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

func (q *Queries) GetProjectByID(ctx context.Context, id uuid.UUID) (Project, error) {
	row := q.db.QueryRowContext(ctx, getProjectByID, id)
	return scanProject(row)
}

const getProjectByIDAndUserID = `-- name: GetProjectByIDAndUserID :one
SELECT ` + projectColumns + ` FROM projects WHERE id = $1 AND user_id = $2`

type GetProjectByIDAndUserIDParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) GetProjectByIDAndUserID(ctx context.Context, arg GetProjectByIDAndUserIDParams) (Project, error) {
	row := q.db.QueryRowContext(ctx, getProjectByIDAndUserID, arg.ID, arg.UserID)
	return scanProject(row)
}

const listProjectsByUser = `-- name: ListProjectsByUser :many
SELECT ` + projectColumns + `
FROM projects
WHERE user_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

type ListProjectsByUserParams struct {
	UserID uuid.UUID `json:"user_id"`
	Limit  int32     `json:"limit"`
	Offset int32     `json:"offset"`
}

func (q *Queries) ListProjectsByUser(ctx context.Context, arg ListProjectsByUserParams) ([]Project, error) {
	rows, err := q.db.QueryContext(ctx, listProjectsByUser, arg.UserID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Project
	for rows.Next() {
		i, err := scanProject(rows)
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

const updateProjectStatus = `-- name: UpdateProjectStatus :exec
UPDATE projects
SET status = $2, error_message = $3, updated_at = NOW()
WHERE id = $1`

type UpdateProjectStatusParams struct {
	ID           uuid.UUID      `json:"id"`
	Status       string         `json:"status"`
	ErrorMessage sql.NullString `json:"error_message"`
}

func (q *Queries) UpdateProjectStatus(ctx context.Context, arg UpdateProjectStatusParams) error {
	_, err := q.db.ExecContext(ctx, updateProjectStatus, arg.ID, arg.Status, arg.ErrorMessage)
	return err
}

const updateProjectAnalysis = `-- name: UpdateProjectAnalysis :exec
UPDATE projects
SET analysis = $2, status = 'analyzed', error_message = NULL, updated_at = NOW()
WHERE id = $1`

type UpdateProjectAnalysisParams struct {
	ID       uuid.UUID `json:"id"`
	Analysis string    `json:"analysis"`
}

func (q *Queries) UpdateProjectAnalysis(ctx context.Context, arg UpdateProjectAnalysisParams) error {
	_, err := q.db.ExecContext(ctx, updateProjectAnalysis, arg.ID, arg.Analysis)
	return err
}

const deleteProject = `-- name: DeleteProject :execrows
DELETE FROM projects WHERE id = $1 AND user_id = $2`

type DeleteProjectParams struct {
	ID     uuid.UUID `json:"id"`
	UserID uuid.UUID `json:"user_id"`
}

func (q *Queries) DeleteProject(ctx context.Context, arg DeleteProjectParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteProject, arg.ID, arg.UserID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
