package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
)

// Job type constants - these must match the JobHandler.Type() values
const (
	JobTypeAnalyzeProject       = "analyze_project"
	JobTypeGeneratePresentation = "generate_presentation"
	JobTypeGenerateReport       = "generate_report"
)

// Priority constants for job scheduling
const (
	PriorityLow    = 0
	PriorityNormal = 10
	PriorityHigh   = 20
)

// AnalyzeProjectPayload is the payload for document analysis jobs.
type AnalyzeProjectPayload struct {
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// GeneratePresentationPayload is the payload for slide generation jobs.
type GeneratePresentationPayload struct {
	PresentationID uuid.UUID `json:"presentation_id"`
	ProjectID      uuid.UUID `json:"project_id"`
	UserID         uuid.UUID `json:"user_id"`
}

// GenerateReportPayload is the payload for report generation jobs.
type GenerateReportPayload struct {
	ReportID  uuid.UUID `json:"report_id"`
	ProjectID uuid.UUID `json:"project_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// EnqueueOption is a functional option for customizing job enqueue parameters.
type EnqueueOption func(*repository.EnqueueJobParams)

// WithPriority sets the job priority.
func WithPriority(priority int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.Priority = priority
	}
}

// WithMaxAttempts sets the maximum number of retry attempts.
func WithMaxAttempts(attempts int32) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.MaxAttempts = attempts
	}
}

// WithDelay schedules the job to run after a delay.
func WithDelay(delay time.Duration) EnqueueOption {
	return func(p *repository.EnqueueJobParams) {
		p.ScheduledAt = time.Now().Add(delay)
	}
}

// EnqueueJob is a generic helper for enqueuing jobs with custom options.
func EnqueueJob(
	ctx context.Context,
	q repository.Querier,
	jobType string,
	payload interface{},
	opts ...EnqueueOption,
) (repository.Job, error) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return repository.Job{}, fmt.Errorf("marshal payload: %w", err)
	}

	params := repository.EnqueueJobParams{
		JobType:     jobType,
		Payload:     payloadJSON,
		Priority:    PriorityNormal,
		MaxAttempts: 3,
		ScheduledAt: time.Now(),
	}
	for _, opt := range opts {
		opt(&params)
	}

	job, err := q.EnqueueJob(ctx, params)
	if err != nil {
		return repository.Job{}, fmt.Errorf("enqueue job: %w", err)
	}
	return job, nil
}

// EnqueueAnalyzeProject enqueues analysis of a freshly uploaded document.
func EnqueueAnalyzeProject(ctx context.Context, q repository.Querier, projectID, userID uuid.UUID, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, q, JobTypeAnalyzeProject, AnalyzeProjectPayload{
		ProjectID: projectID,
		UserID:    userID,
	}, opts...)
}

// EnqueueGeneratePresentation enqueues slide generation for a presentation row.
func EnqueueGeneratePresentation(ctx context.Context, q repository.Querier, presentationID, projectID, userID uuid.UUID, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, q, JobTypeGeneratePresentation, GeneratePresentationPayload{
		PresentationID: presentationID,
		ProjectID:      projectID,
		UserID:         userID,
	}, opts...)
}

// EnqueueGenerateReport enqueues PDF rendering for a report row.
func EnqueueGenerateReport(ctx context.Context, q repository.Querier, reportID, projectID, userID uuid.UUID, opts ...EnqueueOption) (repository.Job, error) {
	return EnqueueJob(ctx, q, JobTypeGenerateReport, GenerateReportPayload{
		ReportID:  reportID,
		ProjectID: projectID,
		UserID:    userID,
	}, opts...)
}
