package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/notify"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/storage"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/worker"
)

// ReportURLExpiry is how long a report download link stays valid.
const ReportURLExpiry = time.Hour

// =============================================================================
// Interface Definition
// =============================================================================

// ProjectService manages uploaded documents and the artifacts generated
// from them. Creation of projects and presentations is gated by the policy
// evaluator.
type ProjectService interface {
	// CreateProject stores the document, records usage and queues analysis.
	// Returns domain.EFORBIDDEN when the monthly project limit is reached.
	CreateProject(ctx context.Context, params domain.CreateProjectParams, file io.Reader) (*domain.Project, error)

	GetProject(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error)
	ListProjects(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Project, error)

	// DeleteProject removes the project and its files. Usage is not refunded.
	DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error

	// CreatePresentation queues slide generation for an analyzed project.
	// Returns domain.EFORBIDDEN when the monthly presentation limit is reached.
	CreatePresentation(ctx context.Context, userID uuid.UUID, role domain.Role, projectID uuid.UUID) (*domain.Presentation, error)

	ListPresentations(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Presentation, error)

	// RequestReport queues a PDF rendering of the project's analysis.
	RequestReport(ctx context.Context, userID, projectID uuid.UUID) (*domain.Report, error)

	// GetReport returns the report with a download URL once it is completed.
	GetReport(ctx context.Context, userID, reportID uuid.UUID) (*domain.Report, error)
}

// =============================================================================
// Implementation
// =============================================================================

type projectService struct {
	store         repository.Store
	policy        PolicyService
	blobs         storage.BlobStore
	notifier      notify.Notifier
	maxUploadSize int64
	logger        *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(
	store repository.Store,
	policy PolicyService,
	blobs storage.BlobStore,
	notifier notify.Notifier,
	maxUploadSize int64,
	logger *slog.Logger,
) ProjectService {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	return &projectService{
		store:         store,
		policy:        policy,
		blobs:         blobs,
		notifier:      notifier,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// CreateProject creates a project from an uploaded document.
//
// Flow:
// 1. Validate title and file metadata
// 2. Evaluate the project policy for the user's effective group
// 3. Upload the document, then insert the project row
// 4. Record usage and queue the analysis job
func (s *projectService) CreateProject(ctx context.Context, params domain.CreateProjectParams, file io.Reader) (*domain.Project, error) {
	const op = "ProjectService.CreateProject"

	params.Title = strings.TrimSpace(params.Title)
	if params.Title == "" {
		return nil, domain.Invalid(op, "Title is required")
	}
	if len(params.Title) > domain.MaxProjectTitleLength {
		return nil, domain.Invalid(op, "Title is too long")
	}
	if !storage.IsAllowedDocumentType(params.ContentType) {
		return nil, domain.Invalid(op, "Unsupported file type")
	}
	if s.maxUploadSize > 0 && params.FileSize > s.maxUploadSize {
		return nil, domain.Invalid(op, "File is too large")
	}

	plan, err := s.userPlan(ctx, params.UserID, op)
	if err != nil {
		return nil, err
	}
	decision, err := s.policy.CheckProjectCreation(ctx, params.UserID, params.Role, plan)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.Forbidden(op, decision.Message)
	}

	projectID := uuid.New()
	key := storage.DocumentKey(params.UserID, projectID, params.FileName)
	if err := s.blobs.Put(ctx, key, file, storage.PutOptions{
		ContentType: params.ContentType,
		MaxSize:     s.maxUploadSize,
	}); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, domain.Invalid(op, "File is too large")
		}
		return nil, domain.Internal(err, op, "Failed to store document")
	}

	row, err := s.store.CreateProject(ctx, repository.CreateProjectParams{
		ID:          projectID,
		UserID:      params.UserID,
		Title:       params.Title,
		FileKey:     key,
		FileName:    params.FileName,
		ContentType: params.ContentType,
		FileSize:    params.FileSize,
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Warn("failed to remove orphaned document", "key", key, "error", delErr)
		}
		return nil, domain.Internal(err, op, "Failed to create project")
	}

	if _, err := s.policy.RecordUsage(ctx, params.UserID, domain.UsageKindProject); err != nil {
		s.logger.Error("failed to record project usage", "user_id", params.UserID, "project_id", projectID, "error", err)
	}

	if _, err := worker.EnqueueAnalyzeProject(ctx, s.store, projectID, params.UserID); err != nil {
		s.logger.Error("failed to enqueue analysis", "project_id", projectID, "error", err)
	}

	metrics.ProjectsCreated.Inc()
	s.logger.Info("project created",
		"user_id", params.UserID,
		"project_id", projectID,
		"group", decision.Group,
		"used", decision.Used+1,
		"limit", decision.Limit,
	)
	sendNotification(ctx, s.notifier, s.logger, notify.Message{
		Event: notify.EventProjectCreated,
		Title: "Project created",
		Fields: []notify.Field{
			notify.F("user", params.UserID),
			notify.F("title", params.Title),
			notify.F("file", params.FileName),
		},
	})

	return repoProjectToDomain(row), nil
}

func (s *projectService) GetProject(ctx context.Context, userID, projectID uuid.UUID) (*domain.Project, error) {
	const op = "ProjectService.GetProject"

	row, err := s.ownedProject(ctx, userID, projectID, op)
	if err != nil {
		return nil, err
	}
	return repoProjectToDomain(row), nil
}

func (s *projectService) ListProjects(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Project, error) {
	const op = "ProjectService.ListProjects"

	limit, offset = clampPage(limit, offset)
	rows, err := s.store.ListProjectsByUser(ctx, repository.ListProjectsByUserParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: int32(offset),
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list projects")
	}

	out := make([]domain.Project, 0, len(rows))
	for _, row := range rows {
		out = append(out, *repoProjectToDomain(row))
	}
	return out, nil
}

func (s *projectService) DeleteProject(ctx context.Context, userID, projectID uuid.UUID) error {
	const op = "ProjectService.DeleteProject"

	row, err := s.ownedProject(ctx, userID, projectID, op)
	if err != nil {
		return err
	}

	reports, err := s.store.ListReportsByProject(ctx, projectID)
	if err != nil {
		return domain.Internal(err, op, "Failed to list reports")
	}

	n, err := s.store.DeleteProject(ctx, repository.DeleteProjectParams{ID: projectID, UserID: userID})
	if err != nil {
		return domain.Internal(err, op, "Failed to delete project")
	}
	if n == 0 {
		return domain.NotFound(op, "project", projectID.String())
	}

	keys := []string{row.FileKey}
	for _, r := range reports {
		if r.FileKey.Valid {
			keys = append(keys, r.FileKey.String)
		}
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete project file", "project_id", projectID, "key", key, "error", err)
		}
	}

	s.logger.Info("project deleted", "user_id", userID, "project_id", projectID)
	return nil
}

func (s *projectService) CreatePresentation(ctx context.Context, userID uuid.UUID, role domain.Role, projectID uuid.UUID) (*domain.Presentation, error) {
	const op = "ProjectService.CreatePresentation"

	row, err := s.ownedProject(ctx, userID, projectID, op)
	if err != nil {
		return nil, err
	}
	if !repoProjectToDomain(row).IsAnalyzed() {
		return nil, domain.Invalid(op, "The document analysis has not finished yet")
	}

	plan, err := s.userPlan(ctx, userID, op)
	if err != nil {
		return nil, err
	}
	decision, err := s.policy.CheckPresentationCreation(ctx, userID, role, plan)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, domain.Forbidden(op, decision.Message)
	}

	pres, err := s.store.CreatePresentation(ctx, repository.CreatePresentationParams{
		ProjectID: projectID,
		UserID:    userID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create presentation")
	}

	if _, err := s.policy.RecordUsage(ctx, userID, domain.UsageKindPresentation); err != nil {
		s.logger.Error("failed to record presentation usage", "user_id", userID, "presentation_id", pres.ID, "error", err)
	}

	if _, err := worker.EnqueueGeneratePresentation(ctx, s.store, pres.ID, projectID, userID); err != nil {
		s.logger.Error("failed to enqueue presentation", "presentation_id", pres.ID, "error", err)
	}

	s.logger.Info("presentation requested",
		"user_id", userID,
		"project_id", projectID,
		"presentation_id", pres.ID,
		"group", decision.Group,
	)
	return repoPresentationToDomain(pres), nil
}

func (s *projectService) ListPresentations(ctx context.Context, userID, projectID uuid.UUID) ([]domain.Presentation, error) {
	const op = "ProjectService.ListPresentations"

	if _, err := s.ownedProject(ctx, userID, projectID, op); err != nil {
		return nil, err
	}

	rows, err := s.store.ListPresentationsByProject(ctx, projectID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list presentations")
	}

	out := make([]domain.Presentation, 0, len(rows))
	for _, row := range rows {
		out = append(out, *repoPresentationToDomain(row))
	}
	return out, nil
}

func (s *projectService) RequestReport(ctx context.Context, userID, projectID uuid.UUID) (*domain.Report, error) {
	const op = "ProjectService.RequestReport"

	row, err := s.ownedProject(ctx, userID, projectID, op)
	if err != nil {
		return nil, err
	}
	if !repoProjectToDomain(row).IsAnalyzed() {
		return nil, domain.Invalid(op, "The document analysis has not finished yet")
	}

	report, err := s.store.CreateReport(ctx, repository.CreateReportParams{
		ProjectID: projectID,
		UserID:    userID,
	})
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create report")
	}

	if _, err := worker.EnqueueGenerateReport(ctx, s.store, report.ID, projectID, userID); err != nil {
		return nil, domain.Internal(err, op, "Failed to queue report")
	}

	s.logger.Info("report requested", "user_id", userID, "project_id", projectID, "report_id", report.ID)
	return repoReportToDomain(report), nil
}

func (s *projectService) GetReport(ctx context.Context, userID, reportID uuid.UUID) (*domain.Report, error) {
	const op = "ProjectService.GetReport"

	row, err := s.store.GetReportByIDAndUserID(ctx, repository.GetReportByIDAndUserIDParams{
		ID:     reportID,
		UserID: userID,
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, domain.NotFound(op, "report", reportID.String())
		}
		return nil, domain.Internal(err, op, "Failed to load report")
	}

	report := repoReportToDomain(row)
	if report.Status == domain.ArtifactStatusCompleted && report.FileKey != "" {
		url, err := s.blobs.URL(ctx, report.FileKey, ReportURLExpiry)
		if err != nil {
			return nil, domain.Internal(err, op, "Failed to create download link")
		}
		report.URL = url
	}
	return report, nil
}

func (s *projectService) ownedProject(ctx context.Context, userID, projectID uuid.UUID, op string) (repository.Project, error) {
	row, err := s.store.GetProjectByIDAndUserID(ctx, repository.GetProjectByIDAndUserIDParams{
		ID:     projectID,
		UserID: userID,
	})
	if err != nil {
		if repository.IsNotFound(err) {
			return repository.Project{}, domain.NotFound(op, "project", projectID.String())
		}
		return repository.Project{}, domain.Internal(err, op, "Failed to load project")
	}
	return row, nil
}

// userPlan returns the user's current plan, free when no subscription exists.
func (s *projectService) userPlan(ctx context.Context, userID uuid.UUID, op string) (domain.Plan, error) {
	sub, err := s.store.GetSubscriptionByUserID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return domain.PlanFree, nil
		}
		return "", domain.Internal(err, op, "Failed to load subscription")
	}
	return domain.Plan(sub.Plan).OrDefault(), nil
}

var _ ProjectService = (*projectService)(nil)
