package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/worker"
)

// GeneratePresentationHandler turns a project analysis into slide content.
type GeneratePresentationHandler struct {
	store      repository.Store
	aiProvider ai.Provider
	slideCount int
	logger     *slog.Logger
}

var (
	_ worker.JobHandler     = (*GeneratePresentationHandler)(nil)
	_ worker.FailureHandler = (*GeneratePresentationHandler)(nil)
)

// NewGeneratePresentationHandler creates a new handler for presentation jobs.
// A slideCount of zero lets the provider use ai.DefaultSlideCount.
func NewGeneratePresentationHandler(
	store repository.Store,
	aiProvider ai.Provider,
	slideCount int,
	logger *slog.Logger,
) *GeneratePresentationHandler {
	return &GeneratePresentationHandler{
		store:      store,
		aiProvider: aiProvider,
		slideCount: slideCount,
		logger:     logger,
	}
}

// Type returns the job type identifier.
func (h *GeneratePresentationHandler) Type() string {
	return worker.JobTypeGeneratePresentation
}

// Handle executes the presentation generation job.
func (h *GeneratePresentationHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.GeneratePresentationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	logger := h.logger.With("presentation_id", p.PresentationID, "project_id", p.ProjectID)
	logger.Info("Generating presentation")

	presentation, err := h.store.GetPresentationByID(ctx, p.PresentationID)
	if err != nil {
		if repository.IsNotFound(err) {
			return worker.NewPermanentError(fmt.Errorf("presentation not found: %s", p.PresentationID))
		}
		return fmt.Errorf("fetch presentation: %w", err)
	}
	if presentation.UserID != p.UserID || presentation.ProjectID != p.ProjectID {
		return worker.NewPermanentError(fmt.Errorf("presentation does not match payload"))
	}
	if domain.ArtifactStatus(presentation.Status) == domain.ArtifactStatusCompleted {
		logger.Info("Presentation already generated, skipping")
		return nil
	}

	project, err := h.store.GetProjectByID(ctx, p.ProjectID)
	if err != nil {
		if repository.IsNotFound(err) {
			return worker.NewPermanentError(fmt.Errorf("project not found: %s", p.ProjectID))
		}
		return fmt.Errorf("fetch project: %w", err)
	}
	if domain.ProjectStatus(project.Status) != domain.ProjectStatusAnalyzed || !project.Analysis.Valid {
		return worker.NewPermanentError(fmt.Errorf("project %s has no analysis", project.ID))
	}

	if err := h.store.UpdatePresentationStatus(ctx, repository.UpdatePresentationStatusParams{
		ID:     presentation.ID,
		Status: string(domain.ArtifactStatusGenerating),
	}); err != nil {
		return fmt.Errorf("update presentation status to generating: %w", err)
	}

	var companyName string
	if user, err := h.store.GetUserByID(ctx, project.UserID); err == nil {
		companyName = domain.NullStringValue(user.CompanyName)
	}

	content, err := h.aiProvider.GeneratePresentation(ctx, ai.GeneratePresentationParams{
		Title:       project.Title,
		CompanyName: companyName,
		Analysis:    ai.ParseAnalysis(project.Analysis.String),
		SlideCount:  h.slideCount,
		ProjectID:   project.ID,
		UserID:      project.UserID,
	})
	if err != nil {
		metrics.AICall("generate_presentation", 0, 0, err)
		if ai.IsRetryable(err) {
			return fmt.Errorf("generate presentation: %w", err)
		}
		return worker.NewPermanentError(fmt.Errorf("generate presentation: %w", err))
	}
	metrics.AICall("generate_presentation", content.Usage.InputTokens, content.Usage.OutputTokens, nil)
	if len(content.Slides) == 0 {
		return worker.NewPermanentError(fmt.Errorf("generate presentation: %w: no slides", ai.EAIMalformedOutput))
	}

	encoded, err := json.Marshal(content)
	if err != nil {
		return worker.NewPermanentError(fmt.Errorf("marshal presentation: %w", err))
	}

	if err := h.store.UpdatePresentationContent(ctx, repository.UpdatePresentationContentParams{
		ID:      presentation.ID,
		Content: string(encoded),
	}); err != nil {
		return fmt.Errorf("save presentation: %w", err)
	}
	metrics.PresentationsGenerated.WithLabelValues("completed").Inc()

	logger.Info("Presentation generated",
		"slides", len(content.Slides),
		"model", content.Usage.Model,
		"duration", content.Usage.Duration,
	)
	return nil
}

// OnFailure marks the presentation failed once the job will not be retried.
func (h *GeneratePresentationHandler) OnFailure(ctx context.Context, payload []byte, jobErr error) error {
	var p worker.GeneratePresentationPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}
	metrics.PresentationsGenerated.WithLabelValues("failed").Inc()
	if err := h.store.UpdatePresentationStatus(ctx, repository.UpdatePresentationStatusParams{
		ID:           p.PresentationID,
		Status:       string(domain.ArtifactStatusFailed),
		ErrorMessage: domain.ToNullString(failureMessage(jobErr)),
	}); err != nil {
		return fmt.Errorf("mark presentation failed: %w", err)
	}
	return nil
}
