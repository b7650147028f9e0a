// Package jobs contains the background job handlers run by the worker.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/storage"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/worker"
)

// maxDocumentRead caps how much of a stored document is read for analysis.
// Text beyond ai.MaxDocumentChars is discarded anyway.
const maxDocumentRead = 32 << 20

// AnalyzeProjectHandler processes jobs that analyze an uploaded company
// document. It extracts text from the stored file, asks the AI provider for
// an advisory analysis and stores the result on the project.
type AnalyzeProjectHandler struct {
	store      repository.Store
	aiProvider ai.Provider
	blobs      storage.BlobStore
	logger     *slog.Logger
}

var (
	_ worker.JobHandler     = (*AnalyzeProjectHandler)(nil)
	_ worker.FailureHandler = (*AnalyzeProjectHandler)(nil)
)

// NewAnalyzeProjectHandler creates a new handler for project analysis jobs.
func NewAnalyzeProjectHandler(
	store repository.Store,
	aiProvider ai.Provider,
	blobs storage.BlobStore,
	logger *slog.Logger,
) *AnalyzeProjectHandler {
	return &AnalyzeProjectHandler{
		store:      store,
		aiProvider: aiProvider,
		blobs:      blobs,
		logger:     logger,
	}
}

// Type returns the job type identifier.
func (h *AnalyzeProjectHandler) Type() string {
	return worker.JobTypeAnalyzeProject
}

// Handle executes the project analysis job.
func (h *AnalyzeProjectHandler) Handle(ctx context.Context, payload []byte) error {
	var p worker.AnalyzeProjectPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	logger := h.logger.With("project_id", p.ProjectID, "user_id", p.UserID)
	logger.Info("Analyzing project")

	// 1. Fetch and validate project
	project, err := h.store.GetProjectByID(ctx, p.ProjectID)
	if err != nil {
		if repository.IsNotFound(err) {
			return worker.NewPermanentError(fmt.Errorf("project not found: %s", p.ProjectID))
		}
		return fmt.Errorf("fetch project: %w", err)
	}
	if project.UserID != p.UserID {
		return worker.NewPermanentError(fmt.Errorf("project does not belong to user"))
	}

	// A retry finds the project already analyzing.
	status := domain.ProjectStatus(project.Status)
	if status != domain.ProjectStatusAnalyzing {
		if !status.CanTransitionTo(domain.ProjectStatusAnalyzing) {
			return worker.NewPermanentError(fmt.Errorf("invalid project status: %s", status))
		}
		if err := h.store.UpdateProjectStatus(ctx, repository.UpdateProjectStatusParams{
			ID:     project.ID,
			Status: domain.ProjectStatusAnalyzing.String(),
		}); err != nil {
			return fmt.Errorf("update project status to analyzing: %w", err)
		}
	}

	// 2. Load document text
	text, err := h.readDocument(ctx, project)
	if err != nil {
		return err
	}
	if text == "" {
		return worker.NewPermanentError(fmt.Errorf("%w: no readable text in %s", ai.EAIInvalidInput, project.FileName))
	}

	// 3. Company context for the prompt
	var companyName string
	if user, err := h.store.GetUserByID(ctx, project.UserID); err == nil {
		companyName = domain.NullStringValue(user.CompanyName)
	} else {
		logger.Warn("Failed to fetch user for analysis context", "error", err)
	}

	// 4. Run the analysis
	analysis, err := h.aiProvider.AnalyzeDocument(ctx, ai.AnalyzeDocumentParams{
		Text:        text,
		FileName:    project.FileName,
		Title:       project.Title,
		CompanyName: companyName,
		ProjectID:   project.ID,
		UserID:      project.UserID,
	})
	if err != nil {
		metrics.AICall("analyze_document", 0, 0, err)
		if ai.IsRetryable(err) {
			return fmt.Errorf("analyze document: %w", err)
		}
		return worker.NewPermanentError(fmt.Errorf("analyze document: %w", err))
	}

	metrics.AICall("analyze_document", analysis.Usage.InputTokens, analysis.Usage.OutputTokens, nil)

	stored, err := ai.MarshalAnalysis(analysis)
	if err != nil {
		return worker.NewPermanentError(err)
	}

	// 5. Save analysis; this also marks the project analyzed
	if err := h.store.UpdateProjectAnalysis(ctx, repository.UpdateProjectAnalysisParams{
		ID:       project.ID,
		Analysis: stored,
	}); err != nil {
		return fmt.Errorf("save analysis: %w", err)
	}
	metrics.DocumentsAnalyzed.WithLabelValues("success").Inc()

	logger.Info("Project analysis completed",
		"model", analysis.Usage.Model,
		"input_tokens", analysis.Usage.InputTokens,
		"output_tokens", analysis.Usage.OutputTokens,
		"findings", len(analysis.KeyFindings),
	)
	return nil
}

// OnFailure marks the project failed once the job will not be retried.
func (h *AnalyzeProjectHandler) OnFailure(ctx context.Context, payload []byte, jobErr error) error {
	var p worker.AnalyzeProjectPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}
	metrics.DocumentsAnalyzed.WithLabelValues("failed").Inc()
	err := h.store.UpdateProjectStatus(ctx, repository.UpdateProjectStatusParams{
		ID:           p.ProjectID,
		Status:       domain.ProjectStatusFailed.String(),
		ErrorMessage: domain.ToNullString(failureMessage(jobErr)),
	})
	if err != nil && !repository.IsNotFound(err) {
		return fmt.Errorf("mark project failed: %w", err)
	}
	return nil
}

func (h *AnalyzeProjectHandler) readDocument(ctx context.Context, project repository.Project) (string, error) {
	body, info, err := h.blobs.Get(ctx, project.FileKey)
	if err != nil {
		if storage.IsNotFound(err) {
			return "", worker.NewPermanentError(fmt.Errorf("document missing from storage: %s", project.FileKey))
		}
		return "", fmt.Errorf("fetch document: %w", err)
	}
	defer body.Close()

	content, err := io.ReadAll(io.LimitReader(body, maxDocumentRead))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}

	contentType := project.ContentType
	if contentType == "" {
		contentType = info.ContentType
	}
	return ai.ExtractText(content, storage.IsText(contentType)), nil
}

// failureMessage is the user-facing reason stored on a failed artifact.
func failureMessage(err error) string {
	switch {
	case err == nil:
		return "processing failed"
	case ai.IsRetryable(err):
		return "The AI service is busy. Please try again later."
	}
	return ai.Truncate(err.Error(), 500)
}
