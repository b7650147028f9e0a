package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/metrics"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/report"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/storage"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/worker"
)

// GenerateReportHandler processes jobs that render a project analysis as a
// PDF and upload it to the blob store.
type GenerateReportHandler struct {
	store  repository.Store
	blobs  storage.BlobStore
	gen    report.Generator
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ worker.JobHandler     = (*GenerateReportHandler)(nil)
	_ worker.FailureHandler = (*GenerateReportHandler)(nil)
)

// NewGenerateReportHandler creates a new handler for report generation jobs.
func NewGenerateReportHandler(
	store repository.Store,
	blobs storage.BlobStore,
	gen report.Generator,
	logger *slog.Logger,
) *GenerateReportHandler {
	return &GenerateReportHandler{
		store:  store,
		blobs:  blobs,
		gen:    gen,
		logger: logger,
		now:    time.Now,
	}
}

// Type returns the job type identifier.
func (h *GenerateReportHandler) Type() string {
	return worker.JobTypeGenerateReport
}

// Handle executes the report generation job.
func (h *GenerateReportHandler) Handle(ctx context.Context, payload []byte) error {
	// 1. Unmarshal the payload
	var p worker.GenerateReportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return worker.NewPermanentError(fmt.Errorf("invalid payload: %w", err))
	}

	logger := h.logger.With("report_id", p.ReportID, "project_id", p.ProjectID, "user_id", p.UserID)
	logger.Info("Generating report")

	// 2. Fetch and validate the report row
	row, err := h.store.GetReportByID(ctx, p.ReportID)
	if err != nil {
		if repository.IsNotFound(err) {
			return worker.NewPermanentError(fmt.Errorf("report not found: %s", p.ReportID))
		}
		return fmt.Errorf("fetch report: %w", err)
	}
	if row.UserID != p.UserID || row.ProjectID != p.ProjectID {
		return worker.NewPermanentError(fmt.Errorf("report does not match payload"))
	}
	if domain.ArtifactStatus(row.Status) == domain.ArtifactStatusCompleted {
		logger.Info("Report already generated, skipping")
		return nil
	}

	// 3. Gather report data
	data, err := h.reportData(ctx, p)
	if err != nil {
		return err
	}

	if err := h.store.UpdateReportStatus(ctx, repository.UpdateReportStatusParams{
		ID:     row.ID,
		Status: string(domain.ArtifactStatusGenerating),
	}); err != nil {
		return fmt.Errorf("update report status to generating: %w", err)
	}

	// 4. Render to buffer
	var buf bytes.Buffer
	size, err := h.gen.Generate(ctx, data, &buf)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	// 5. Upload; a retry overwrites a partial earlier upload
	key := storage.ReportKey(p.UserID, p.ProjectID, p.ReportID)
	if err := h.blobs.Put(ctx, key, &buf, storage.PutOptions{
		ContentType: h.gen.ContentType(),
		Overwrite:   true,
	}); err != nil {
		return fmt.Errorf("upload report to storage: %w", err)
	}

	// 6. Complete the report row
	if err := h.store.UpdateReportCompleted(ctx, repository.UpdateReportCompletedParams{
		ID:       row.ID,
		FileKey:  key,
		FileSize: size,
	}); err != nil {
		return fmt.Errorf("complete report: %w", err)
	}
	metrics.ReportsGenerated.WithLabelValues("pdf").Inc()

	logger.Info("Report generation completed", "storage_key", key, "size_bytes", size)
	return nil
}

// OnFailure marks the report failed once the job will not be retried.
func (h *GenerateReportHandler) OnFailure(ctx context.Context, payload []byte, jobErr error) error {
	var p worker.GenerateReportPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil
	}
	if err := h.store.UpdateReportStatus(ctx, repository.UpdateReportStatusParams{
		ID:           p.ReportID,
		Status:       string(domain.ArtifactStatusFailed),
		ErrorMessage: domain.ToNullString(failureMessage(jobErr)),
	}); err != nil {
		return fmt.Errorf("mark report failed: %w", err)
	}
	return nil
}

// reportData fetches everything needed to render the report.
func (h *GenerateReportHandler) reportData(ctx context.Context, p worker.GenerateReportPayload) (*report.Data, error) {
	project, err := h.store.GetProjectByID(ctx, p.ProjectID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, worker.NewPermanentError(fmt.Errorf("project not found: %s", p.ProjectID))
		}
		return nil, fmt.Errorf("fetch project: %w", err)
	}
	if project.UserID != p.UserID {
		return nil, worker.NewPermanentError(fmt.Errorf("project does not belong to user"))
	}
	if domain.ProjectStatus(project.Status) != domain.ProjectStatusAnalyzed {
		return nil, worker.NewPermanentError(fmt.Errorf("project must be analyzed to generate a report, got: %s", project.Status))
	}

	user, err := h.store.GetUserByID(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}

	return &report.Data{
		Title:       project.Title,
		FileName:    project.FileName,
		PreparedFor: user.Name,
		CompanyName: domain.NullStringValue(user.CompanyName),
		Analysis:    ai.ParseAnalysis(project.Analysis.String),
		AnalyzedAt:  project.UpdatedAt,
		GeneratedAt: h.now(),
	}, nil
}
