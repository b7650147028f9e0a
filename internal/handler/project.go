package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/service"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/storage"
)

// multipartMemory is how much of an upload is held in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// =============================================================================
// Handler Configuration
// =============================================================================

// ProjectHandler handles projects and their generated artifacts.
type ProjectHandler struct {
	projects      service.ProjectService
	maxUploadSize int64
	logger        *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projects service.ProjectService, maxUploadSize int64, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projects:      projects,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

// =============================================================================
// Route Registration
// =============================================================================

// RegisterRoutes registers all project routes with the provided mux.
//
// Routes:
// - POST   /projects                    -> Create
// - GET    /projects                    -> List
// - GET    /projects/{id}               -> Get
// - DELETE /projects/{id}               -> Delete
// - POST   /projects/{id}/presentations -> CreatePresentation
// - GET    /projects/{id}/presentations -> ListPresentations
// - POST   /projects/{id}/reports       -> RequestReport
// - GET    /reports/{id}                -> GetReport
func (h *ProjectHandler) RegisterRoutes(mux *http.ServeMux, requireUser func(http.Handler) http.Handler) {
	mux.Handle("POST /projects", requireUser(http.HandlerFunc(h.Create)))
	mux.Handle("GET /projects", requireUser(http.HandlerFunc(h.List)))
	mux.Handle("GET /projects/{id}", requireUser(http.HandlerFunc(h.Get)))
	mux.Handle("DELETE /projects/{id}", requireUser(http.HandlerFunc(h.Delete)))
	mux.Handle("POST /projects/{id}/presentations", requireUser(http.HandlerFunc(h.CreatePresentation)))
	mux.Handle("GET /projects/{id}/presentations", requireUser(http.HandlerFunc(h.ListPresentations)))
	mux.Handle("POST /projects/{id}/reports", requireUser(http.HandlerFunc(h.RequestReport)))
	mux.Handle("GET /reports/{id}", requireUser(http.HandlerFunc(h.GetReport)))
}

// =============================================================================
// Projects
// =============================================================================

// Create uploads a document and starts analysis. The body is multipart
// with a "title" field and a "file" part.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	const op = "ProjectHandler.Create"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if h.maxUploadSize > 0 {
		// Room for the multipart envelope and the title field
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+1<<20)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			ErrorResponse(w, r, h.logger, domain.Errorf(domain.ETOOLARGE, op, "File is too large"))
			return
		}
		ErrorResponse(w, r, h.logger, domain.Invalid(op, "Request must be multipart/form-data"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		ErrorResponse(w, r, h.logger, domain.NewValidationError(op, "file", "is required"))
		return
	}
	defer file.Close()

	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to read upload"))
		return
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		ErrorResponse(w, r, h.logger, domain.Internal(err, op, "Failed to read upload"))
		return
	}

	fileName := filepath.Base(header.Filename)
	contentType := storage.DetectContentType(header.Header.Get("Content-Type"), fileName, head[:n])

	project, err := h.projects.CreateProject(r.Context(), domain.CreateProjectParams{
		UserID:      user.ID,
		Role:        user.Role,
		Title:       strings.TrimSpace(r.FormValue("title")),
		FileName:    fileName,
		ContentType: contentType,
		FileSize:    header.Size,
	}, file)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"project": toProjectResponse(project)})
}

// List returns the caller's projects, newest first.
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := requestUser(r, "ProjectHandler.List")
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	limit, offset := pagination(r)
	projects, err := h.projects.ListProjects(r.Context(), user.ID, limit, offset)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]projectResponse, 0, len(projects))
	for i := range projects {
		out = append(out, toProjectResponse(&projects[i]))
	}
	writeOK(w, map[string]any{"projects": out})
}

// Get returns one project with its analysis.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	const op = "ProjectHandler.Get"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	projectID, err := pathUUID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	project, err := h.projects.GetProject(r.Context(), user.ID, projectID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]any{"project": toProjectResponse(project)})
}

// Delete removes a project and its stored files.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	const op = "ProjectHandler.Delete"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	projectID, err := pathUUID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	if err := h.projects.DeleteProject(r.Context(), user.ID, projectID); err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]bool{"success": true})
}

// =============================================================================
// Presentations and Reports
// =============================================================================

// CreatePresentation queues slide generation for an analyzed project.
func (h *ProjectHandler) CreatePresentation(w http.ResponseWriter, r *http.Request) {
	const op = "ProjectHandler.CreatePresentation"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	projectID, err := pathUUID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	pres, err := h.projects.CreatePresentation(r.Context(), user.ID, user.Role, projectID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"presentation": toPresentationResponse(pres)})
}

// ListPresentations returns a project's presentations.
func (h *ProjectHandler) ListPresentations(w http.ResponseWriter, r *http.Request) {
	const op = "ProjectHandler.ListPresentations"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	projectID, err := pathUUID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	list, err := h.projects.ListPresentations(r.Context(), user.ID, projectID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	out := make([]presentationResponse, 0, len(list))
	for i := range list {
		out = append(out, toPresentationResponse(&list[i]))
	}
	writeOK(w, map[string]any{"presentations": out})
}

// RequestReport queues PDF report generation.
func (h *ProjectHandler) RequestReport(w http.ResponseWriter, r *http.Request) {
	const op = "ProjectHandler.RequestReport"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	projectID, err := pathUUID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	report, err := h.projects.RequestReport(r.Context(), user.ID, projectID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"report": toReportResponse(report)})
}

// GetReport returns a report's status and, once completed, its download URL.
func (h *ProjectHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	const op = "ProjectHandler.GetReport"

	user, err := requestUser(r, op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	reportID, err := pathUUID(r, "id", op)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	report, err := h.projects.GetReport(r.Context(), user.ID, reportID)
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}
	writeOK(w, map[string]any{"report": toReportResponse(report)})
}
