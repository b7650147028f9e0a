package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/storage"
	"github.com/stretchr/testify/require"
)

// memStore implements the queries the job handlers use. Calling anything
// else panics through the nil embedded Querier.
type memStore struct {
	repository.Querier
	mu            sync.Mutex
	users         map[uuid.UUID]repository.User
	projects      map[uuid.UUID]repository.Project
	presentations map[uuid.UUID]repository.Presentation
	reports       map[uuid.UUID]repository.Report
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[uuid.UUID]repository.User{},
		projects:      map[uuid.UUID]repository.Project{},
		presentations: map[uuid.UUID]repository.Presentation{},
		reports:       map[uuid.UUID]repository.Report{},
	}
}

func (s *memStore) ExecTx(ctx context.Context, fn func(repository.Querier) error) error {
	return fn(s)
}

func (s *memStore) GetUserByID(ctx context.Context, id uuid.UUID) (repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return repository.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (s *memStore) GetProjectByID(ctx context.Context, id uuid.UUID) (repository.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return repository.Project{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *memStore) UpdateProjectStatus(ctx context.Context, arg repository.UpdateProjectStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[arg.ID]; ok {
		p.Status = arg.Status
		p.ErrorMessage = arg.ErrorMessage
		s.projects[arg.ID] = p
	}
	return nil
}

func (s *memStore) UpdateProjectAnalysis(ctx context.Context, arg repository.UpdateProjectAnalysisParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.projects[arg.ID]; ok {
		p.Status = "analyzed"
		p.Analysis = sql.NullString{String: arg.Analysis, Valid: true}
		p.ErrorMessage = sql.NullString{}
		s.projects[arg.ID] = p
	}
	return nil
}

func (s *memStore) GetPresentationByID(ctx context.Context, id uuid.UUID) (repository.Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.presentations[id]
	if !ok {
		return repository.Presentation{}, sql.ErrNoRows
	}
	return p, nil
}

func (s *memStore) UpdatePresentationStatus(ctx context.Context, arg repository.UpdatePresentationStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.presentations[arg.ID]; ok {
		p.Status = arg.Status
		p.ErrorMessage = arg.ErrorMessage
		s.presentations[arg.ID] = p
	}
	return nil
}

func (s *memStore) UpdatePresentationContent(ctx context.Context, arg repository.UpdatePresentationContentParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.presentations[arg.ID]; ok {
		p.Status = "completed"
		p.Content = sql.NullString{String: arg.Content, Valid: true}
		s.presentations[arg.ID] = p
	}
	return nil
}

func (s *memStore) GetReportByID(ctx context.Context, id uuid.UUID) (repository.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[id]
	if !ok {
		return repository.Report{}, sql.ErrNoRows
	}
	return r, nil
}

func (s *memStore) UpdateReportStatus(ctx context.Context, arg repository.UpdateReportStatusParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[arg.ID]; ok {
		r.Status = arg.Status
		r.ErrorMessage = arg.ErrorMessage
		s.reports[arg.ID] = r
	}
	return nil
}

func (s *memStore) UpdateReportCompleted(ctx context.Context, arg repository.UpdateReportCompletedParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.reports[arg.ID]; ok {
		r.Status = "completed"
		r.FileKey = sql.NullString{String: arg.FileKey, Valid: true}
		r.FileSize = sql.NullInt64{Int64: arg.FileSize, Valid: true}
		r.CompletedAt = sql.NullTime{Time: time.Now(), Valid: true}
		s.reports[arg.ID] = r
	}
	return nil
}

func (s *memStore) project(id uuid.UUID) repository.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[id]
}

// =============================================================================
// Fixtures
// =============================================================================

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store *memStore
	blobs *storage.LocalStorage
	user  repository.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	blobs, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files",
	}, discardLogger())
	require.NoError(t, err)

	store := newMemStore()
	user := repository.User{
		ID:          uuid.New(),
		Email:       "owner@example.com",
		Name:        "Park Seoyeon",
		CompanyName: sql.NullString{String: "Mirae Foods", Valid: true},
		Role:        "user",
	}
	store.users[user.ID] = user
	return &fixture{store: store, blobs: blobs, user: user}
}

// uploadedProject stores a document and returns its project row.
func (f *fixture) uploadedProject(t *testing.T, body string) repository.Project {
	t.Helper()
	id := uuid.New()
	key := storage.DocumentKey(f.user.ID, id, "plan.txt")
	require.NoError(t, f.blobs.Put(context.Background(), key, strings.NewReader(body), storage.PutOptions{ContentType: "text/plain"}))

	p := repository.Project{
		ID:          id,
		UserID:      f.user.ID,
		Title:       "Expansion plan",
		Status:      "uploaded",
		FileKey:     key,
		FileName:    "plan.txt",
		ContentType: "text/plain",
		FileSize:    int64(len(body)),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.store.projects[id] = p
	return p
}

// analyzedProject returns a project that already has a stored analysis.
func (f *fixture) analyzedProject(t *testing.T) repository.Project {
	t.Helper()
	p := f.uploadedProject(t, "plan body")
	p.Status = "analyzed"
	p.Analysis = sql.NullString{
		String: `{"summary":"Margins are healthy","key_findings":["Sales up"],"risks":["FX exposure"],"recommendations":["Hedge USD"]}`,
		Valid:  true,
	}
	f.store.projects[p.ID] = p
	return p
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
