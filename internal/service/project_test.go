package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/domain"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/repository"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/storage"
	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testMaxUpload = 1 << 20

type projectFixture struct {
	store *fakeStore
	blobs *storage.LocalStorage
	svc   ProjectService
	now   time.Time
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()
	store := newFakeStore()
	blobs, err := storage.NewLocalStorage(storage.LocalConfig{
		BasePath: t.TempDir(),
		BaseURL:  "http://localhost:8080/files",
	}, discardLogger())
	require.NoError(t, err)

	now := time.Date(2025, 9, 10, 12, 0, 0, 0, seoul)
	policy := newTestPolicyService(store, now)
	return &projectFixture{
		store: store,
		blobs: blobs,
		svc:   NewProjectService(store, policy, blobs, nil, testMaxUpload, discardLogger()),
		now:   now,
	}
}

func projectParams(userID uuid.UUID) domain.CreateProjectParams {
	return domain.CreateProjectParams{
		UserID:      userID,
		Role:        domain.RoleUser,
		Title:       "2025 Q3 financials",
		FileName:    "q3.txt",
		ContentType: "text/plain",
		FileSize:    11,
	}
}

func (f *projectFixture) analyzed(t *testing.T, userID uuid.UUID) uuid.UUID {
	t.Helper()
	p, err := f.svc.CreateProject(context.Background(), projectParams(userID), strings.NewReader("revenue 10%"))
	require.NoError(t, err)
	require.NoError(t, f.store.UpdateProjectAnalysis(context.Background(), repository.UpdateProjectAnalysisParams{
		ID:       p.ID,
		Analysis: "Revenue grew ten percent.",
	}))
	return p.ID
}

func TestProjectService_CreateProject(t *testing.T) {
	ctx := context.Background()

	t.Run("stores document, records usage and queues analysis", func(t *testing.T) {
		f := newProjectFixture(t)
		f.store.addPolicy("free", 3, 1)
		userID := uuid.New()

		p, err := f.svc.CreateProject(ctx, projectParams(userID), strings.NewReader("revenue 10%"))
		require.NoError(t, err)
		assert.Equal(t, domain.ProjectStatusUploaded, p.Status)
		assert.Equal(t, storage.DocumentKey(userID, p.ID, "q3.txt"), p.FileKey)

		exists, err := f.blobs.Exists(ctx, p.FileKey)
		require.NoError(t, err)
		assert.True(t, exists)

		assert.Equal(t, int32(1), f.store.usageCount(userID, "2025-09", "project"))

		jobs := f.store.queuedJobs()
		require.Len(t, jobs, 1)
		assert.Equal(t, worker.JobTypeAnalyzeProject, jobs[0].JobType)
		var payload worker.AnalyzeProjectPayload
		require.NoError(t, json.Unmarshal(jobs[0].Payload, &payload))
		assert.Equal(t, p.ID, payload.ProjectID)
	})

	t.Run("limit reached is forbidden and stores nothing", func(t *testing.T) {
		f := newProjectFixture(t)
		f.store.addPolicy("free", 1, 1)
		userID := uuid.New()

		_, err := f.svc.CreateProject(ctx, projectParams(userID), strings.NewReader("first"))
		require.NoError(t, err)

		_, err = f.svc.CreateProject(ctx, projectParams(userID), strings.NewReader("second"))
		require.Error(t, err)
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
		assert.Contains(t, domain.ErrorMessage(err), "1/1")

		assert.Equal(t, int32(1), f.store.usageCount(userID, "2025-09", "project"))
		assert.Len(t, f.store.projects, 1)
		assert.Len(t, f.store.queuedJobs(), 1)
	})

	t.Run("paid plan uses its own group", func(t *testing.T) {
		f := newProjectFixture(t)
		f.store.addPolicy("free", 0, 0)
		f.store.addPolicy("pro", 5, 5)
		userID := uuid.New()
		f.store.putSubscription(subscriptionRow(userID, "pro"))

		_, err := f.svc.CreateProject(ctx, projectParams(userID), strings.NewReader("doc"))
		require.NoError(t, err)
	})

	t.Run("missing policy denies", func(t *testing.T) {
		f := newProjectFixture(t)
		_, err := f.svc.CreateProject(ctx, projectParams(uuid.New()), strings.NewReader("doc"))
		assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))
	})

	t.Run("validation", func(t *testing.T) {
		f := newProjectFixture(t)
		f.store.addPolicy("free", 10, 10)
		userID := uuid.New()

		p := projectParams(userID)
		p.Title = "  "
		_, err := f.svc.CreateProject(ctx, p, strings.NewReader("x"))
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

		p = projectParams(userID)
		p.ContentType = "image/png"
		_, err = f.svc.CreateProject(ctx, p, strings.NewReader("x"))
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

		p = projectParams(userID)
		p.FileSize = testMaxUpload + 1
		_, err = f.svc.CreateProject(ctx, p, strings.NewReader("x"))
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

		// Declared size lies; the blob store enforces the cap while streaming.
		p = projectParams(userID)
		_, err = f.svc.CreateProject(ctx, p, bytes.NewReader(make([]byte, testMaxUpload+10)))
		assert.Equal(t, domain.EINVALID, domain.ErrorCode(err))

		assert.Equal(t, int32(0), f.store.usageCount(userID, "2025-09", "project"))
	})

	t.Run("row failure removes uploaded document", func(t *testing.T) {
		f := newProjectFixture(t)
		f.store.addPolicy("free", 10, 10)
		f.store.failOn["CreateProject"] = assert.AnError
		userID := uuid.New()

		_, err := f.svc.CreateProject(ctx, projectParams(userID), strings.NewReader("doc"))
		assert.Equal(t, domain.EINTERNAL, domain.ErrorCode(err))
		assert.Equal(t, int32(0), f.store.usageCount(userID, "2025-09", "project"))
	})
}

func TestProjectService_CreatePresentation(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t)
	f.store.addPolicy("free", 10, 1)
	userID := uuid.New()

	pending, err := f.svc.CreateProject(ctx, projectParams(userID), strings.NewReader("doc"))
	require.NoError(t, err)
	_, err = f.svc.CreatePresentation(ctx, userID, domain.RoleUser, pending.ID)
	assert.Equal(t, domain.EINVALID, domain.ErrorCode(err), "analysis must finish first")

	projectID := f.analyzed(t, userID)

	pres, err := f.svc.CreatePresentation(ctx, userID, domain.RoleUser, projectID)
	require.NoError(t, err)
	assert.Equal(t, projectID, pres.ProjectID)
	assert.Equal(t, int32(1), f.store.usageCount(userID, "2025-09", "presentation"))

	_, err = f.svc.CreatePresentation(ctx, userID, domain.RoleUser, projectID)
	assert.Equal(t, domain.EFORBIDDEN, domain.ErrorCode(err))

	list, err := f.svc.ListPresentations(ctx, userID, projectID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = f.svc.CreatePresentation(ctx, uuid.New(), domain.RoleUser, projectID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err), "other users cannot see the project")

	var types []string
	for _, j := range f.store.queuedJobs() {
		types = append(types, j.JobType)
	}
	assert.Contains(t, types, worker.JobTypeGeneratePresentation)
}

func TestProjectService_Reports(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t)
	f.store.addPolicy("free", 10, 10)
	userID := uuid.New()
	projectID := f.analyzed(t, userID)

	report, err := f.svc.RequestReport(ctx, userID, projectID)
	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactStatusPending, report.Status)

	got, err := f.svc.GetReport(ctx, userID, report.ID)
	require.NoError(t, err)
	assert.Empty(t, got.URL)

	key := storage.ReportKey(userID, projectID, report.ID)
	require.NoError(t, f.blobs.Put(ctx, key, strings.NewReader("%PDF-1.4"), storage.PutOptions{ContentType: "application/pdf"}))
	require.NoError(t, f.store.UpdateReportCompleted(ctx, repository.UpdateReportCompletedParams{ID: report.ID, FileKey: key, FileSize: 8}))

	got, err = f.svc.GetReport(ctx, userID, report.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ArtifactStatusCompleted, got.Status)
	assert.Contains(t, got.URL, key)

	_, err = f.svc.GetReport(ctx, uuid.New(), report.ID)
	assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))

	t.Run("delete removes files but keeps usage", func(t *testing.T) {
		project, err := f.svc.GetProject(ctx, userID, projectID)
		require.NoError(t, err)

		require.NoError(t, f.svc.DeleteProject(ctx, userID, projectID))

		for _, k := range []string{project.FileKey, key} {
			exists, err := f.blobs.Exists(ctx, k)
			require.NoError(t, err)
			assert.False(t, exists, k)
		}
		assert.Equal(t, int32(1), f.store.usageCount(userID, "2025-09", "project"))

		_, err = f.svc.GetProject(ctx, userID, projectID)
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(err))
		assert.Equal(t, domain.ENOTFOUND, domain.ErrorCode(f.svc.DeleteProject(ctx, userID, projectID)))
	})
}

func TestProjectService_ListProjects(t *testing.T) {
	ctx := context.Background()
	f := newProjectFixture(t)
	f.store.addPolicy("free", 10, 10)
	userID := uuid.New()

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateProject(ctx, projectParams(userID), io.LimitReader(strings.NewReader("document body"), 8))
		require.NoError(t, err)
	}
	_, err := f.svc.CreateProject(ctx, projectParams(uuid.New()), strings.NewReader("other"))
	require.NoError(t, err)

	list, err := f.svc.ListProjects(ctx, userID, 2, 0)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = f.svc.ListProjects(ctx, userID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
