// Package domain contains core business types and interfaces.
//
// This file defines projects (uploaded company documents) and the artifacts
// generated from them.
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// Project Status
// =============================================================================

// ProjectStatus represents the lifecycle state of a project.
type ProjectStatus string

const (
	// ProjectStatusUploaded indicates the document is stored and analysis is queued.
	ProjectStatusUploaded ProjectStatus = "uploaded"

	// ProjectStatusAnalyzing indicates the AI analysis job is running.
	ProjectStatusAnalyzing ProjectStatus = "analyzing"

	// ProjectStatusAnalyzed indicates the analysis text is available.
	ProjectStatusAnalyzed ProjectStatus = "analyzed"

	// ProjectStatusFailed indicates analysis gave up after retries.
	ProjectStatusFailed ProjectStatus = "failed"
)

// String returns the string representation of the status.
func (s ProjectStatus) String() string {
	return string(s)
}

// IsValid returns true if the status is a recognized value.
func (s ProjectStatus) IsValid() bool {
	switch s {
	case ProjectStatusUploaded, ProjectStatusAnalyzing,
		ProjectStatusAnalyzed, ProjectStatusFailed:
		return true
	}
	return false
}

// CanTransitionTo checks if the project can move to the target status.
//
// Valid transitions:
// - uploaded -> analyzing
// - analyzing -> analyzed | failed | uploaded (retry)
// - failed -> analyzing (manual re-run)
// - analyzed -> analyzing (re-analysis)
func (s ProjectStatus) CanTransitionTo(target ProjectStatus) bool {
	switch s {
	case ProjectStatusUploaded:
		return target == ProjectStatusAnalyzing
	case ProjectStatusAnalyzing:
		return target == ProjectStatusAnalyzed ||
			target == ProjectStatusFailed ||
			target == ProjectStatusUploaded
	case ProjectStatusFailed, ProjectStatusAnalyzed:
		return target == ProjectStatusAnalyzing
	}
	return false
}

// =============================================================================
// Project Domain Type
// =============================================================================

// Project is one uploaded document and its analysis.
type Project struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Title        string
	Status       ProjectStatus
	FileKey      string // Blob store key
	FileName     string
	ContentType  string
	FileSize     int64
	Analysis     string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TransitionTo moves the project to target or returns an error.
func (p *Project) TransitionTo(target ProjectStatus) error {
	if !p.Status.CanTransitionTo(target) {
		return fmt.Errorf("cannot transition project from %s to %s", p.Status, target)
	}
	p.Status = target
	return nil
}

// IsAnalyzed returns true once analysis text is available.
func (p *Project) IsAnalyzed() bool {
	return p.Status == ProjectStatusAnalyzed
}

// CreateProjectParams contains parameters for creating a project.
type CreateProjectParams struct {
	UserID      uuid.UUID
	Role        Role
	Title       string
	FileName    string
	ContentType string
	FileSize    int64
}

// =============================================================================
// Generated Artifacts
// =============================================================================

// ArtifactStatus is shared by presentations and reports.
type ArtifactStatus string

const (
	ArtifactStatusPending    ArtifactStatus = "pending"
	ArtifactStatusGenerating ArtifactStatus = "generating"
	ArtifactStatusCompleted  ArtifactStatus = "completed"
	ArtifactStatusFailed     ArtifactStatus = "failed"
)

// Presentation is an AI-generated slide outline for a project.
type Presentation struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	UserID       uuid.UUID
	Status       ArtifactStatus
	Content      string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Report is a PDF rendering of a project's analysis.
type Report struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	UserID       uuid.UUID
	Status       ArtifactStatus
	FileKey      string
	FileSize     int64
	URL          string // Populated by the service when completed
	ErrorMessage string
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

// MaxProjectTitleLength bounds project titles.
const MaxProjectTitleLength = 200
