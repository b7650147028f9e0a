package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProject_TransitionTo(t *testing.T) {
	tests := []struct {
		name      string
		from      ProjectStatus
		to        ProjectStatus
		wantErr   bool
		wantState ProjectStatus
	}{
		// Valid transitions
		{"uploaded to analyzing", ProjectStatusUploaded, ProjectStatusAnalyzing, false, ProjectStatusAnalyzing},
		{"analyzing to analyzed", ProjectStatusAnalyzing, ProjectStatusAnalyzed, false, ProjectStatusAnalyzed},
		{"analyzing to failed", ProjectStatusAnalyzing, ProjectStatusFailed, false, ProjectStatusFailed},
		{"analyzing back to uploaded", ProjectStatusAnalyzing, ProjectStatusUploaded, false, ProjectStatusUploaded},
		{"failed to analyzing", ProjectStatusFailed, ProjectStatusAnalyzing, false, ProjectStatusAnalyzing},
		{"analyzed to analyzing", ProjectStatusAnalyzed, ProjectStatusAnalyzing, false, ProjectStatusAnalyzing},

		// Invalid transitions
		{"uploaded to analyzed", ProjectStatusUploaded, ProjectStatusAnalyzed, true, ProjectStatusUploaded},
		{"analyzed to failed", ProjectStatusAnalyzed, ProjectStatusFailed, true, ProjectStatusAnalyzed},
		{"failed to analyzed", ProjectStatusFailed, ProjectStatusAnalyzed, true, ProjectStatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			project := &Project{Status: tt.from}
			err := project.TransitionTo(tt.to)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), "cannot transition")
				assert.Equal(t, tt.from, project.Status)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tt.wantState, project.Status)
			}
		})
	}
}
