package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
)

// Provider is a mock AI provider for testing and development
type Provider struct {
	logger *slog.Logger
	mu     sync.Mutex

	// Configurable responses for testing
	AnalyzeDocumentResponse      *ai.DocumentAnalysis
	AnalyzeDocumentError         error
	GeneratePresentationResponse *ai.PresentationContent
	GeneratePresentationError    error

	// Call tracking for testing
	AnalyzeDocumentCalls      int
	GeneratePresentationCalls int
	LastAnalyzeParams         ai.AnalyzeDocumentParams
	LastPresentationParams    ai.GeneratePresentationParams
}

// New creates a new mock AI provider
func New(logger *slog.Logger) *Provider {
	return &Provider{
		logger: logger,
	}
}

// AnalyzeDocument returns a canned advisory analysis
func (p *Provider) AnalyzeDocument(ctx context.Context, params ai.AnalyzeDocumentParams) (*ai.DocumentAnalysis, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AnalyzeDocumentCalls++
	p.LastAnalyzeParams = params

	// If a custom response or error is set, use it
	if p.AnalyzeDocumentError != nil {
		return nil, p.AnalyzeDocumentError
	}
	if p.AnalyzeDocumentResponse != nil {
		return p.AnalyzeDocumentResponse, nil
	}

	// Default canned response
	return &ai.DocumentAnalysis{
		Summary: fmt.Sprintf("%s describes a growing business with solid unit economics but a narrow customer base.", params.Title),
		KeyFindings: []string{
			"Revenue grew faster than operating expenses over the last two years",
			"Gross margin is stable and above the industry median",
			"Top three customers account for most of the revenue",
		},
		Risks: []string{
			"Customer concentration exposes revenue to a single contract loss",
			"Working capital is tight relative to planned hiring",
		},
		Recommendations: []string{
			"Diversify the sales pipeline with two new target segments",
			"Secure a revolving credit line before the hiring plan starts",
			"Introduce monthly KPI reviews for the leadership team",
		},
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  1250,
			OutputTokens: 450,
			Duration:     250 * time.Millisecond,
		},
	}, nil
}

// GeneratePresentation builds slides from the analysis it is given
func (p *Provider) GeneratePresentation(ctx context.Context, params ai.GeneratePresentationParams) (*ai.PresentationContent, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.GeneratePresentationCalls++
	p.LastPresentationParams = params

	if p.GeneratePresentationError != nil {
		return nil, p.GeneratePresentationError
	}
	if p.GeneratePresentationResponse != nil {
		return p.GeneratePresentationResponse, nil
	}

	analysis := params.Analysis
	return &ai.PresentationContent{
		Title: params.Title,
		Slides: []ai.Slide{
			{Title: "Executive Summary", Bullets: []string{analysis.Summary}},
			{Title: "Key Findings", Bullets: analysis.KeyFindings},
			{Title: "Risks", Bullets: analysis.Risks},
			{Title: "Next Steps", Bullets: analysis.Recommendations},
		},
		Usage: ai.UsageInfo{
			Model:        "mock-ai-v1",
			InputTokens:  600,
			OutputTokens: 300,
			Duration:     150 * time.Millisecond,
		},
	}, nil
}

// Reset clears call counters and custom responses for testing
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.AnalyzeDocumentCalls = 0
	p.GeneratePresentationCalls = 0
	p.AnalyzeDocumentResponse = nil
	p.AnalyzeDocumentError = nil
	p.GeneratePresentationResponse = nil
	p.GeneratePresentationError = nil
}

var _ ai.Provider = (*Provider)(nil)
