package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Provider defines the interface for AI-powered business document analysis
type Provider interface {
	// AnalyzeDocument reads a company document and produces an advisory analysis
	AnalyzeDocument(ctx context.Context, params AnalyzeDocumentParams) (*DocumentAnalysis, error)

	// GeneratePresentation turns an analysis into slide content
	GeneratePresentation(ctx context.Context, params GeneratePresentationParams) (*PresentationContent, error)
}

// AnalyzeDocumentParams contains parameters for document analysis
type AnalyzeDocumentParams struct {
	Text        string    // Extracted document text
	FileName    string    // Original file name, used as a hint
	Title       string    // Project title
	CompanyName string    // Optional company context
	ProjectID   uuid.UUID // Project ID for tracking
	UserID      uuid.UUID // User ID for tracking
}

// GeneratePresentationParams contains parameters for presentation generation
type GeneratePresentationParams struct {
	Title       string
	CompanyName string
	Analysis    DocumentAnalysis
	SlideCount  int // Target number of slides; 0 uses DefaultSlideCount
	ProjectID   uuid.UUID
	UserID      uuid.UUID
}

// DefaultSlideCount is used when GeneratePresentationParams.SlideCount is zero.
const DefaultSlideCount = 8

// DocumentAnalysis is the structured advisory output for one document
type DocumentAnalysis struct {
	Summary         string    `json:"summary"`
	KeyFindings     []string  `json:"key_findings"`
	Risks           []string  `json:"risks"`
	Recommendations []string  `json:"recommendations"`
	Usage           UsageInfo `json:"-"`
}

// MarshalAnalysis encodes an analysis for storage on the project row.
func MarshalAnalysis(a *DocumentAnalysis) (string, error) {
	b, err := json.Marshal(a)
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}
	return string(b), nil
}

// ParseAnalysis decodes a stored analysis. Text that is not a JSON object is
// treated as a plain summary.
func ParseAnalysis(stored string) DocumentAnalysis {
	var a DocumentAnalysis
	trimmed := strings.TrimSpace(stored)
	if strings.HasPrefix(trimmed, "{") && json.Unmarshal([]byte(trimmed), &a) == nil {
		return a
	}
	return DocumentAnalysis{Summary: trimmed}
}

// PresentationContent is the generated slide deck
type PresentationContent struct {
	Title  string    `json:"title"`
	Slides []Slide   `json:"slides"`
	Usage  UsageInfo `json:"-"`
}

// Slide is a single presentation slide
type Slide struct {
	Title   string   `json:"title"`
	Bullets []string `json:"bullets"`
	Notes   string   `json:"notes,omitempty"`
}

// UsageInfo tracks API usage for monitoring
type UsageInfo struct {
	Model        string        // AI model used
	InputTokens  int           // Tokens in the request
	OutputTokens int           // Tokens in the response
	Duration     time.Duration // Request duration
}

// ProviderConfig contains common configuration for AI providers
type ProviderConfig struct {
	MaxRetries     int           // Maximum retry attempts for transient errors
	RetryBaseDelay time.Duration // Base delay for exponential backoff
	RequestTimeout time.Duration // Timeout for individual requests
}

// MaxDocumentChars caps the document text sent to a provider.
const MaxDocumentChars = 60000

// Error codes for AI provider operations
var (
	// EAIRateLimit indicates the API rate limit has been exceeded
	EAIRateLimit = errors.New("ai provider rate limit exceeded")

	// EAIInvalidInput indicates the document is empty or unusable
	EAIInvalidInput = errors.New("invalid document content")

	// EAIContentPolicy indicates the content violates provider policy
	EAIContentPolicy = errors.New("content violates provider policy")

	// EAITimeout indicates the request timed out
	EAITimeout = errors.New("ai request timed out")

	// EAIUnavailable indicates the AI service is temporarily unavailable
	EAIUnavailable = errors.New("ai service temporarily unavailable")

	// EAIUnauthorized indicates invalid API credentials
	EAIUnauthorized = errors.New("ai provider authentication failed")

	// EAIMalformedOutput indicates the model returned something we could not parse
	EAIMalformedOutput = errors.New("ai provider returned malformed output")
)

// IsRetryable returns true if the error is a transient error that can be retried
func IsRetryable(err error) bool {
	return errors.Is(err, EAIRateLimit) ||
		errors.Is(err, EAITimeout) ||
		errors.Is(err, EAIUnavailable)
}

// WrapError wraps an error with context about the AI operation
func WrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("ai %s: %w", operation, err)
}

// ExtractText returns analyzable text from a document. Text formats are used
// as-is; for binary formats the printable runs are kept, which recovers most
// of the body text of uncompressed PDFs and HWP previews.
func ExtractText(content []byte, isText bool) string {
	var text string
	if isText {
		text = string(content)
		if !utf8.ValidString(text) {
			text = string([]rune(text))
		}
	} else {
		text = printableRuns(content, 4)
	}
	return Truncate(text, MaxDocumentChars)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}

func printableRuns(content []byte, minRun int) string {
	var out, run []rune
	flush := func() {
		if len(run) >= minRun {
			if len(out) > 0 {
				out = append(out, ' ')
			}
			out = append(out, run...)
		}
		run = run[:0]
	}
	for len(content) > 0 {
		r, size := utf8.DecodeRune(content)
		content = content[size:]
		if r != utf8.RuneError && (unicode.IsPrint(r) || r == ' ') {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()
	return string(out)
}
