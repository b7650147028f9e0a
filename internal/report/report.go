// Package report renders project analyses as downloadable PDF reports.
//
// The Generator interface is implemented by PDFGenerator. Shared helpers for
// colors and text formatting live here so additional formats can reuse them.
package report

import (
	"context"
	"io"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
)

// =============================================================================
// Generator Interface
// =============================================================================

// Generator defines the interface for report generators.
type Generator interface {
	// Generate creates a report and writes it to the provided writer.
	// Returns the number of bytes written and any error.
	Generate(ctx context.Context, data *Data, w io.Writer) (int64, error)

	// ContentType is the MIME type of the generated document.
	ContentType() string
}

// Data is everything a report needs about one analyzed project.
type Data struct {
	Title       string
	FileName    string
	PreparedFor string // Account holder name
	CompanyName string
	Analysis    ai.DocumentAnalysis
	AnalyzedAt  time.Time
	GeneratedAt time.Time
}

// IsEmpty reports whether the analysis has nothing to render.
func (d *Data) IsEmpty() bool {
	a := d.Analysis
	return a.Summary == "" && len(a.KeyFindings) == 0 &&
		len(a.Risks) == 0 && len(a.Recommendations) == 0
}

// =============================================================================
// Brand Colors
// =============================================================================

// BrandColors defines the color palette for reports.
var BrandColors = struct {
	Navy       string // Primary brand color
	Accent     string // Highlights and list markers
	Risk       string // Risk section marker
	TextDark   string // Primary text
	TextMuted  string // Secondary text
	Border     string // Borders and dividers
	Background string // Light background
}{
	Navy:       "#1E3A5F",
	Accent:     "#2563EB",
	Risk:       "#DC2626",
	TextDark:   "#1F2937",
	TextMuted:  "#6B7280",
	Border:     "#E5E7EB",
	Background: "#F9FAFB",
}

// =============================================================================
// Color Conversion Helpers
// =============================================================================

// HexToRGB converts a hex color string to RGB values.
// Input format: "#RRGGBB" or "RRGGBB"
func HexToRGB(hex string) (r, g, b int) {
	if len(hex) > 0 && hex[0] == '#' {
		hex = hex[1:]
	}
	if len(hex) != 6 {
		return 0, 0, 0
	}

	r = hexToDec(hex[0:2])
	g = hexToDec(hex[2:4])
	b = hexToDec(hex[4:6])
	return
}

// hexToDec converts a 2-character hex string to decimal.
func hexToDec(hex string) int {
	val := 0
	for _, c := range hex {
		val *= 16
		switch {
		case c >= '0' && c <= '9':
			val += int(c - '0')
		case c >= 'a' && c <= 'f':
			val += int(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			val += int(c - 'A' + 10)
		}
	}
	return val
}

// =============================================================================
// Text Formatting Helpers
// =============================================================================

// TruncateText truncates text to at most maxLen runes, adding an ellipsis
// if needed.
func TruncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// FormatDate formats a date for display in reports.
func FormatDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// FormatDateTime formats a datetime for display in reports.
func FormatDateTime(t time.Time) string {
	return t.Format("January 2, 2006 at 3:04 PM")
}
