package report

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// =============================================================================
// PDF Generator
// =============================================================================

// PDFGenerator generates PDF reports from project analyses.
type PDFGenerator struct {
	// Page dimensions (A4 in mm)
	pageWidth  float64
	pageHeight float64
	margin     float64

	// Content area
	contentWidth float64

	// utf8Font is a TTF file registered for every style. Without it the
	// core Helvetica font is used and text is mapped to cp1252, which drops
	// Hangul.
	utf8Font string
}

// PDFOption configures a PDFGenerator.
type PDFOption func(*PDFGenerator)

// WithUTF8Font renders text with the TrueType font at path.
func WithUTF8Font(path string) PDFOption {
	return func(g *PDFGenerator) {
		g.utf8Font = path
	}
}

// NewPDFGenerator creates a new PDF generator with default settings.
func NewPDFGenerator(opts ...PDFOption) *PDFGenerator {
	margin := 15.0
	pageWidth := 210.0 // A4 width in mm
	g := &PDFGenerator{
		pageWidth:    pageWidth,
		pageHeight:   297.0, // A4 height in mm
		margin:       margin,
		contentWidth: pageWidth - (2 * margin),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ContentType returns the MIME type of generated reports.
func (g *PDFGenerator) ContentType() string {
	return "application/pdf"
}

const utf8FontFamily = "Body"

// doc bundles a document with the font family and text translation in use.
type doc struct {
	*fpdf.Fpdf
	family string
	tr     func(string) string
}

func (d *doc) font(style string, size float64) {
	d.SetFont(d.family, style, size)
}

// Generate creates a PDF report and writes it to the provided writer.
func (g *PDFGenerator) Generate(ctx context.Context, data *Data, w io.Writer) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	pdf := &doc{Fpdf: fpdf.New("P", "mm", "A4", ""), family: "Helvetica"}
	if g.utf8Font != "" {
		for _, style := range []string{"", "B", "I"} {
			pdf.AddUTF8Font(utf8FontFamily, style, g.utf8Font)
		}
		pdf.family = utf8FontFamily
		pdf.tr = func(s string) string { return s }
	} else {
		pdf.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}

	// Set document metadata
	pdf.SetTitle("Business Analysis Report - "+data.Title, true)
	pdf.SetAuthor(data.PreparedFor, true)
	pdf.SetCreator("Corporate AI Advisor", true)

	// Enable automatic page breaks with footer space
	pdf.SetAutoPageBreak(true, 20)

	pdf.SetFooterFunc(func() {
		g.addFooter(pdf, data)
	})

	g.addCoverPage(pdf, data)
	g.addSummary(pdf, data)
	g.addList(pdf, "Key Findings", data.Analysis.KeyFindings, BrandColors.Accent)
	g.addList(pdf, "Risks", data.Analysis.Risks, BrandColors.Risk)
	g.addList(pdf, "Recommendations", data.Analysis.Recommendations, BrandColors.Navy)

	if err := pdf.Error(); err != nil {
		return 0, fmt.Errorf("pdf generation error: %w", err)
	}

	// Write to buffer to count bytes
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return 0, fmt.Errorf("pdf output error: %w", err)
	}

	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

// =============================================================================
// Cover Page
// =============================================================================

func (g *PDFGenerator) addCoverPage(pdf *doc, data *Data) {
	pdf.AddPage()

	// Navy header bar
	r, gr, b := HexToRGB(BrandColors.Navy)
	pdf.SetFillColor(r, gr, b)
	pdf.Rect(0, 0, g.pageWidth, 70, "F")

	pdf.SetTextColor(255, 255, 255)
	pdf.font("B", 28)
	pdf.SetXY(g.margin, 25)
	pdf.Cell(0, 12, pdf.tr("Business Analysis Report"))

	pdf.font("", 14)
	pdf.SetXY(g.margin, 42)
	pdf.Cell(0, 8, pdf.tr(TruncateText(data.Title, 70)))

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)

	pdf.SetXY(g.margin, 90)
	g.addCoverBlock(pdf, "PREPARED FOR", data.PreparedFor, data.CompanyName)
	g.addCoverBlock(pdf, "SOURCE DOCUMENT", data.FileName)
	if !data.AnalyzedAt.IsZero() {
		g.addCoverBlock(pdf, "ANALYZED", FormatDate(data.AnalyzedAt))
	}
}

func (g *PDFGenerator) addCoverBlock(pdf *doc, label string, lines ...string) {
	pdf.font("B", 12)
	pdf.Cell(0, 8, label)
	pdf.Ln(10)
	pdf.font("", 12)
	for _, line := range lines {
		if line == "" {
			continue
		}
		pdf.Cell(0, 7, pdf.tr(line))
		pdf.Ln(7)
	}
	pdf.Ln(8)
}

// =============================================================================
// Analysis Sections
// =============================================================================

func (g *PDFGenerator) addSummary(pdf *doc, data *Data) {
	pdf.AddPage()
	g.addSectionHeader(pdf, "Executive Summary")

	if data.IsEmpty() {
		pdf.font("I", 11)
		pdf.Cell(0, 10, "No analysis is available for this project.")
		return
	}

	pdf.font("", 11)
	pdf.MultiCell(g.contentWidth, 6, pdf.tr(data.Analysis.Summary), "", "L", false)
	pdf.Ln(6)

	// Section counts
	pdf.font("B", 10)
	pdf.SetFillColor(245, 245, 245)
	pdf.CellFormat(80, 8, "Section", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 8, "Items", "1", 1, "C", true, 0, "")

	pdf.font("", 10)
	rows := []struct {
		label string
		count int
		color string
	}{
		{"Key Findings", len(data.Analysis.KeyFindings), BrandColors.Accent},
		{"Risks", len(data.Analysis.Risks), BrandColors.Risk},
		{"Recommendations", len(data.Analysis.Recommendations), BrandColors.Navy},
	}
	for _, row := range rows {
		r, gr, b := HexToRGB(row.color)
		pdf.SetFillColor(r, gr, b)
		pdf.CellFormat(5, 8, "", "1", 0, "C", true, 0, "")
		pdf.CellFormat(75, 8, row.label, "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%d", row.count), "1", 1, "C", false, 0, "")
	}
}

func (g *PDFGenerator) addList(pdf *doc, title string, items []string, color string) {
	if len(items) == 0 {
		return
	}

	// Start a new page unless there is room for the header and an item
	if pdf.GetY() > 220 {
		pdf.AddPage()
	} else {
		pdf.Ln(12)
	}
	g.addSectionHeader(pdf, title)

	for i, item := range items {
		if pdf.GetY() > 250 {
			pdf.AddPage()
		}

		r, gr, b := HexToRGB(color)
		pdf.SetFillColor(r, gr, b)
		pdf.Rect(g.margin, pdf.GetY()+1, 3, 4, "F")

		pdf.SetX(g.margin + 6)
		pdf.font("B", 10)
		pdf.Cell(8, 6, fmt.Sprintf("%d.", i+1))
		pdf.font("", 10)
		pdf.MultiCell(g.contentWidth-14, 6, pdf.tr(item), "", "L", false)
		pdf.Ln(3)
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

func (g *PDFGenerator) addSectionHeader(pdf *doc, title string) {
	r, gr, b := HexToRGB(BrandColors.Navy)
	pdf.SetDrawColor(r, gr, b)
	pdf.SetLineWidth(0.5)

	pdf.font("B", 16)
	pdf.SetTextColor(r, gr, b)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	pdf.Line(g.margin, pdf.GetY(), g.pageWidth-g.margin, pdf.GetY())
	pdf.Ln(8)

	r, gr, b = HexToRGB(BrandColors.TextDark)
	pdf.SetTextColor(r, gr, b)
}

func (g *PDFGenerator) addFooter(pdf *doc, data *Data) {
	pdf.SetY(-15)

	r, gr, b := HexToRGB(BrandColors.Border)
	pdf.SetDrawColor(r, gr, b)
	pdf.Line(g.margin, pdf.GetY()-3, g.pageWidth-g.margin, pdf.GetY()-3)

	r, gr, b = HexToRGB(BrandColors.TextMuted)
	pdf.SetTextColor(r, gr, b)
	pdf.font("", 8)

	// Left: generation date
	pdf.Cell(0, 10, "Generated: "+FormatDateTime(data.GeneratedAt))

	// Right: page number
	pdf.SetX(-g.margin - 30)
	pdf.CellFormat(30, 10, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "R", false, 0, "")
}
