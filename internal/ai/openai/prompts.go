package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
)

const analysisSystemPrompt = `You are a senior management consultant advising small and mid-sized companies. You read internal business documents (business plans, financial statements, IR decks, operating reports) and give concise, practical advice.

Respond in the same language as the document. When the document is in Korean, answer in Korean.

Return your analysis as a JSON object with this exact structure:

{
  "summary": "3-5 sentence executive summary of the business and its current position",
  "key_findings": ["Specific, evidence-based observation", "..."],
  "risks": ["Material risk with a short explanation", "..."],
  "recommendations": ["Concrete, prioritized action the company can take", "..."]
}

Guidelines:
- Only use facts present in the document; do not invent figures
- Give 3 to 7 items per list
- Prefer actionable recommendations over generic advice

Return ONLY the JSON object.`

const presentationSystemPrompt = `You turn a consulting analysis into a concise slide deck for company executives.

Respond in the same language as the analysis.

Return a JSON object with this exact structure:

{
  "title": "Deck title",
  "slides": [
    {"title": "Slide title", "bullets": ["Short bullet", "..."], "notes": "Optional speaker notes"}
  ]
}

Guidelines:
- The first slide is an executive summary; the last slide lists next steps
- At most 5 bullets per slide, each under 20 words

Return ONLY the JSON object.`

func buildAnalysisPrompt(params ai.AnalyzeDocumentParams) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", params.Title)
	if params.CompanyName != "" {
		fmt.Fprintf(&b, "Company: %s\n", params.CompanyName)
	}
	if params.FileName != "" {
		fmt.Fprintf(&b, "File: %s\n", params.FileName)
	}
	b.WriteString("\nDocument content:\n")
	b.WriteString(params.Text)
	return b.String()
}

func buildPresentationPrompt(params ai.GeneratePresentationParams, slideCount int) (string, error) {
	analysis, err := json.Marshal(params.Analysis)
	if err != nil {
		return "", fmt.Errorf("marshal analysis: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", params.Title)
	if params.CompanyName != "" {
		fmt.Fprintf(&b, "Company: %s\n", params.CompanyName)
	}
	fmt.Fprintf(&b, "Number of slides: %d\n\nAnalysis:\n", slideCount)
	b.Write(analysis)
	return b.String(), nil
}
