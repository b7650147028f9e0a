package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionBody(content string) string {
	body, _ := json.Marshal(map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "gpt-4o-mini",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}, "finish_reason": "stop"},
		},
		"usage": map[string]int{"prompt_tokens": 120, "completion_tokens": 80, "total_tokens": 200},
	})
	return string(body)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := New(Config{
		APIKey:  "sk-test",
		BaseURL: srv.URL + "/v1",
		ProviderConfig: ai.ProviderConfig{
			MaxRetries:     3,
			RetryBaseDelay: time.Millisecond,
			RequestTimeout: 5 * time.Second,
		},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return p
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, slog.Default())
	assert.Error(t, err)
}

func TestAnalyzeDocument(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, DefaultModel, req["model"])

		io.WriteString(w, completionBody(`{"summary":"Healthy growth.","key_findings":["Revenue up 20%"],"risks":["Customer concentration"],"recommendations":["Diversify sales channels"]}`))
	})

	got, err := p.AnalyzeDocument(context.Background(), ai.AnalyzeDocumentParams{Title: "FY24 plan", Text: "Revenue grew 20%."})
	require.NoError(t, err)
	assert.Equal(t, "Healthy growth.", got.Summary)
	assert.Equal(t, []string{"Revenue up 20%"}, got.KeyFindings)
	assert.Equal(t, 120, got.Usage.InputTokens)
	assert.Equal(t, 80, got.Usage.OutputTokens)
}

func TestAnalyzeDocument_EmptyText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := p.AnalyzeDocument(context.Background(), ai.AnalyzeDocumentParams{Text: "  "})
	assert.ErrorIs(t, err, ai.EAIInvalidInput)
}

func TestAnalyzeDocument_MalformedOutput(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completionBody(`not json`))
	})
	_, err := p.AnalyzeDocument(context.Background(), ai.AnalyzeDocumentParams{Text: "x"})
	assert.ErrorIs(t, err, ai.EAIMalformedOutput)
}

func TestGeneratePresentation_FencedJSON(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, completionBody("```json\n{\"slides\":[{\"title\":\"Summary\",\"bullets\":[\"a\",\"b\"]}]}\n```"))
	})

	got, err := p.GeneratePresentation(context.Background(), ai.GeneratePresentationParams{
		Title:    "FY24 plan",
		Analysis: ai.DocumentAnalysis{Summary: "s"},
	})
	require.NoError(t, err)
	assert.Equal(t, "FY24 plan", got.Title)
	require.Len(t, got.Slides, 1)
	assert.Equal(t, []string{"a", "b"}, got.Slides[0].Bullets)
}

func TestRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		io.WriteString(w, completionBody(`{"summary":"ok"}`))
	})

	got, err := p.AnalyzeDocument(context.Background(), ai.AnalyzeDocumentParams{Text: "x"})
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Summary)
	assert.Equal(t, int32(3), calls.Load())
}

func TestNoRetryOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"bad key","type":"invalid_request_error"}}`)
	})

	_, err := p.AnalyzeDocument(context.Background(), ai.AnalyzeDocumentParams{Text: "x"})
	assert.True(t, errors.Is(err, ai.EAIUnauthorized))
	assert.Equal(t, int32(1), calls.Load())
}
