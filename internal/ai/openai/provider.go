// Package openai implements ai.Provider on the OpenAI chat completions API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mskim0691/corporate-ai-advisor-sub001/internal/ai"
	goopenai "github.com/sashabaranov/go-openai"
)

// DefaultModel is used when Config.Model is empty
const DefaultModel = goopenai.GPT4oMini

// Config contains configuration for the OpenAI provider
type Config struct {
	APIKey         string
	Model          string
	BaseURL        string // Optional, for compatible gateways and tests
	ProviderConfig ai.ProviderConfig
}

// Provider implements ai.Provider using OpenAI chat completions
type Provider struct {
	config Config
	client *goopenai.Client
	logger *slog.Logger
}

// New creates a new OpenAI provider
func New(config Config, logger *slog.Logger) (*Provider, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}

	// Set defaults
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.ProviderConfig.MaxRetries == 0 {
		config.ProviderConfig.MaxRetries = 3
	}
	if config.ProviderConfig.RetryBaseDelay == 0 {
		config.ProviderConfig.RetryBaseDelay = 1 * time.Second
	}
	if config.ProviderConfig.RequestTimeout == 0 {
		config.ProviderConfig.RequestTimeout = 90 * time.Second
	}

	clientConfig := goopenai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.ProviderConfig.RequestTimeout}

	return &Provider{
		config: config,
		client: goopenai.NewClientWithConfig(clientConfig),
		logger: logger,
	}, nil
}

// AnalyzeDocument asks the model for a structured advisory analysis
func (p *Provider) AnalyzeDocument(ctx context.Context, params ai.AnalyzeDocumentParams) (*ai.DocumentAnalysis, error) {
	if strings.TrimSpace(params.Text) == "" {
		return nil, ai.WrapError("analyze document", ai.EAIInvalidInput)
	}

	var out ai.DocumentAnalysis
	usage, err := p.completeJSON(ctx, analysisSystemPrompt, buildAnalysisPrompt(params), &out)
	if err != nil {
		return nil, ai.WrapError("analyze document", err)
	}
	if out.Summary == "" {
		return nil, ai.WrapError("analyze document", fmt.Errorf("%w: empty summary", ai.EAIMalformedOutput))
	}
	out.Usage = usage
	return &out, nil
}

// GeneratePresentation asks the model for slide content
func (p *Provider) GeneratePresentation(ctx context.Context, params ai.GeneratePresentationParams) (*ai.PresentationContent, error) {
	slideCount := params.SlideCount
	if slideCount <= 0 {
		slideCount = ai.DefaultSlideCount
	}

	prompt, err := buildPresentationPrompt(params, slideCount)
	if err != nil {
		return nil, ai.WrapError("generate presentation", err)
	}

	var out ai.PresentationContent
	usage, err := p.completeJSON(ctx, presentationSystemPrompt, prompt, &out)
	if err != nil {
		return nil, ai.WrapError("generate presentation", err)
	}
	if len(out.Slides) == 0 {
		return nil, ai.WrapError("generate presentation", fmt.Errorf("%w: no slides", ai.EAIMalformedOutput))
	}
	if out.Title == "" {
		out.Title = params.Title
	}
	out.Usage = usage
	return &out, nil
}

// completeJSON runs a JSON-mode chat completion with retries and decodes the
// reply into out.
func (p *Provider) completeJSON(ctx context.Context, system, user string, out any) (ai.UsageInfo, error) {
	start := time.Now()
	req := goopenai.ChatCompletionRequest{
		Model: p.config.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	}

	resp, err := p.executeWithRetry(ctx, req)
	if err != nil {
		return ai.UsageInfo{}, err
	}
	if len(resp.Choices) == 0 {
		return ai.UsageInfo{}, fmt.Errorf("%w: no choices", ai.EAIMalformedOutput)
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return ai.UsageInfo{}, fmt.Errorf("%w: %v", ai.EAIMalformedOutput, err)
	}

	return ai.UsageInfo{
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Duration:     time.Since(start),
	}, nil
}

// executeWithRetry executes a completion with exponential backoff retry
func (p *Provider) executeWithRetry(ctx context.Context, req goopenai.ChatCompletionRequest) (goopenai.ChatCompletionResponse, error) {
	var lastErr error

	for attempt := 1; attempt <= p.config.ProviderConfig.MaxRetries; attempt++ {
		resp, err := p.client.CreateChatCompletion(ctx, req)
		if err == nil {
			return resp, nil
		}

		lastErr = mapError(err)

		// Only retry on retryable errors
		if !ai.IsRetryable(lastErr) {
			return goopenai.ChatCompletionResponse{}, lastErr
		}

		if attempt >= p.config.ProviderConfig.MaxRetries {
			break
		}

		delay := p.config.ProviderConfig.RetryBaseDelay * time.Duration(1<<(attempt-1))
		p.logger.Info("Retrying AI request", "attempt", attempt, "delay", delay, "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return goopenai.ChatCompletionResponse{}, ctx.Err()
		}
	}

	return goopenai.ChatCompletionResponse{}, lastErr
}

// mapError maps OpenAI client errors to ai errors
func mapError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ai.EAITimeout
	}

	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	default:
		// Network errors are typically retryable
		return fmt.Errorf("%w: %v", ai.EAIUnavailable, err)
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ai.EAIUnauthorized
	case status == http.StatusTooManyRequests:
		return ai.EAIRateLimit
	case status == http.StatusRequestTimeout:
		return ai.EAITimeout
	case status == http.StatusBadRequest && apiErr != nil && apiErr.Code == "content_filter":
		return ai.EAIContentPolicy
	case status >= 500:
		return fmt.Errorf("%w: status %d", ai.EAIUnavailable, status)
	default:
		return fmt.Errorf("openai request failed with status %d: %w", status, err)
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

var _ ai.Provider = (*Provider)(nil)
