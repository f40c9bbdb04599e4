package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"FinSight/internal/domain/models"
	apphttp "FinSight/pkg/http"
)

const (
	perplexityEndpoint    = "https://api.perplexity.ai/chat/completions"
	perplexityTemperature = 0.1

	perplexitySystemPrompt = "You are a financial market analyst. Provide accurate, real-time market information with sources. Focus on facts and cite sources."
)

type perplexityRequest struct {
	Model       string              `json:"model"`
	Messages    []perplexityMessage `json:"messages"`
	Temperature float64             `json:"temperature"`
}

type perplexityMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations []json.RawMessage `json:"citations"`
}

type perplexityError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// PerplexityBackend calls the search-grounded completion API for queries
// that need current market information.
type PerplexityBackend struct {
	client  *apphttp.Client
	apiKey  string
	model   string
	baseURL string
}

type PerplexityOption func(*PerplexityBackend)

// WithPerplexityBaseURL points the backend at a different endpoint. Tests
// use this against a local server.
func WithPerplexityBaseURL(url string) PerplexityOption {
	return func(b *PerplexityBackend) { b.baseURL = url }
}

func NewPerplexityBackend(client *apphttp.Client, apiKey, model string, opts ...PerplexityOption) *PerplexityBackend {
	b := &PerplexityBackend{
		client:  client,
		apiKey:  apiKey,
		model:   model,
		baseURL: perplexityEndpoint,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *PerplexityBackend) Configured() bool {
	return b.apiKey != ""
}

// Search asks the live backend and returns the answer text plus its
// normalized citations.
func (b *PerplexityBackend) Search(ctx context.Context, query string) (string, []models.Citation, error) {
	if !b.Configured() {
		return "", nil, ErrNotConfigured
	}

	resp, err := b.client.SendRequest(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodPost,
		URL:    b.baseURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + b.apiKey,
			"Content-Type":  "application/json",
		},
		Body: perplexityRequest{
			Model: b.model,
			Messages: []perplexityMessage{
				{Role: "system", Content: perplexitySystemPrompt},
				{Role: "user", Content: query},
			},
			Temperature: perplexityTemperature,
		},
	})
	if err != nil {
		return "", nil, fmt.Errorf("perplexity request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil, fmt.Errorf("perplexity response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		detail := string(body)
		var apiErr perplexityError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			detail = apiErr.Error.Message
		}
		return "", nil, fmt.Errorf("perplexity status %d: %s", resp.StatusCode, detail)
	}

	var parsed perplexityResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", nil, fmt.Errorf("perplexity payload: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil, fmt.Errorf("perplexity returned no choices")
	}

	var citations []models.Citation
	for _, raw := range parsed.Citations {
		if c, ok := normalizeCitation(raw); ok {
			citations = append(citations, c)
		}
	}

	return parsed.Choices[0].Message.Content, citations, nil
}
