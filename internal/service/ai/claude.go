package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	claudeMaxTokens   = 1000
	claudeTemperature = 0.3
)

// ClaudeBackend wraps the Anthropic API for deep-analysis queries. A zero
// API key leaves the backend unconfigured rather than failing construction,
// matching the degrade-to-informational contract.
type ClaudeBackend struct {
	client     anthropic.Client
	model      string
	configured bool
}

func NewClaudeBackend(apiKey, model string) *ClaudeBackend {
	b := &ClaudeBackend{model: model}
	if apiKey == "" {
		return b
	}
	b.client = anthropic.NewClient(option.WithAPIKey(apiKey))
	b.configured = true
	return b
}

func (b *ClaudeBackend) Configured() bool {
	return b.configured
}

func (b *ClaudeBackend) params(query, systemPrompt string) anthropic.MessageNewParams {
	return anthropic.MessageNewParams{
		Model:       anthropic.Model(b.model),
		MaxTokens:   claudeMaxTokens,
		Temperature: anthropic.Float(claudeTemperature),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
	}
}

// Complete runs a single request/response turn and returns the full answer.
func (b *ClaudeBackend) Complete(ctx context.Context, query, systemPrompt string) (string, error) {
	if !b.configured {
		return "", ErrNotConfigured
	}

	resp, err := b.client.Messages.New(ctx, b.params(query, systemPrompt))
	if err != nil {
		return "", fmt.Errorf("claude request: %w", err)
	}

	var out strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("claude returned no text content")
	}
	return out.String(), nil
}

// Stream runs a streaming turn, invoking emit for each text delta, and
// returns the accumulated full answer once the stream ends.
func (b *ClaudeBackend) Stream(ctx context.Context, query, systemPrompt string, emit func(delta string) error) (string, error) {
	if !b.configured {
		return "", ErrNotConfigured
	}

	stream := b.client.Messages.NewStreaming(ctx, b.params(query, systemPrompt))

	var out strings.Builder
	for stream.Next() {
		event := stream.Current()
		switch ev := event.AsAny().(type) {
		case anthropic.ContentBlockDeltaEvent:
			switch delta := ev.Delta.AsAny().(type) {
			case anthropic.TextDelta:
				out.WriteString(delta.Text)
				if emit != nil {
					if err := emit(delta.Text); err != nil {
						return out.String(), err
					}
				}
			}
		}
	}
	if err := stream.Err(); err != nil {
		return out.String(), fmt.Errorf("claude stream: %w", err)
	}
	return out.String(), nil
}
