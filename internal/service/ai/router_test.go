package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"FinSight/internal/domain/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  models.Provider
	}{
		{
			name:  "analysis keyword wins tie break over live keyword",
			query: "Should I buy AAPL calls today?",
			want:  models.ProviderClaude,
		},
		{
			name:  "live keywords only",
			query: "What happened to TSLA today",
			want:  models.ProviderPerplexity,
		},
		{
			name:  "analysis keyword alone",
			query: "Compare MSFT and GOOG fundamentals",
			want:  models.ProviderClaude,
		},
		{
			name:  "breaking news",
			query: "breaking: fed decision",
			want:  models.ProviderPerplexity,
		},
		{
			name:  "neither set matches defaults to live",
			query: "tell me about semiconductor supply chains",
			want:  models.ProviderPerplexity,
		},
		{
			name:  "case insensitive",
			query: "ANALYZE my portfolio",
			want:  models.ProviderClaude,
		},
		{
			name:  "multi word live keyword",
			query: "why did NVDA drop",
			want:  models.ProviderPerplexity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}
