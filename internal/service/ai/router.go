package ai

import (
	"strings"

	"FinSight/internal/domain/models"
)

// Keyword sets driving backend selection. Analysis keywords outrank live
// keywords when both match, and a query matching neither goes to the
// search-grounded backend.
var (
	liveKeywords = []string{
		"today", "now", "current", "latest", "breaking",
		"why did", "what happened", "news", "just",
		"jumped", "fell", "dropped", "surged", "moved",
		"yesterday", "this week", "recent", "happening",
	}

	analysisKeywords = []string{
		"analyze", "compare", "strategy", "portfolio",
		"fundamental", "technical analysis", "valuation",
		"should i", "would you", "recommend", "advice",
		"evaluate", "assessment", "review", "explain",
	}
)

// Classify routes a query to the backend suited for it. Queries asking for
// reasoning over known facts go to the conversational model; everything
// else, including ambiguous queries, goes to the web-grounded model.
func Classify(query string) models.Provider {
	q := strings.ToLower(query)

	for _, kw := range analysisKeywords {
		if strings.Contains(q, kw) {
			return models.ProviderClaude
		}
	}
	for _, kw := range liveKeywords {
		if strings.Contains(q, kw) {
			return models.ProviderPerplexity
		}
	}
	return models.ProviderPerplexity
}
