package models

import "time"

// Provider identifies an AI backend.
type Provider string

const (
	// ProviderClaude is the conversational analysis backend.
	ProviderClaude Provider = "claude"
	// ProviderPerplexity is the search-grounded live-data backend.
	ProviderPerplexity Provider = "perplexity"
)

// ChatContext carries the user-side state a query was issued from.
type ChatContext struct {
	Watchlist   []string  `json:"watchlist"`
	CurrentView string    `json:"current_view"`
	UserID      string    `json:"user_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatQuery is a natural-language query with optional provider override.
type ChatQuery struct {
	Query    string      `json:"query" validate:"required,min=1,max=2000"`
	Provider Provider    `json:"provider,omitempty" validate:"omitempty,oneof=claude perplexity"` // empty: route by classification
	Context  ChatContext `json:"context"`
}

// Citation is a source reference returned by the live backend.
type Citation struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// ActionType enumerates suggested follow-up actions.
type ActionType string

const (
	ActionAddToWatchlist ActionType = "add_to_watchlist"
	ActionViewTechnical  ActionType = "view_technical"
)

// Action is a suggested user action extracted from AI response text.
type Action struct {
	Type   ActionType `json:"type"`
	Symbol string     `json:"symbol"`
	Label  string     `json:"label"`
}

// ChatResult is the final answer for a chat query.
type ChatResult struct {
	Content  string     `json:"content"`
	Sources  []Citation `json:"sources,omitempty"`
	Actions  []Action   `json:"actions,omitempty"`
	Provider Provider   `json:"provider,omitempty"`
	Error    bool       `json:"error,omitempty"`
}

// StreamEvent is one chunk of a streamed chat answer.
type StreamEvent struct {
	Delta    string   `json:"delta,omitempty"`
	Provider Provider `json:"provider,omitempty"`
	Error    string   `json:"error,omitempty"`
	Done     bool     `json:"done,omitempty"`
}

// BackendHealth reports availability of the AI backends and the cache store.
type BackendHealth struct {
	Claude     bool   `json:"claude"`
	Perplexity bool   `json:"perplexity"`
	Cache      bool   `json:"cache"`
	Status     string `json:"status"` // healthy or degraded
}
