package ai

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"FinSight/internal/domain/models"
	"FinSight/pkg/cache"
)

// buildAnalysisPrompt assembles the system preamble for the conversational
// backend, folding in the user's watchlist and which screen they are on.
func buildAnalysisPrompt(chatCtx models.ChatContext) string {
	currentView := chatCtx.CurrentView
	if currentView == "" {
		currentView = "dashboard"
	}

	var b strings.Builder
	b.WriteString("You are an expert financial analyst assistant integrated into a trading dashboard.\n")
	b.WriteString("Provide detailed, actionable analysis based on the user's query.\n\n")
	b.WriteString("User Context:")
	if len(chatCtx.Watchlist) > 0 {
		b.WriteString("\n- Watchlist: ")
		b.WriteString(strings.Join(chatCtx.Watchlist, ", "))
	}
	b.WriteString("\n- Current view: ")
	b.WriteString(currentView)
	b.WriteString("\n\nProvide analysis that is:")
	b.WriteString("\n- Data-driven and specific")
	b.WriteString("\n- Actionable with clear next steps")
	b.WriteString("\n- Relevant to the user's portfolio")
	return b.String()
}

// enhanceLiveQuery appends a short watchlist hint to the query sent to the
// search-grounded backend, capped at five symbols to keep the query tight.
func enhanceLiveQuery(query string, watchlist []string) string {
	if len(watchlist) == 0 {
		return query
	}
	symbols := watchlist
	if len(symbols) > 5 {
		symbols = symbols[:5]
	}
	return fmt.Sprintf("%s (Context: User is tracking %s)", query, strings.Join(symbols, ", "))
}

type cacheKeyInput struct {
	Query     string   `json:"query"`
	View      string   `json:"view"`
	Watchlist []string `json:"watchlist"`
}

// cacheKey derives a stable key from the inputs that shape an answer. The
// watchlist is sorted so the same portfolio in a different order still hits.
func cacheKey(query string, chatCtx models.ChatContext) string {
	watchlist := append([]string(nil), chatCtx.Watchlist...)
	sort.Strings(watchlist)

	payload, _ := json.Marshal(cacheKeyInput{
		Query:     query,
		View:      chatCtx.CurrentView,
		Watchlist: watchlist,
	})
	return cache.GenerateKey("ai_chat", cache.HashKey(string(payload)))
}

var domainPattern = regexp.MustCompile(`https?://(?:www\.)?([^/]+)`)

// normalizeCitation turns a bare URL into a titled citation using its
// domain. Already-structured citations pass through unchanged.
func normalizeCitation(raw json.RawMessage) (models.Citation, bool) {
	var url string
	if err := json.Unmarshal(raw, &url); err == nil {
		title := "Source"
		if m := domainPattern.FindStringSubmatch(url); m != nil {
			title = m[1]
		}
		return models.Citation{Title: title, URL: url}, true
	}

	var c models.Citation
	if err := json.Unmarshal(raw, &c); err == nil {
		return c, true
	}
	return models.Citation{}, false
}
