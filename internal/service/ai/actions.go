package ai

import (
	"fmt"
	"regexp"
	"strings"

	"FinSight/internal/domain/models"
)

const (
	maxActions        = 5
	maxTechnicalHints = 3
	minSymbolLength   = 2
)

var symbolPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// Common all-caps acronyms that look like tickers but are not.
var symbolStoplist = map[string]struct{}{
	"AI": {}, "CEO": {}, "IPO": {}, "ETF": {},
	"NYSE": {}, "NASDAQ": {}, "FDA": {}, "SEC": {},
}

// ExtractActions scans AI response text for ticker-like tokens and turns
// them into suggested follow-ups. Symbols already on the watchlist are not
// suggested again; if the response talks about technical analysis, the
// first few symbols also get a view-technicals shortcut. At most five
// actions are returned.
func ExtractActions(content string, watchlist []string) []models.Action {
	onList := make(map[string]struct{}, len(watchlist))
	for _, s := range watchlist {
		onList[strings.ToUpper(s)] = struct{}{}
	}

	var symbols []string
	seen := make(map[string]struct{})
	for _, tok := range symbolPattern.FindAllString(content, -1) {
		if len(tok) < minSymbolLength {
			continue
		}
		if _, stop := symbolStoplist[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		symbols = append(symbols, tok)
	}

	var actions []models.Action
	for _, sym := range symbols {
		if _, ok := onList[sym]; ok {
			continue
		}
		actions = append(actions, models.Action{
			Type:   models.ActionAddToWatchlist,
			Symbol: sym,
			Label:  fmt.Sprintf("Add %s to watchlist", sym),
		})
	}

	if mentionsTechnicals(content) {
		limit := maxTechnicalHints
		if len(symbols) < limit {
			limit = len(symbols)
		}
		for _, sym := range symbols[:limit] {
			actions = append(actions, models.Action{
				Type:   models.ActionViewTechnical,
				Symbol: sym,
				Label:  fmt.Sprintf("View %s technicals", sym),
			})
		}
	}

	if len(actions) > maxActions {
		actions = actions[:maxActions]
	}
	return actions
}

func mentionsTechnicals(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "technical") ||
		strings.Contains(lower, "rsi") ||
		strings.Contains(lower, "macd")
}
