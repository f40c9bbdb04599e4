package markets

import (
	"context"
	"fmt"
	"strings"

	"FinSight/internal/coalesce"
	"FinSight/internal/domain/models"
	"FinSight/internal/service/store"
	"FinSight/pkg/logger"
)

// Major index symbols and their display names.
var indexNames = []struct {
	Symbol string
	Name   string
}{
	{"^GSPC", "S&P 500"},
	{"^DJI", "Dow Jones"},
	{"^IXIC", "NASDAQ"},
	{"^RUT", "Russell 2000"},
	{"^VIX", "VIX"},
}

// Service serves market data through the cache-then-coalesce-then-fetch
// path. Every upstream call is deduplicated per cache key.
type Service struct {
	stocks    StockProvider
	crypto    CryptoProvider
	store     *store.Store
	coalescer *coalesce.Coalescer
	logger    *logger.Logger
}

func NewService(stocks StockProvider, crypto CryptoProvider, st *store.Store, c *coalesce.Coalescer, l *logger.Logger) *Service {
	return &Service{
		stocks:    stocks,
		crypto:    crypto,
		store:     st,
		coalescer: c,
		logger:    l,
	}
}

// fetchCached runs the shared read path: store lookup, coalesced fetch,
// store write on success.
func fetchCached[T any](ctx context.Context, s *Service, category store.Category, key string, fetch func(context.Context) (T, error)) (T, error) {
	var cached T
	if s.store.Get(ctx, category, key, &cached) {
		return cached, nil
	}

	return coalesce.Do(ctx, s.coalescer, key, func(ctx context.Context) (T, error) {
		value, err := fetch(ctx)
		if err != nil {
			var zero T
			return zero, err
		}
		if err := s.store.Set(ctx, category, key, value); err != nil && s.logger != nil {
			s.logger.Warn("market data not cached",
				logger.String("key", key),
				logger.Error(err))
		}
		return value, nil
	})
}

// StockQuote returns the current quote for an equity symbol.
func (s *Service) StockQuote(ctx context.Context, symbol string) (models.StockQuote, error) {
	symbol = strings.ToUpper(symbol)
	key := fmt.Sprintf("stock:price:%s", symbol)
	return fetchCached(ctx, s, store.CategoryStockPrice, key, func(ctx context.Context) (models.StockQuote, error) {
		return s.stocks.Quote(ctx, symbol)
	})
}

// StockQuotes returns quotes for a batch of symbols, typically a user's
// watchlist. Cached entries are bulk-loaded in one round trip; the rest
// go through the coalesced per-symbol path. Symbols that fail upstream
// are skipped.
func (s *Service) StockQuotes(ctx context.Context, symbols []string) ([]models.StockQuote, error) {
	if len(symbols) == 0 {
		return []models.StockQuote{}, nil
	}

	keys := make([]string, 0, len(symbols))
	upper := make([]string, 0, len(symbols))
	seen := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		sym = strings.ToUpper(strings.TrimSpace(sym))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		upper = append(upper, sym)
		keys = append(keys, fmt.Sprintf("stock:price:%s", sym))
	}

	cached := store.GetMany[models.StockQuote](ctx, s.store, store.CategoryStockPrice, keys)

	quotes := make([]models.StockQuote, 0, len(upper))
	for i, sym := range upper {
		if q, ok := cached[keys[i]]; ok {
			quotes = append(quotes, q)
			continue
		}
		q, err := s.StockQuote(ctx, sym)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("batch quote failed",
					logger.String("symbol", sym),
					logger.Error(err))
			}
			continue
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

// Indices returns the major market indices. Individual index failures are
// logged and skipped so one bad symbol does not empty the board.
func (s *Service) Indices(ctx context.Context) ([]models.IndexQuote, error) {
	return fetchCached(ctx, s, store.CategoryMarketIndices, "market:indices", func(ctx context.Context) ([]models.IndexQuote, error) {
		quotes := make([]models.IndexQuote, 0, len(indexNames))
		for _, idx := range indexNames {
			q, err := s.stocks.Quote(ctx, idx.Symbol)
			if err != nil {
				if s.logger != nil {
					s.logger.Warn("index quote failed",
						logger.String("symbol", idx.Symbol),
						logger.Error(err))
				}
				continue
			}
			quotes = append(quotes, models.IndexQuote{
				Symbol:        idx.Symbol,
				Name:          idx.Name,
				Value:         q.CurrentPrice,
				Change:        q.Change,
				ChangePercent: q.ChangePercent,
				Timestamp:     q.Timestamp,
			})
		}
		if len(quotes) == 0 {
			return nil, fmt.Errorf("no index quotes available")
		}
		return quotes, nil
	})
}

// CryptoQuote returns the current quote for a CoinGecko coin id.
func (s *Service) CryptoQuote(ctx context.Context, coinID string) (models.CryptoQuote, error) {
	coinID = strings.ToLower(coinID)
	key := fmt.Sprintf("crypto:price:%s", coinID)
	return fetchCached(ctx, s, store.CategoryCryptoPrice, key, func(ctx context.Context) (models.CryptoQuote, error) {
		return s.crypto.Quote(ctx, coinID)
	})
}

// TopCryptos returns the top coins by market cap.
func (s *Service) TopCryptos(ctx context.Context, limit int) ([]models.CryptoQuote, error) {
	if limit <= 0 {
		limit = 20
	}
	key := fmt.Sprintf("crypto:top:%d", limit)
	return fetchCached(ctx, s, store.CategoryCryptoPrice, key, func(ctx context.Context) ([]models.CryptoQuote, error) {
		return s.crypto.Top(ctx, limit)
	})
}

// DailyHistory returns daily bars for a symbol, oldest first. It also
// backs the technical calculator's history fetches.
func (s *Service) DailyHistory(ctx context.Context, symbol string, days int) ([]models.PricePoint, error) {
	symbol = strings.ToUpper(symbol)
	key := fmt.Sprintf("stock:history:%s:%d", symbol, days)
	return fetchCached(ctx, s, store.CategoryHistorical, key, func(ctx context.Context) ([]models.PricePoint, error) {
		return s.stocks.History(ctx, symbol, days)
	})
}
