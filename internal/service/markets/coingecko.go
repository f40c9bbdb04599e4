package markets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"FinSight/internal/domain/models"
	apphttp "FinSight/pkg/http"
)

const defaultCoinGeckoBaseURL = "https://api.coingecko.com/api/v3"

type simplePriceEntry struct {
	USD          float64 `json:"usd"`
	USD24hChange float64 `json:"usd_24h_change"`
	USD24hVol    float64 `json:"usd_24h_vol"`
	USDMarketCap float64 `json:"usd_market_cap"`
}

type coinMarketEntry struct {
	ID                       string  `json:"id"`
	Symbol                   string  `json:"symbol"`
	Name                     string  `json:"name"`
	CurrentPrice             float64 `json:"current_price"`
	PriceChange24h           float64 `json:"price_change_24h"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	TotalVolume              float64 `json:"total_volume"`
	MarketCap                float64 `json:"market_cap"`
}

// CoinGeckoProvider fetches crypto market data. Coins are addressed by
// CoinGecko ids such as "bitcoin", not ticker symbols.
type CoinGeckoProvider struct {
	client  *apphttp.Client
	baseURL string
}

func NewCoinGeckoProvider(client *apphttp.Client, baseURL string) *CoinGeckoProvider {
	if baseURL == "" {
		baseURL = defaultCoinGeckoBaseURL
	}
	return &CoinGeckoProvider{client: client, baseURL: baseURL}
}

func (p *CoinGeckoProvider) Quote(ctx context.Context, coinID string) (models.CryptoQuote, error) {
	var parsed map[string]simplePriceEntry
	err := p.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		URL:    p.baseURL + "/simple/price",
		QueryParams: map[string][]string{
			"ids":                 {coinID},
			"vs_currencies":       {"usd"},
			"include_24hr_change": {"true"},
			"include_24hr_vol":    {"true"},
			"include_market_cap":  {"true"},
		},
	}, &parsed)
	if err != nil {
		return models.CryptoQuote{}, fmt.Errorf("coingecko price %s: %w", coinID, err)
	}

	entry, ok := parsed[coinID]
	if !ok {
		return models.CryptoQuote{}, fmt.Errorf("coingecko price %s: unknown coin", coinID)
	}

	return models.CryptoQuote{
		ID:           coinID,
		Symbol:       strings.ToUpper(coinID),
		Name:         titleCase(coinID),
		CurrentPrice: entry.USD,
		Change24h:    entry.USD24hChange,
		Volume24h:    entry.USD24hVol,
		MarketCap:    entry.USDMarketCap,
		Timestamp:    time.Now(),
	}, nil
}

func (p *CoinGeckoProvider) Top(ctx context.Context, limit int) ([]models.CryptoQuote, error) {
	var parsed []coinMarketEntry
	err := p.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		URL:    p.baseURL + "/coins/markets",
		QueryParams: map[string][]string{
			"vs_currency": {"usd"},
			"order":       {"market_cap_desc"},
			"per_page":    {strconv.Itoa(limit)},
			"page":        {"1"},
			"sparkline":   {"false"},
		},
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("coingecko markets: %w", err)
	}

	quotes := make([]models.CryptoQuote, 0, len(parsed))
	now := time.Now()
	for _, coin := range parsed {
		quotes = append(quotes, models.CryptoQuote{
			ID:           coin.ID,
			Symbol:       strings.ToUpper(coin.Symbol),
			Name:         coin.Name,
			CurrentPrice: coin.CurrentPrice,
			Change24h:    coin.PriceChange24h,
			Volume24h:    coin.TotalVolume,
			MarketCap:    coin.MarketCap,
			Timestamp:    now,
		})
	}
	return quotes, nil
}

// titleCase capitalizes each dash-separated word of a coin id.
func titleCase(coinID string) string {
	parts := strings.Split(coinID, "-")
	for i, part := range parts {
		if part == "" {
			continue
		}
		parts[i] = strings.ToUpper(part[:1]) + part[1:]
	}
	return strings.Join(parts, " ")
}
