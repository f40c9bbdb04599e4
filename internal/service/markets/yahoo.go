package markets

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"FinSight/internal/domain/models"
	apphttp "FinSight/pkg/http"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				ShortName          string  `json:"shortName"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []float64 `json:"open"`
					High   []float64 `json:"high"`
					Low    []float64 `json:"low"`
					Close  []float64 `json:"close"`
					Volume []int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooProvider fetches quotes and history from the Yahoo Finance chart
// API. It serves both plain symbols and index symbols like ^GSPC.
type YahooProvider struct {
	client  *apphttp.Client
	baseURL string
}

func NewYahooProvider(client *apphttp.Client, baseURL string) *YahooProvider {
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}
	return &YahooProvider{client: client, baseURL: baseURL}
}

func (p *YahooProvider) chart(ctx context.Context, symbol, rng string) (*chartResponse, error) {
	var parsed chartResponse
	err := p.client.SendAndParse(ctx, &apphttp.RequestOptions{
		Method: apphttp.MethodGet,
		URL:    fmt.Sprintf("%s/v8/finance/chart/%s", p.baseURL, url.PathEscape(symbol)),
		Headers: map[string]string{
			"User-Agent": "Mozilla/5.0 (compatible; finsight/1.0)",
		},
		QueryParams: map[string][]string{
			"range":    {rng},
			"interval": {"1d"},
		},
	}, &parsed)
	if err != nil {
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if parsed.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s", symbol, parsed.Chart.Error.Description)
	}
	if len(parsed.Chart.Result) == 0 || len(parsed.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart %s: empty result", symbol)
	}
	return &parsed, nil
}

func (p *YahooProvider) Quote(ctx context.Context, symbol string) (models.StockQuote, error) {
	parsed, err := p.chart(ctx, symbol, "5d")
	if err != nil {
		return models.StockQuote{}, err
	}

	result := parsed.Chart.Result[0]
	bars := result.Indicators.Quote[0]
	closes := compactFloats(bars.Close)
	if len(closes) == 0 {
		return models.StockQuote{}, fmt.Errorf("yahoo chart %s: no closing prices", symbol)
	}

	current := closes[len(closes)-1]
	previous := current
	if len(closes) >= 2 {
		previous = closes[len(closes)-2]
	} else if result.Meta.ChartPreviousClose > 0 {
		previous = result.Meta.ChartPreviousClose
	}

	change := current - previous
	changePercent := 0.0
	if previous != 0 {
		changePercent = change / previous * 100
	}

	name := result.Meta.ShortName
	if name == "" {
		name = symbol
	}

	q := models.StockQuote{
		Symbol:        strings.ToUpper(symbol),
		Name:          name,
		CurrentPrice:  round2(current),
		PreviousClose: round2(previous),
		Change:        round2(change),
		ChangePercent: round2(changePercent),
		Timestamp:     time.Now(),
	}
	if n := len(bars.High); n > 0 {
		q.High = round2(bars.High[n-1])
	}
	if n := len(bars.Low); n > 0 {
		q.Low = round2(bars.Low[n-1])
	}
	if n := len(bars.Volume); n > 0 {
		q.Volume = bars.Volume[n-1]
	}
	return q, nil
}

func (p *YahooProvider) History(ctx context.Context, symbol string, days int) ([]models.PricePoint, error) {
	parsed, err := p.chart(ctx, symbol, rangeForDays(days))
	if err != nil {
		return nil, err
	}

	result := parsed.Chart.Result[0]
	bars := result.Indicators.Quote[0]

	points := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(bars.Close) || bars.Close[i] == 0 {
			continue
		}
		point := models.PricePoint{
			Time:  time.Unix(ts, 0).UTC(),
			Close: round2(bars.Close[i]),
		}
		if i < len(bars.Open) {
			point.Open = round2(bars.Open[i])
		}
		if i < len(bars.High) {
			point.High = round2(bars.High[i])
		}
		if i < len(bars.Low) {
			point.Low = round2(bars.Low[i])
		}
		if i < len(bars.Volume) {
			point.Volume = bars.Volume[i]
		}
		points = append(points, point)
	}
	return points, nil
}

// rangeForDays maps a lookback in days onto the chart API's range buckets.
func rangeForDays(days int) string {
	switch {
	case days <= 5:
		return "5d"
	case days <= 31:
		return "1mo"
	case days <= 93:
		return "3mo"
	case days <= 186:
		return "6mo"
	case days <= 366:
		return "1y"
	default:
		return "2y"
	}
}

// compactFloats drops zero entries, which the chart API emits for holidays
// and half sessions.
func compactFloats(values []float64) []float64 {
	out := values[:0:0]
	for _, v := range values {
		if v != 0 {
			out = append(out, v)
		}
	}
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
