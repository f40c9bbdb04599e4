package models

import "time"

// StockQuote is a point-in-time equity quote with daily change.
type StockQuote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	CurrentPrice  float64   `json:"current_price"`
	PreviousClose float64   `json:"previous_close"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Volume        int64     `json:"volume"`
	MarketCap     int64     `json:"market_cap,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// IndexQuote is a market index level with daily change.
type IndexQuote struct {
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	Value         float64   `json:"value"`
	Change        float64   `json:"change"`
	ChangePercent float64   `json:"change_percent"`
	Timestamp     time.Time `json:"timestamp"`
}

// CryptoQuote is a cryptocurrency quote in USD.
type CryptoQuote struct {
	ID            string    `json:"id"`
	Symbol        string    `json:"symbol"`
	Name          string    `json:"name"`
	CurrentPrice  float64   `json:"current_price"`
	Change24h     float64   `json:"change_24h"`
	Volume24h     float64   `json:"volume_24h"`
	MarketCap     float64   `json:"market_cap"`
	Timestamp     time.Time `json:"timestamp"`
}

// PricePoint is one bar of daily price history, chronological order.
type PricePoint struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}
