package models

import "time"

// Signal is a composite trading signal direction.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Strength qualifies how decisive a signal is.
type Strength string

const (
	StrengthWeak     Strength = "weak"
	StrengthModerate Strength = "moderate"
	StrengthStrong   Strength = "strong"
)

// MACDResult holds the MACD line, its signal line, and their difference.
type MACDResult struct {
	MACD      float64 `json:"macd"`
	Signal    float64 `json:"signal"`
	Histogram float64 `json:"histogram"`
}

// BollingerBands holds the three band levels.
type BollingerBands struct {
	Upper  float64 `json:"upper"`
	Middle float64 `json:"middle"`
	Lower  float64 `json:"lower"`
}

// TechnicalSnapshot is the full indicator set for a symbol at a moment.
type TechnicalSnapshot struct {
	Symbol       string         `json:"symbol"`
	CurrentPrice float64        `json:"current_price"`
	RSI          float64        `json:"rsi"`
	MACD         MACDResult     `json:"macd"`
	SMA20        float64        `json:"sma_20"`
	SMA50        float64        `json:"sma_50"`
	Bollinger    BollingerBands `json:"bollinger_bands"`
	Signal       Signal         `json:"signal"`
	Strength     Strength       `json:"strength"`
	LastUpdated  time.Time      `json:"last_updated"`
}
