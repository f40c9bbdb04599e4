package markets

import (
	"context"

	"FinSight/internal/domain/models"
)

// StockProvider fetches equity quotes and daily price history.
type StockProvider interface {
	Quote(ctx context.Context, symbol string) (models.StockQuote, error)
	History(ctx context.Context, symbol string, days int) ([]models.PricePoint, error)
}

// CryptoProvider fetches cryptocurrency market data by coin id.
type CryptoProvider interface {
	Quote(ctx context.Context, coinID string) (models.CryptoQuote, error)
	Top(ctx context.Context, limit int) ([]models.CryptoQuote, error)
}
