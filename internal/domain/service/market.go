package service

import (
	"context"

	"CryptoSatX/internal/domain/models"
	"CryptoSatX/internal/domain/repository"
)

// DerivativesData serves futures market metrics for one symbol.
type DerivativesData interface {
	Price(ctx context.Context, symbol string) (*models.PriceSnapshot, error)
	Funding(ctx context.Context, symbol string) (*models.FundingSnapshot, error)
	OpenInterest(ctx context.Context, symbol string, period repository.Period, points int) (*models.OpenInterestTrend, error)
	LongShortRatio(ctx context.Context, symbol string, period repository.Period) (*models.LongShortSnapshot, error)
	Orderbook(ctx context.Context, symbol string, levels int) (*models.OrderbookImbalance, error)
	RangePosition(ctx context.Context, symbol, interval string, candles int) (*models.RangePosition, error)
}

// LiquidationSource aggregates forced liquidations for a symbol.
type LiquidationSource interface {
	Liquidations(ctx context.Context, symbol string) (*models.LiquidationSummary, error)
}

// SentimentSource serves a market-wide sentiment reading.
type SentimentSource interface {
	FearGreed(ctx context.Context) (*models.FearGreed, error)
}
