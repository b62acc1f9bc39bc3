package repository

import (
	"context"

	"CryptoSatX/internal/domain/models"
)

// SignalStore persists generated signals.
type SignalStore interface {
	Save(ctx context.Context, s *models.SignalResult) error
	Recent(ctx context.Context, symbol string, limit int) ([]*models.SignalResult, error)
	Health(ctx context.Context) error
}

// SignalPublisher fans generated signals out to downstream consumers.
type SignalPublisher interface {
	PublishSignal(ctx context.Context, ev *models.SignalEvent) error
	Close() error
}

// Metrics records service-level counters.
type Metrics interface {
	RecordSignal(symbol string, direction string, score float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
