package repository

import (
	"context"

	"CryptoSatX/internal/domain/models"
	domrepo "CryptoSatX/internal/domain/repository"
)

// EventProducer is the slice of pkg/kafka.Producer the publisher needs.
type EventProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// KafkaSignalPublisher implements SignalPublisher for Kafka.
type KafkaSignalPublisher struct {
	producer EventProducer
	topic    string
}

// NewKafkaSignalPublisher creates a publisher keyed by symbol.
func NewKafkaSignalPublisher(producer EventProducer, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

var _ domrepo.SignalPublisher = (*KafkaSignalPublisher)(nil)

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, ev *models.SignalEvent) error {
	if ev == nil || ev.Signal == nil {
		return nil
	}
	return p.producer.Publish(ctx, p.topic, []byte(ev.Signal.Symbol), ev)
}

// Close is a no-op; the producer is shared and closed by its owner.
func (p *KafkaSignalPublisher) Close() error {
	return nil
}
