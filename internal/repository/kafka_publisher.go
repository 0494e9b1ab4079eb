package repository

import (
	"context"
	"fmt"

	"tradevision/internal/domain/models"
	domain "tradevision/internal/domain/repository"
	"tradevision/pkg/kafka"
)

type kafkaPublisher struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaPublisher wraps the shared producer as a signal event publisher.
func NewKafkaPublisher(producer *kafka.Producer, topic string) domain.EventPublisher {
	return &kafkaPublisher{producer: producer, topic: topic}
}

func (p *kafkaPublisher) Publish(ctx context.Context, ev *models.SignalEvent) error {
	key := fmt.Sprintf("%s:%s", ev.Symbol, ev.Timeframe)
	if err := p.producer.Publish(ctx, p.topic, []byte(key), ev); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

func (p *kafkaPublisher) Close() error { return p.producer.Close() }

// NopPublisher drops events; used when Kafka is not configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, *models.SignalEvent) error { return nil }
func (NopPublisher) Close() error                                       { return nil }
