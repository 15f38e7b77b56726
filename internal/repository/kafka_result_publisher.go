package repository

import (
	"context"

	"FinBack/internal/domain/models"
	domrepo "FinBack/internal/domain/repository"
)

// producer is satisfied by pkg/kafka.Producer.
type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value any) error
	Close() error
}

// KafkaResultPublisher implements ResultPublisher for Kafka. Summaries are keyed by run id.
type KafkaResultPublisher struct {
	producer producer
	topic    string
}

func NewKafkaResultPublisher(p producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: p, topic: topic}
}

func (p *KafkaResultPublisher) PublishResult(ctx context.Context, s *models.RunSummary) error {
	return p.producer.Publish(ctx, p.topic, []byte(s.ID), s)
}

func (p *KafkaResultPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)
