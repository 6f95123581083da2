package repository

import (
	"context"

	"SignalLab/internal/domain/models"
	domrepo "SignalLab/internal/domain/repository"
	pkgkafka "SignalLab/pkg/kafka"
)

var _ domrepo.ResultPublisher = (*KafkaResultPublisher)(nil)

type producer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

var _ producer = (*pkgkafka.Producer)(nil)

// KafkaResultPublisher writes job results keyed by job id.
type KafkaResultPublisher struct {
	producer producer
	topic    string
}

func NewKafkaResultPublisher(p *pkgkafka.Producer, topic string) *KafkaResultPublisher {
	return &KafkaResultPublisher{producer: p, topic: topic}
}

func (p *KafkaResultPublisher) PublishResult(ctx context.Context, res models.SentimentJobResult) error {
	return p.producer.Publish(ctx, p.topic, []byte(res.ID), res)
}

// Close is a no-op: the producer is shared with the log collector and closed by the app.
func (p *KafkaResultPublisher) Close() error {
	return nil
}
