package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"SignalLab/internal/domain/models"
	domrepo "SignalLab/internal/domain/repository"
	pkgkafka "SignalLab/pkg/kafka"
	"SignalLab/pkg/queue"
)

var (
	_ pkgkafka.MessageHandler = (*SentimentJobHandler)(nil)
	_ queue.Job               = (*SentimentJobHandler)(nil)
)

// SentimentJobHandler scores batch jobs and publishes one result per job. The
// same handler serves the Kafka request topic and the Redis job queue.
type SentimentJobHandler struct {
	topic     string
	uc        *SentimentUseCase
	publisher domrepo.ResultPublisher
	metrics   domrepo.Metrics
	now       func() time.Time
}

func NewSentimentJobHandler(topic string, uc *SentimentUseCase, pub domrepo.ResultPublisher, metrics domrepo.Metrics) *SentimentJobHandler {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SentimentJobHandler{topic: topic, uc: uc, publisher: pub, metrics: metrics, now: time.Now}
}

func (h *SentimentJobHandler) Topic() string { return h.topic }

// Type is the queue message type; it equals the topic name.
func (h *SentimentJobHandler) Type() string { return h.topic }

// incoming message schema: {id, text}; a missing id falls back to the message key.
func (h *SentimentJobHandler) Handle(ctx context.Context, b []byte) error {
	var job models.SentimentJob
	if err := json.Unmarshal(b, &job); err != nil {
		h.metrics.RecordError("job_unmarshal")
		return fmt.Errorf("decode job: %w", err)
	}
	if job.ID == "" {
		job.ID = pkgkafka.TraceIDFromContext(ctx)
	}
	if job.ID == "" {
		h.metrics.RecordError("job_invalid")
		return fmt.Errorf("job without id")
	}

	results, err := h.uc.Analyze(ctx, job.Text)
	if err != nil {
		return fmt.Errorf("job %s: %w", job.ID, err)
	}

	start := time.Now()
	err = h.publisher.PublishResult(ctx, models.SentimentJobResult{
		ID:         job.ID,
		Results:    results,
		AnalyzedAt: h.now().UTC(),
	})
	h.metrics.RecordLatency("job_publish", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("job_publish")
		return fmt.Errorf("publish job %s: %w", job.ID, err)
	}
	return nil
}
