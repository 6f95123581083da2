package repository

import (
	"context"

	"SignalLab/internal/domain/models"
)

// ObservationSource provides read-only access to stored price history.
type ObservationSource interface {
	LatestObservations(ctx context.Context, symbol string, limit int) ([]models.Observation, error)
	Health(ctx context.Context) error
}

// ResultPublisher ships batch sentiment results downstream.
type ResultPublisher interface {
	PublishResult(ctx context.Context, res models.SentimentJobResult) error
	Close() error
}

// JobStore tracks queued sentiment jobs. Publishing a result marks the job done.
type JobStore interface {
	ResultPublisher
	MarkQueued(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id, reason string) error
	JobStatus(ctx context.Context, id string) (models.JobStatus, bool, error)
}

// JobQueue accepts work for asynchronous processing and returns the message id.
type JobQueue interface {
	Enqueue(ctx context.Context, msgType, id string, payload interface{}) (string, error)
}

type Metrics interface {
	RecordAnalysis(kind string, items int)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordDatasetSize(n int)
	RecordSlope(slope float64)
}
