package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Job defines a queue job handler.
type Job interface {
	// Type returns the type of message that the job handles.
	Type() string

	// Handle processes the raw JSON payload of one message.
	Handle(ctx context.Context, payload []byte) error
}

// DeadHandler is told about messages that exhausted their retries or had no job.
type DeadHandler func(ctx context.Context, msg Message, cause error)

// QueueConfig contains the configuration for the queue
type QueueConfig struct {
	Workers      int           // number of workers
	RetryLimit   int           // retries after the first attempt
	RetryDelay   time.Duration // delay before a failed message is retried
	PollInterval time.Duration // blocking pop timeout and retry scan period
}

// Message represents a message in the queue
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Attempts   int             `json:"attempts"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
	LastError  string          `json:"last_error,omitempty"`
}
