package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"SignalLab/internal/domain/models"
	domrepo "SignalLab/internal/domain/repository"
	applogger "SignalLab/pkg/logger"
	"SignalLab/pkg/queue"
)

var (
	// ErrJobsDisabled is returned when no job queue is configured.
	ErrJobsDisabled = errors.New("sentiment jobs disabled")
	// ErrJobNotFound is returned for unknown or expired job ids.
	ErrJobNotFound = errors.New("sentiment job not found")
)

// SentimentJobs queues texts for background scoring and reports their state.
// A nil *SentimentJobs is valid and answers ErrJobsDisabled.
type SentimentJobs struct {
	queue   domrepo.JobQueue
	store   domrepo.JobStore
	uc      *SentimentUseCase
	jobType string
	now     func() time.Time
}

func NewSentimentJobs(q domrepo.JobQueue, store domrepo.JobStore, uc *SentimentUseCase, jobType string) *SentimentJobs {
	return &SentimentJobs{queue: q, store: store, uc: uc, jobType: jobType, now: time.Now}
}

// Submit validates text, records the job as queued and enqueues it.
func (j *SentimentJobs) Submit(ctx context.Context, text string) (models.JobStatus, error) {
	if j == nil {
		return models.JobStatus{}, ErrJobsDisabled
	}
	if err := j.uc.CheckLines(text); err != nil {
		return models.JobStatus{}, err
	}

	id := uuid.NewString()
	if err := j.store.MarkQueued(ctx, id); err != nil {
		return models.JobStatus{}, fmt.Errorf("record job: %w", err)
	}
	if _, err := j.queue.Enqueue(ctx, j.jobType, id, models.SentimentJob{ID: id, Text: text}); err != nil {
		_ = j.store.MarkFailed(ctx, id, "enqueue failed")
		return models.JobStatus{}, fmt.Errorf("enqueue job: %w", err)
	}
	return models.JobStatus{ID: id, State: models.JobQueued, UpdatedAt: j.now().UTC()}, nil
}

// Status returns the current state of job id.
func (j *SentimentJobs) Status(ctx context.Context, id string) (models.JobStatus, error) {
	if j == nil {
		return models.JobStatus{}, ErrJobsDisabled
	}
	st, ok, err := j.store.JobStatus(ctx, id)
	if err != nil {
		return models.JobStatus{}, fmt.Errorf("job status: %w", err)
	}
	if !ok {
		return models.JobStatus{}, ErrJobNotFound
	}
	return st, nil
}

// MarkDead returns a queue.DeadHandler that flags dead-lettered jobs as failed.
func MarkDead(store domrepo.JobStore, l *applogger.Logger) queue.DeadHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return func(ctx context.Context, msg queue.Message, cause error) {
		reason := "job failed"
		if cause != nil {
			reason = cause.Error()
		}
		if err := store.MarkFailed(ctx, msg.ID, reason); err != nil {
			l.Error("mark job failed", applogger.String("id", msg.ID), applogger.Error(err))
		}
	}
}
