package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalLab/internal/domain/models"
	"SignalLab/pkg/queue"
)

type memJobStore struct {
	mu   sync.Mutex
	jobs map[string]models.JobStatus
	err  error
}

func newMemJobStore() *memJobStore {
	return &memJobStore{jobs: map[string]models.JobStatus{}}
}

func (s *memJobStore) MarkQueued(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.jobs[id] = models.JobStatus{ID: id, State: models.JobQueued}
	return nil
}

func (s *memJobStore) MarkFailed(_ context.Context, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[id] = models.JobStatus{ID: id, State: models.JobFailed, Error: reason}
	return nil
}

func (s *memJobStore) PublishResult(_ context.Context, r models.SentimentJobResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := r.AnalyzedAt
	s.jobs[r.ID] = models.JobStatus{ID: r.ID, State: models.JobDone, Results: r.Results, AnalyzedAt: &at}
	return nil
}

func (s *memJobStore) JobStatus(_ context.Context, id string) (models.JobStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.jobs[id]
	return st, ok, nil
}

func (s *memJobStore) Close() error { return nil }

// inlineQueue runs the handler synchronously on Enqueue.
type inlineQueue struct {
	job queue.Job
	err error
}

func (q *inlineQueue) Enqueue(ctx context.Context, msgType, id string, payload interface{}) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	if msgType != q.job.Type() {
		return "", errors.New("unexpected type " + msgType)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return id, q.job.Handle(ctx, raw)
}

func TestSentimentJobsSubmitAndStatus(t *testing.T) {
	uc, _ := newSentimentUC(WithMaxLines(2))
	store := newMemJobStore()
	h := NewSentimentJobHandler("sentiment", uc, store, nil)
	jobs := NewSentimentJobs(&inlineQueue{job: h}, store, uc, "sentiment")

	st, err := jobs.Submit(context.Background(), "love it\nhate it")
	require.NoError(t, err)
	assert.Equal(t, models.JobQueued, st.State)
	require.NotEmpty(t, st.ID)

	got, err := jobs.Status(context.Background(), st.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, got.State)
	require.Len(t, got.Results, 2)
	assert.Equal(t, models.LabelPositive, got.Results[0].Label)

	_, err = jobs.Submit(context.Background(), "a\nb\nc")
	var tooMany *TooManyLinesError
	assert.ErrorAs(t, err, &tooMany)

	_, err = jobs.Status(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestSentimentJobsEnqueueFailureMarksFailed(t *testing.T) {
	uc, _ := newSentimentUC()
	store := newMemJobStore()
	jobs := NewSentimentJobs(&inlineQueue{err: queue.ErrNotRunning}, store, uc, "sentiment")

	_, err := jobs.Submit(context.Background(), "good")
	require.ErrorIs(t, err, queue.ErrNotRunning)

	require.Len(t, store.jobs, 1)
	for _, st := range store.jobs {
		assert.Equal(t, models.JobFailed, st.State)
	}
}

func TestSentimentJobsStoreFailure(t *testing.T) {
	uc, _ := newSentimentUC()
	store := newMemJobStore()
	store.err = errors.New("redis down")
	jobs := NewSentimentJobs(&inlineQueue{}, store, uc, "sentiment")

	_, err := jobs.Submit(context.Background(), "good")
	assert.ErrorContains(t, err, "redis down")
}

func TestNilSentimentJobsIsDisabled(t *testing.T) {
	var jobs *SentimentJobs
	_, err := jobs.Submit(context.Background(), "x")
	assert.ErrorIs(t, err, ErrJobsDisabled)
	_, err = jobs.Status(context.Background(), "x")
	assert.ErrorIs(t, err, ErrJobsDisabled)
}

func TestMarkDead(t *testing.T) {
	store := newMemJobStore()
	dead := MarkDead(store, nil)

	dead(context.Background(), queue.Message{ID: "j9", Attempts: 3}, errors.New("scorer crashed"))
	st, ok, _ := store.JobStatus(context.Background(), "j9")
	require.True(t, ok)
	assert.Equal(t, models.JobFailed, st.State)
	assert.Equal(t, "scorer crashed", st.Error)

	dead(context.Background(), queue.Message{ID: "j10", EnqueuedAt: time.Now()}, nil)
	st, _, _ = store.JobStatus(context.Background(), "j10")
	assert.Equal(t, "job failed", st.Error)
}
