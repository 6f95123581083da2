package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"SignalLab/internal/domain/models"
	domrepo "SignalLab/internal/domain/repository"
)

var _ domrepo.JobStore = (*RedisJobStore)(nil)

// RedisJobStore keeps one JSON status document per job, expiring after ttl.
type RedisJobStore struct {
	cli    *redis.Client
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisJobStore(cli *redis.Client, prefix string, ttl time.Duration) *RedisJobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisJobStore{cli: cli, prefix: prefix, ttl: ttl, now: time.Now}
}

func (s *RedisJobStore) key(id string) string {
	return s.prefix + ":job:" + id
}

func (s *RedisJobStore) put(ctx context.Context, st models.JobStatus) error {
	st.UpdatedAt = s.now().UTC()
	b, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshal job status: %w", err)
	}
	if err := s.cli.Set(ctx, s.key(st.ID), b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store job %s: %w", st.ID, err)
	}
	return nil
}

func (s *RedisJobStore) MarkQueued(ctx context.Context, id string) error {
	return s.put(ctx, models.JobStatus{ID: id, State: models.JobQueued})
}

func (s *RedisJobStore) MarkFailed(ctx context.Context, id, reason string) error {
	return s.put(ctx, models.JobStatus{ID: id, State: models.JobFailed, Error: reason})
}

// PublishResult stores the finished job.
func (s *RedisJobStore) PublishResult(ctx context.Context, res models.SentimentJobResult) error {
	at := res.AnalyzedAt
	return s.put(ctx, models.JobStatus{ID: res.ID, State: models.JobDone, Results: res.Results, AnalyzedAt: &at})
}

func (s *RedisJobStore) JobStatus(ctx context.Context, id string) (models.JobStatus, bool, error) {
	b, err := s.cli.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.JobStatus{}, false, nil
		}
		return models.JobStatus{}, false, fmt.Errorf("load job %s: %w", id, err)
	}
	var st models.JobStatus
	if err := json.Unmarshal(b, &st); err != nil {
		return models.JobStatus{}, false, fmt.Errorf("decode job %s: %w", id, err)
	}
	return st, true, nil
}

// Close is a no-op; the Redis client is shared and closed by its owner.
func (s *RedisJobStore) Close() error { return nil }
