package usecase

import (
	"context"
	"encoding/json"
	"time"

	icache "SignalLab/internal/service/cache"
	smetrics "SignalLab/internal/service/metrics"
	applogger "SignalLab/pkg/logger"
)

// resultCache memoizes JSON-encoded analysis results. The analyses are pure,
// so an input hash fully identifies the output. Backend errors degrade to a miss.
type resultCache struct {
	c   icache.BytesCache
	ttl time.Duration
	l   *applogger.Logger
}

func (rc *resultCache) enabled() bool { return rc != nil && rc.c != nil }

func (rc *resultCache) get(ctx context.Context, kind, key string, dst interface{}) bool {
	if !rc.enabled() {
		return false
	}
	b, ok, err := rc.c.GetBytes(ctx, key)
	if err != nil {
		rc.l.Warn("result cache get", applogger.String("kind", kind), applogger.Error(err))
		return false
	}
	if !ok || json.Unmarshal(b, dst) != nil {
		smetrics.CacheMiss(kind)
		return false
	}
	smetrics.CacheHit(kind)
	return true
}

func (rc *resultCache) put(ctx context.Context, kind, key string, v interface{}) {
	if !rc.enabled() {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := rc.c.SetBytes(ctx, key, b, rc.ttl); err != nil {
		rc.l.Warn("result cache set", applogger.String("kind", kind), applogger.Error(err))
	}
}

type noopMetrics struct{}

func (noopMetrics) RecordAnalysis(string, int) {}
func (noopMetrics) RecordError(string) {}
func (noopMetrics) RecordLatency(string, float64) {}
func (noopMetrics) RecordDatasetSize(int) {}
func (noopMetrics) RecordSlope(float64) {}
