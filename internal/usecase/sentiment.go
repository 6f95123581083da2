package usecase

import (
	"context"
	"fmt"
	"time"

	"SignalLab/internal/domain/models"
	domrepo "SignalLab/internal/domain/repository"
	"SignalLab/internal/domain/service"
	icache "SignalLab/internal/service/cache"
	"SignalLab/internal/services/sentiment"
	applogger "SignalLab/pkg/logger"
)

// TooManyLinesError is returned when a text exceeds the configured line cap.
type TooManyLinesError struct {
	Lines int
	Max   int
}

func (e *TooManyLinesError) Error() string {
	return fmt.Sprintf("text has %d lines, at most %d allowed", e.Lines, e.Max)
}

// SentimentUseCase scores multi-line text.
type SentimentUseCase struct {
	analyzer service.SentimentAnalyzer
	lexID    []byte
	metrics  domrepo.Metrics
	cache    *resultCache
	maxLines int
	log      *applogger.Logger
}

type SentimentOption func(*SentimentUseCase)

// WithMaxLines caps the number of non-empty lines per call; 0 disables the cap.
func WithMaxLines(n int) SentimentOption {
	return func(uc *SentimentUseCase) { uc.maxLines = n }
}

func WithSentimentMetrics(m domrepo.Metrics) SentimentOption {
	return func(uc *SentimentUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithSentimentCache(c icache.BytesCache, ttl time.Duration) SentimentOption {
	return func(uc *SentimentUseCase) {
		if c != nil {
			uc.cache = &resultCache{c: c, ttl: ttl}
		}
	}
}

func WithSentimentLogger(l *applogger.Logger) SentimentOption {
	return func(uc *SentimentUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

func NewSentimentUseCase(a service.SentimentAnalyzer, opts ...SentimentOption) *SentimentUseCase {
	uc := &SentimentUseCase{analyzer: a, lexID: []byte(a.Fingerprint()), metrics: noopMetrics{}, log: applogger.Nop()}
	for _, opt := range opts {
		opt(uc)
	}
	uc.log = uc.log.With("sentiment")
	if uc.cache != nil {
		uc.cache.l = uc.log
	}
	return uc
}

// CheckLines reports a *TooManyLinesError when text is over the line cap.
func (uc *SentimentUseCase) CheckLines(text string) error {
	if uc.maxLines <= 0 {
		return nil
	}
	if n := len(sentiment.SplitLines(text)); n > uc.maxLines {
		uc.metrics.RecordError("sentiment_too_many_lines")
		return &TooManyLinesError{Lines: n, Max: uc.maxLines}
	}
	return nil
}

// Analyze returns one result per non-empty line of text, in input order.
func (uc *SentimentUseCase) Analyze(ctx context.Context, text string) ([]models.SentimentResult, error) {
	start := time.Now()

	if err := uc.CheckLines(text); err != nil {
		return nil, err
	}

	key := icache.Key("sentiment", uc.lexID, []byte(text))
	var res []models.SentimentResult
	if uc.cache.get(ctx, "sentiment", key, &res) {
		return res, nil
	}

	res = uc.analyzer.Analyze(text)
	uc.cache.put(ctx, "sentiment", key, res)

	uc.metrics.RecordAnalysis("sentiment", len(res))
	uc.metrics.RecordLatency("sentiment", time.Since(start).Seconds())
	return res, nil
}
