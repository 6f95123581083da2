package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SignalLab/internal/domain/models"
	icache "SignalLab/internal/service/cache"
	"SignalLab/internal/services/forecast"
	"SignalLab/internal/services/ingest"
	"SignalLab/internal/services/sentiment"
	pkgkafka "SignalLab/pkg/kafka"
)

type recMetrics struct {
	mu       sync.Mutex
	analyses map[string]int
	errors   map[string]int
	size     int
	slope    float64
}

func newRecMetrics() *recMetrics {
	return &recMetrics{analyses: map[string]int{}, errors: map[string]int{}}
}

func (m *recMetrics) RecordAnalysis(kind string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses[kind]++
}

func (m *recMetrics) RecordError(kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[kind]++
}

func (m *recMetrics) RecordLatency(string, float64) {}

func (m *recMetrics) RecordDatasetSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = n
}

func (m *recMetrics) RecordSlope(s float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slope = s
}

type fakeSource struct {
	obs []models.Observation
	err error
}

func (s *fakeSource) LatestObservations(context.Context, string, int) ([]models.Observation, error) {
	return s.obs, s.err
}

func (s *fakeSource) Health(context.Context) error { return nil }

func day(s string) time.Time {
	t, _ := time.Parse(models.DateLayout, s)
	return t
}

func intp(v int) *int { return &v }

func newForecastUC(opts ...ForecastOption) (*ForecastUseCase, *recMetrics) {
	m := newRecMetrics()
	opts = append([]ForecastOption{WithForecastMetrics(m)}, opts...)
	return NewForecastUseCase(forecast.NewLinearForecaster(), ingest.NewDataset(), opts...), m
}

func TestObservationsFromInput(t *testing.T) {
	v1, v2 := 1.5, 2.5
	obs, err := ObservationsFromInput([]models.ObservationInput{
		{Date: "2025-05-01", Value: &v1},
		{Date: "2025/05/02", Value: &v2},
	})
	require.NoError(t, err)
	require.Len(t, obs, 2)
	assert.Equal(t, day("2025-05-02"), obs[1].Timestamp)

	_, err = ObservationsFromInput([]models.ObservationInput{{Date: "yesterday", Value: &v1}})
	assert.ErrorIs(t, err, ErrInvalidObservation)
	assert.Contains(t, err.Error(), "observations[0].date")
}

func TestForecastUsesDefaultHorizon(t *testing.T) {
	uc, m := newForecastUC(WithDefaultHorizon(3))
	obs := []models.Observation{
		{Timestamp: day("2025-05-01"), Value: 1},
		{Timestamp: day("2025-05-02"), Value: 2},
	}

	res := uc.Forecast(context.Background(), obs, nil)
	assert.Len(t, res.Combined, 5)
	assert.InDelta(t, 1.0, res.Slope, 1e-12)
	assert.InDelta(t, 1.0, m.slope, 1e-12)

	res = uc.Forecast(context.Background(), obs, intp(0))
	assert.Len(t, res.Combined, 2)
	assert.Equal(t, 2, m.analyses["forecast"])
}

func TestForecastDatasetFallsBackToDatasetHorizon(t *testing.T) {
	uc, _ := newForecastUC()
	assert.Equal(t, 30, uc.SetHorizon(30))

	res := uc.ForecastDataset(context.Background(), nil)
	assert.Len(t, res.Combined, 20+30)

	res = uc.ForecastDataset(context.Background(), intp(7))
	assert.Len(t, res.Combined, 27)

	assert.Equal(t, ingest.MaxHorizon, uc.SetHorizon(1000))
}

func TestForecastCacheServesRepeatCalls(t *testing.T) {
	c := icache.NewTTLCache()
	uc, m := newForecastUC(WithForecastCache(c, time.Minute))

	first := uc.ForecastDataset(context.Background(), nil)
	second := uc.ForecastDataset(context.Background(), nil)

	assert.Equal(t, 1, m.analyses["forecast"], "second call is a cache hit")
	assert.Equal(t, 1, c.Len())
	require.Len(t, second.Combined, len(first.Combined))
	assert.InDelta(t, first.Slope, second.Slope, 1e-12)
	assert.Equal(t, first.Combined[0].Timestamp, second.Combined[0].Timestamp)
	assert.Equal(t, *first.Combined[0].Actual, *second.Combined[0].Actual)
	assert.Nil(t, second.Combined[len(second.Combined)-1].Actual)

	uc.Forecast(context.Background(), uc.Dataset().Observations, intp(8))
	assert.Equal(t, 2, m.analyses["forecast"], "different horizon is a different key")
}

func TestIngestCSVKeepsDatasetWhenNothingValid(t *testing.T) {
	uc, m := newForecastUC()

	out, err := uc.IngestCSV(context.Background(), strings.NewReader("date,close\nbad,1\n2025-01-01,oops\n"))
	require.NoError(t, err)
	assert.False(t, out.Replaced)
	assert.Equal(t, 2, out.Skipped)
	assert.Equal(t, 20, out.Size)

	out, err = uc.IngestCSV(context.Background(), strings.NewReader("Date,Price\n2025-01-01,10\n2025-01-02,12\n"))
	require.NoError(t, err)
	assert.True(t, out.Replaced)
	assert.Equal(t, 2, out.Size)
	assert.Equal(t, 2, m.size)

	_, err = uc.IngestCSV(context.Background(), strings.NewReader("when,amount\n"))
	assert.ErrorIs(t, err, ingest.ErrMissingColumn)
	assert.Equal(t, 1, m.errors["ingest_csv"])
}

func TestSampleAndClear(t *testing.T) {
	uc, m := newForecastUC()
	uc.ClearDataset()
	assert.Empty(t, uc.Dataset().Observations)
	assert.Equal(t, 0, m.size)

	res := uc.ForecastDataset(context.Background(), nil)
	assert.Empty(t, res.Combined)

	view := uc.LoadSample()
	assert.Len(t, view.Observations, 20)
	assert.Equal(t, ingest.DefaultHorizon, view.Horizon)
}

func TestLoadFromSource(t *testing.T) {
	uc, _ := newForecastUC()
	_, err := uc.LoadFromSource(context.Background(), "AAPL", 10)
	assert.ErrorIs(t, err, ErrSourceDisabled)

	src := &fakeSource{obs: []models.Observation{{Timestamp: day("2025-06-01"), Value: 5}}}
	uc, _ = newForecastUC(WithObservationSource(src))
	out, err := uc.LoadFromSource(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	assert.True(t, out.Replaced)
	assert.Equal(t, 1, out.Size)

	src.obs = nil
	out, err = uc.LoadFromSource(context.Background(), "AAPL", 10)
	require.NoError(t, err)
	assert.False(t, out.Replaced)
	assert.Equal(t, 1, out.Size, "empty result keeps the previous dataset")

	src.err = errors.New("timeout")
	_, err = uc.LoadFromSource(context.Background(), "AAPL", 10)
	assert.ErrorContains(t, err, "timeout")
}

func newSentimentUC(opts ...SentimentOption) (*SentimentUseCase, *recMetrics) {
	m := newRecMetrics()
	opts = append([]SentimentOption{WithSentimentMetrics(m)}, opts...)
	return NewSentimentUseCase(sentiment.NewScorer(sentiment.DefaultLexicon()), opts...), m
}

func TestSentimentAnalyze(t *testing.T) {
	uc, m := newSentimentUC()
	res, err := uc.Analyze(context.Background(), "I love this product!\nThis is okay.\nWorst experience ever.")
	require.NoError(t, err)
	require.Len(t, res, 3)
	assert.Equal(t, models.LabelPositive, res[0].Label)
	assert.Equal(t, models.LabelNeutral, res[1].Label)
	assert.Equal(t, models.LabelNegative, res[2].Label)
	assert.Equal(t, 1, m.analyses["sentiment"])
}

func TestSentimentLineCap(t *testing.T) {
	uc, m := newSentimentUC(WithMaxLines(2))

	_, err := uc.Analyze(context.Background(), "a\n\n\nb\n")
	require.NoError(t, err, "blank lines do not count")

	_, err = uc.Analyze(context.Background(), "a\nb\nc")
	var tooMany *TooManyLinesError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, 3, tooMany.Lines)
	assert.Equal(t, 1, m.errors["sentiment_too_many_lines"])
}

func TestSentimentCache(t *testing.T) {
	c := icache.NewTTLCache()
	uc, m := newSentimentUC(WithSentimentCache(c, time.Minute))

	a, err := uc.Analyze(context.Background(), "good day")
	require.NoError(t, err)
	b, err := uc.Analyze(context.Background(), "good day")
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Equal(t, 1, m.analyses["sentiment"])
}

type capturePublisher struct {
	got []models.SentimentJobResult
	err error
}

func (p *capturePublisher) PublishResult(_ context.Context, r models.SentimentJobResult) error {
	if p.err != nil {
		return p.err
	}
	p.got = append(p.got, r)
	return nil
}

func (p *capturePublisher) Close() error { return nil }

func TestSentimentJobHandler(t *testing.T) {
	uc, _ := newSentimentUC()
	pub := &capturePublisher{}
	m := newRecMetrics()
	h := NewSentimentJobHandler("signallab.sentiment.requests", uc, pub, m)
	h.now = func() time.Time { return time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC) }

	assert.Equal(t, "signallab.sentiment.requests", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"id":"j1","text":"love it\nhate it"}`)))
	require.Len(t, pub.got, 1)
	assert.Equal(t, "j1", pub.got[0].ID)
	assert.Len(t, pub.got[0].Results, 2)
	assert.Equal(t, h.now(), pub.got[0].AnalyzedAt)

	ctx := pkgkafka.WithTraceID(context.Background(), "from-key")
	require.NoError(t, h.Handle(ctx, []byte(`{"text":"fine"}`)))
	assert.Equal(t, "from-key", pub.got[1].ID)

	assert.Error(t, h.Handle(context.Background(), []byte(`{"text":"no id"}`)))
	assert.Error(t, h.Handle(context.Background(), []byte(`not json`)))
	assert.Equal(t, 1, m.errors["job_unmarshal"])

	pub.err = errors.New("broker down")
	err := h.Handle(context.Background(), []byte(`{"id":"j2","text":"x"}`))
	assert.ErrorContains(t, err, "broker down")
	assert.Equal(t, 1, m.errors["job_publish"])
}

func TestSentimentCacheIsPerLexicon(t *testing.T) {
	c := icache.NewTTLCache()
	bull := NewSentimentUseCase(sentiment.NewScorer(sentiment.Lexicon{"moon": 3}), WithSentimentCache(c, time.Minute))
	bear := NewSentimentUseCase(sentiment.NewScorer(sentiment.Lexicon{"moon": -3}), WithSentimentCache(c, time.Minute))

	up, err := bull.Analyze(context.Background(), "to the moon")
	require.NoError(t, err)
	require.Len(t, up, 1)
	assert.Equal(t, 3, up[0].Score)

	down, err := bear.Analyze(context.Background(), "to the moon")
	require.NoError(t, err)
	require.Len(t, down, 1)
	assert.Equal(t, -3, down[0].Score)
	assert.Equal(t, models.LabelNegative, down[0].Label)
	assert.Equal(t, 2, c.Len())
}
