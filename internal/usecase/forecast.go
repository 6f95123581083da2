package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"SignalLab/internal/domain/models"
	domrepo "SignalLab/internal/domain/repository"
	"SignalLab/internal/domain/service"
	icache "SignalLab/internal/service/cache"
	"SignalLab/internal/services/ingest"
	applogger "SignalLab/pkg/logger"
	xutil "SignalLab/pkg/util"
)

var (
	// ErrSourceDisabled is returned when no observation source is configured.
	ErrSourceDisabled = errors.New("observation source disabled")
	// ErrInvalidObservation wraps a request observation that cannot be parsed.
	ErrInvalidObservation = errors.New("invalid observation")
)

// ForecastUseCase owns the current dataset and runs the trend forecaster over it
// or over caller-supplied series.
type ForecastUseCase struct {
	forecaster     service.Forecaster
	dataset        *ingest.Dataset
	source         domrepo.ObservationSource
	metrics        domrepo.Metrics
	cache          *resultCache
	defaultHorizon int
	log            *applogger.Logger
}

type ForecastOption func(*ForecastUseCase)

// WithObservationSource enables loading the dataset from stored history.
func WithObservationSource(src domrepo.ObservationSource) ForecastOption {
	return func(uc *ForecastUseCase) { uc.source = src }
}

func WithForecastMetrics(m domrepo.Metrics) ForecastOption {
	return func(uc *ForecastUseCase) {
		if m != nil {
			uc.metrics = m
		}
	}
}

func WithForecastCache(c icache.BytesCache, ttl time.Duration) ForecastOption {
	return func(uc *ForecastUseCase) {
		if c != nil {
			uc.cache = &resultCache{c: c, ttl: ttl}
		}
	}
}

// WithDefaultHorizon sets the horizon used when a series request omits one.
func WithDefaultHorizon(h int) ForecastOption {
	return func(uc *ForecastUseCase) { uc.defaultHorizon = h }
}

func WithForecastLogger(l *applogger.Logger) ForecastOption {
	return func(uc *ForecastUseCase) {
		if l != nil {
			uc.log = l
		}
	}
}

func NewForecastUseCase(f service.Forecaster, ds *ingest.Dataset, opts ...ForecastOption) *ForecastUseCase {
	uc := &ForecastUseCase{
		forecaster:     f,
		dataset:        ds,
		metrics:        noopMetrics{},
		defaultHorizon: ingest.DefaultHorizon,
		log:            applogger.Nop(),
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.log = uc.log.With("forecast")
	if uc.cache != nil {
		uc.cache.l = uc.log
	}
	uc.metrics.RecordDatasetSize(ds.Len())
	return uc
}

// DatasetView is the current observation set plus its horizon.
type DatasetView struct {
	Observations []models.Observation `json:"observations"`
	Horizon      int                  `json:"horizon"`
}

// IngestOutcome describes a dataset replacement attempt. Replaced is false when
// no row was usable; the previous dataset is then kept.
type IngestOutcome struct {
	ingest.Report
	Replaced bool `json:"replaced"`
	Size     int  `json:"size"`
}

// SourceOutcome describes a load from the observation source.
type SourceOutcome struct {
	Symbol   string `json:"symbol"`
	Fetched  int    `json:"fetched"`
	Replaced bool   `json:"replaced"`
	Size     int    `json:"size"`
}

// ObservationsFromInput converts request rows, keeping their order.
func ObservationsFromInput(in []models.ObservationInput) ([]models.Observation, error) {
	out := make([]models.Observation, 0, len(in))
	for i, row := range in {
		ts, ok := xutil.ParseDate(row.Date)
		if !ok {
			return nil, fmt.Errorf("%w: observations[%d].date %q", ErrInvalidObservation, i, row.Date)
		}
		if row.Value == nil {
			return nil, fmt.Errorf("%w: observations[%d].value missing", ErrInvalidObservation, i)
		}
		out = append(out, models.Observation{Timestamp: ts, Value: *row.Value})
	}
	return out, nil
}

// Forecast fits obs and extrapolates horizon days; a nil horizon uses the default.
func (uc *ForecastUseCase) Forecast(ctx context.Context, obs []models.Observation, horizon *int) models.ForecastResult {
	h := uc.defaultHorizon
	if horizon != nil {
		h = *horizon
	}
	return uc.run(ctx, obs, h)
}

// ForecastDataset forecasts the current dataset; a nil horizon uses the dataset horizon.
func (uc *ForecastUseCase) ForecastDataset(ctx context.Context, horizon *int) models.ForecastResult {
	h := uc.dataset.Horizon()
	if horizon != nil {
		h = *horizon
	}
	return uc.run(ctx, uc.dataset.Snapshot(), h)
}

func (uc *ForecastUseCase) run(ctx context.Context, obs []models.Observation, horizon int) models.ForecastResult {
	start := time.Now()
	key := forecastKey(obs, horizon)

	var res models.ForecastResult
	if uc.cache.get(ctx, "forecast", key, &res) {
		return res
	}

	res = uc.forecaster.Forecast(obs, horizon)
	uc.cache.put(ctx, "forecast", key, res)

	uc.metrics.RecordAnalysis("forecast", len(res.Combined))
	uc.metrics.RecordSlope(res.Slope)
	uc.metrics.RecordLatency("forecast", time.Since(start).Seconds())
	return res
}

func forecastKey(obs []models.Observation, horizon int) string {
	buf := make([]byte, 0, len(obs)*24+8)
	buf = strconv.AppendInt(buf, int64(horizon), 10)
	for _, o := range obs {
		buf = append(buf, '|')
		buf = strconv.AppendInt(buf, o.Timestamp.UnixNano(), 10)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, o.Value, 'g', -1, 64)
	}
	return icache.Key("forecast", buf)
}

func (uc *ForecastUseCase) Dataset() DatasetView {
	return DatasetView{Observations: uc.dataset.Snapshot(), Horizon: uc.dataset.Horizon()}
}

// SetHorizon clamps h to the dataset range and returns the stored value.
func (uc *ForecastUseCase) SetHorizon(h int) int {
	return uc.dataset.SetHorizon(h)
}

// IngestCSV replaces the dataset with the valid rows of r.
func (uc *ForecastUseCase) IngestCSV(ctx context.Context, r io.Reader) (IngestOutcome, error) {
	obs, rep, err := ingest.ParseCSV(r)
	if err != nil {
		uc.metrics.RecordError("ingest_csv")
		return IngestOutcome{Report: rep}, err
	}
	replaced := uc.dataset.Replace(obs)
	size := uc.dataset.Len()
	uc.metrics.RecordDatasetSize(size)

	uc.log.Info("csv ingested",
		applogger.Int("rows", rep.Rows),
		applogger.Int("accepted", rep.Accepted),
		applogger.Int("skipped", rep.Skipped),
		applogger.Bool("replaced", replaced),
	)
	return IngestOutcome{Report: rep, Replaced: replaced, Size: size}, nil
}

func (uc *ForecastUseCase) LoadSample() DatasetView {
	uc.dataset.LoadSample()
	uc.metrics.RecordDatasetSize(uc.dataset.Len())
	return uc.Dataset()
}

func (uc *ForecastUseCase) ClearDataset() {
	uc.dataset.Clear()
	uc.metrics.RecordDatasetSize(0)
}

// LoadFromSource replaces the dataset with the latest stored closes for symbol.
func (uc *ForecastUseCase) LoadFromSource(ctx context.Context, symbol string, limit int) (SourceOutcome, error) {
	if uc.source == nil {
		return SourceOutcome{}, ErrSourceDisabled
	}
	start := time.Now()
	obs, err := uc.source.LatestObservations(ctx, symbol, limit)
	uc.metrics.RecordLatency("source_load", time.Since(start).Seconds())
	if err != nil {
		uc.metrics.RecordError("source_load")
		return SourceOutcome{}, fmt.Errorf("load %s: %w", symbol, err)
	}

	replaced := uc.dataset.Replace(obs)
	size := uc.dataset.Len()
	uc.metrics.RecordDatasetSize(size)
	return SourceOutcome{Symbol: symbol, Fetched: len(obs), Replaced: replaced, Size: size}, nil
}
