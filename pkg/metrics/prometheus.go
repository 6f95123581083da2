package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"SignalLab/internal/domain/repository"
)

var _ repository.Metrics = (*Recorder)(nil)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	analysesTotal *prometheus.CounterVec
	itemsTotal    *prometheus.CounterVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
	datasetSize   prometheus.Gauge
	lastSlope     prometheus.Gauge
}

var (
	defaultOnce     sync.Once
	defaultRecorder *Recorder
)

// New returns the recorder registered on the default registry. It is created
// once per process.
func New() *Recorder {
	defaultOnce.Do(func() {
		defaultRecorder = NewWithRegisterer(prometheus.DefaultRegisterer)
	})
	return defaultRecorder
}

// NewWithRegisterer lets tests use an isolated registry.
func NewWithRegisterer(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analysesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signallab_analyses_total",
				Help: "Total number of analyses served",
			},
			[]string{"kind"},
		),
		itemsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signallab_analysis_items_total",
				Help: "Points forecast or lines scored",
			},
			[]string{"kind"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signallab_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "signallab_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		datasetSize: f.NewGauge(prometheus.GaugeOpts{
			Name: "signallab_dataset_observations",
			Help: "Observations in the current dataset",
		}),
		lastSlope: f.NewGauge(prometheus.GaugeOpts{
			Name: "signallab_forecast_last_slope",
			Help: "Slope of the most recent fit",
		}),
	}
}

// RecordAnalysis counts one analysis of the given kind covering items points or lines.
func (r *Recorder) RecordAnalysis(kind string, items int) {
	r.analysesTotal.WithLabelValues(kind).Inc()
	r.itemsTotal.WithLabelValues(kind).Add(float64(items))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

func (r *Recorder) RecordDatasetSize(n int) {
	r.datasetSize.Set(float64(n))
}

func (r *Recorder) RecordSlope(slope float64) {
	r.lastSlope.Set(slope)
}
