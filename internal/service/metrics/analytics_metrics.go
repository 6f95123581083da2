package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	EndpointLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "signallab",
			Subsystem: "api",
			Name:      "latency_seconds",
			Help:      "Latency of analysis endpoints",
			Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"endpoint"},
	)

	EndpointErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signallab",
			Subsystem: "api",
			Name:      "errors_total",
			Help:      "Errors by analysis endpoint",
		},
		[]string{"endpoint"},
	)

	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "signallab",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Result cache lookups by kind and outcome",
		},
		[]string{"kind", "result"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(EndpointLatency, EndpointErrors, CacheLookups)
	})
}

// ObserveEndpoint records the latency of one call started at start.
func ObserveEndpoint(endpoint string, start time.Time) {
	EndpointLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

func EndpointError(endpoint string) { EndpointErrors.WithLabelValues(endpoint).Inc() }

func CacheHit(kind string)  { CacheLookups.WithLabelValues(kind, "hit").Inc() }
func CacheMiss(kind string) { CacheLookups.WithLabelValues(kind, "miss").Inc() }
