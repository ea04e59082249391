package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	parseDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "glens_capture_parse_duration_seconds",
		Help:    "End to end capture parse time",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	capturesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glens_captures_total",
			Help: "Capture parse operations by outcome",
		},
		[]string{"status"}, // ok, error
	)

	inflightOps = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "glens_inflight_operations",
		Help: "Heavyweight operations currently holding a concurrency slot",
	})
)
