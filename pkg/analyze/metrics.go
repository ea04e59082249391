package analyze

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	analyzerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "glens_analyzer_duration_seconds",
			Help:    "Time taken by individual analyzers",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"analyzer"}, // cluster, node, pod
	)

	findingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "glens_findings_total",
			Help: "Total number of findings produced, by severity",
		},
		[]string{"severity"},
	)
)

func recordFindings(findings []Finding) {
	for _, f := range findings {
		findingsTotal.WithLabelValues(string(f.Severity)).Inc()
	}
}
