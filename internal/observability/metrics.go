package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	autogradeRunsTotal     *prometheus.CounterVec
	autogradeLatencySecond prometheus.Histogram
	cellsScoredTotal       prometheus.Counter
	checksumMismatchTotal  prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the grading
// engine.
func RegisterMetrics() {
	registerOnce.Do(func() {
		autogradeRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "autograde_runs_total",
			Help: "Total number of notebook grading passes, by result.",
		}, []string{"result"})

		autogradeLatencySecond = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "autograde_latency_seconds",
			Help:    "Latency distribution of one notebook grading pass.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		})

		cellsScoredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autograde_cells_scored_total",
			Help: "Total number of grade cells written by the autograder.",
		})

		checksumMismatchTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "autograde_checksum_mismatches_total",
			Help: "Total number of protected cells found modified in submissions.",
		})

		prometheus.MustRegister(autogradeRunsTotal, autogradeLatencySecond, cellsScoredTotal, checksumMismatchTotal)
	})
}

// AutogradeRuns exposes the counter for grading passes.
func AutogradeRuns() *prometheus.CounterVec {
	RegisterMetrics()
	return autogradeRunsTotal
}

// AutogradeLatency exposes the latency histogram for grading passes.
func AutogradeLatency() prometheus.Histogram {
	RegisterMetrics()
	return autogradeLatencySecond
}

// CellsScored exposes the counter for scored cells.
func CellsScored() prometheus.Counter {
	RegisterMetrics()
	return cellsScoredTotal
}

// ChecksumMismatches exposes the counter for tampered protected cells.
func ChecksumMismatches() prometheus.Counter {
	RegisterMetrics()
	return checksumMismatchTotal
}
