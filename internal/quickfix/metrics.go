package quickfix

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// analysisRuns counts finished analysis runs.
	// Labels: result (success, partial, timeout, failed)
	analysisRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ax_quickfix",
		Subsystem: "analysis",
		Name:      "runs_total",
		Help:      "Total analysis runs by result",
	}, []string{"result"})

	analysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ax_quickfix",
		Subsystem: "analysis",
		Name:      "duration_seconds",
		Help:      "Wall-clock time of one analysis run",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 45},
	})

	// analyzerRuns counts analyzer executions.
	// Labels: analyzer, result (ok, error, panic, timeout)
	analyzerRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ax_quickfix",
		Subsystem: "analyzer",
		Name:      "runs_total",
		Help:      "Total analyzer executions by result",
	}, []string{"analyzer", "result"})

	// cacheRequests counts result cache lookups.
	// Labels: result (hit, miss)
	cacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ax_quickfix",
		Subsystem: "cache",
		Name:      "requests_total",
		Help:      "Result cache lookups by result",
	}, []string{"result"})

	fixesProposed = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "ax_quickfix",
		Subsystem: "analysis",
		Name:      "fixes_proposed",
		Help:      "Number of fixes in the latest analysis result",
	})

	// applyTotal counts apply attempts.
	// Labels: kind, result (success, failed, not_found)
	applyTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ax_quickfix",
		Subsystem: "remediation",
		Name:      "apply_total",
		Help:      "Total fix apply attempts",
	}, []string{"kind", "result"})

	// rollbackTotal counts rollback attempts.
	// Labels: result (success, failed, rejected)
	rollbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ax_quickfix",
		Subsystem: "remediation",
		Name:      "rollback_total",
		Help:      "Total fix rollback attempts",
	}, []string{"result"})
)
