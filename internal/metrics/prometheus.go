package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// storeOps counts store operations.
	// Labels: op, result (ok, error)
	storeOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "respec",
		Subsystem: "store",
		Name:      "operations_total",
		Help:      "Store operations by name and result",
	}, []string{"op", "result"})

	// storeLatency measures store operation latency.
	// Labels: op
	storeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "respec",
		Subsystem: "store",
		Name:      "latency_seconds",
		Help:      "Store operation latency in seconds",
		Buckets:   []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"op"})

	// loopDecisions counts engine outcomes.
	// Labels: loop_type, outcome
	loopDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "respec",
		Subsystem: "loop",
		Name:      "decisions_total",
		Help:      "Loop engine outcomes by loop type",
	}, []string{"loop_type", "outcome"})

	// feedbackScores tracks the distribution of normalized scores.
	// Labels: loop_type
	feedbackScores = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "respec",
		Subsystem: "loop",
		Name:      "feedback_score",
		Help:      "Normalized critic scores",
		Buckets:   prometheus.LinearBuckets(10, 10, 10),
	}, []string{"loop_type"})
)

// Prometheus records into the process-wide default registry.
type Prometheus struct{}

func (Prometheus) ObserveOp(op string, d time.Duration, err error) {
	storeOps.WithLabelValues(op, Result(err)).Inc()
	storeLatency.WithLabelValues(op).Observe(d.Seconds())
}

func (Prometheus) ObserveDecision(loopType, outcome string, score int) {
	loopDecisions.WithLabelValues(loopType, outcome).Inc()
	feedbackScores.WithLabelValues(loopType).Observe(float64(score))
}
