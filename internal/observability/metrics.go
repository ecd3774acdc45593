// Package observability holds the Prometheus collectors for the trust ledger.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activitiesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trust_service",
		Subsystem: "ledger",
		Name:      "activities_recorded_total",
		Help:      "Number of ledger entries appended, labeled by activity kind.",
	}, []string{"kind"})

	pointsApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trust_service",
		Subsystem: "ledger",
		Name:      "points_requested_total",
		Help:      "Absolute points requested by ledger entries, labeled by direction.",
	}, []string{"direction"})

	scoreClamped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "trust_service",
		Subsystem: "ledger",
		Name:      "score_clamped_total",
		Help:      "Number of ledger entries whose delta was partly discarded by the score bounds.",
	})

	activitiesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trust_service",
		Subsystem: "ledger",
		Name:      "activities_rejected_total",
		Help:      "Number of record attempts that failed, labeled by reason.",
	}, []string{"reason"})

	lastRecordedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trust_service",
		Subsystem: "ledger",
		Name:      "last_activity_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent ledger entry.",
	})
)

func init() {
	prometheus.MustRegister(activitiesRecorded, pointsApplied, scoreClamped, activitiesRejected, lastRecordedGauge)
}

// RecordActivityRecorded updates ledger counters after a successful append.
func RecordActivityRecorded(kind string, points int, clamped bool, ts time.Time) {
	activitiesRecorded.WithLabelValues(kind).Inc()
	switch {
	case points > 0:
		pointsApplied.WithLabelValues("gain").Add(float64(points))
	case points < 0:
		pointsApplied.WithLabelValues("loss").Add(float64(-points))
	}
	if clamped {
		scoreClamped.Inc()
	}
	if !ts.IsZero() {
		lastRecordedGauge.Set(float64(ts.Unix()))
	}
}

// RecordActivityRejected counts a failed append.
func RecordActivityRejected(reason string) {
	activitiesRejected.WithLabelValues(reason).Inc()
}
