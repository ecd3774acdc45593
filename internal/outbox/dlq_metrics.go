package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes of a DLQ pass over a single trust event.
const (
	dlqOutcomeRequeued    = "requeued"
	dlqOutcomeRetry       = "retry_scheduled"
	dlqOutcomeQuarantined = "quarantined"
)

var (
	dlqOutcomeCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trust_service",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled, labeled by trust event type and outcome.",
	}, []string{"event_type", "outcome"})

	dlqBacklogGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "trust_service",
		Subsystem: "dlq",
		Name:      "pending_entries",
		Help:      "Unquarantined DLQ entries per trust event type.",
	}, []string{"event_type"})

	// Score changes stuck in the DLQ are invisible to downstream services, so
	// the age of the oldest one is the delay they currently observe.
	dlqOldestAgeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "trust_service",
		Subsystem: "dlq",
		Name:      "oldest_pending_age_seconds",
		Help:      "Age of the oldest unquarantined DLQ entry.",
	})
)

func init() {
	prometheus.MustRegister(dlqOutcomeCounter, dlqBacklogGauge, dlqOldestAgeGauge)
}

func recordDLQOutcome(entry dlqEntry, outcome string) {
	dlqOutcomeCounter.WithLabelValues(entry.EventType, outcome).Inc()
}

// refreshDLQBacklog recomputes the backlog gauges from outbox_dlq.
func refreshDLQBacklog(ctx context.Context, pool *pgxpool.Pool) error {
	rows, err := pool.Query(ctx, `SELECT event_type, COUNT(*), MIN(created_at)
                                    FROM outbox_dlq
                                   WHERE quarantined_at IS NULL
                                   GROUP BY event_type`)
	if err != nil {
		return err
	}
	defer rows.Close()

	counts := make(map[string]int)
	var oldest time.Time
	for rows.Next() {
		var (
			eventType string
			count     int
			createdAt time.Time
		)
		if err := rows.Scan(&eventType, &count, &createdAt); err != nil {
			return err
		}
		counts[eventType] = count
		if oldest.IsZero() || createdAt.Before(oldest) {
			oldest = createdAt
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	setDLQBacklog(counts, oldest, time.Now())
	return nil
}

func setDLQBacklog(counts map[string]int, oldest, now time.Time) {
	dlqBacklogGauge.Reset()
	for eventType := range schemaCatalog {
		dlqBacklogGauge.WithLabelValues(eventType).Set(0)
	}
	for eventType, count := range counts {
		dlqBacklogGauge.WithLabelValues(eventType).Set(float64(count))
	}
	if oldest.IsZero() {
		dlqOldestAgeGauge.Set(0)
		return
	}
	dlqOldestAgeGauge.Set(now.Sub(oldest).Seconds())
}
