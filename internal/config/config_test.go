package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"HTTP_ADDRESS", "STORE_DRIVER", "KAFKA_BROKERS", "CONSUMER_TOPICS", "OUTBOX_BATCH_SIZE", "POINT_TABLE_PATH"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"collab_events"}, cfg.ConsumerTopics)
	require.Equal(t, 25, cfg.OutboxBatchSize)
	require.Empty(t, cfg.PointTablePath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("KAFKA_BROKERS", " k1:9092, ,k2:9092 ")
	t.Setenv("CONSUMER_TOPICS", "collab_events,review_events")
	t.Setenv("OUTBOX_POLL_INTERVAL", "250ms")
	t.Setenv("DLQ_MAX_RETRIES", "9")
	t.Setenv("POINT_TABLE_PATH", "/etc/trust/points.yaml")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")

	cfg := Load()
	require.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, []string{"collab_events", "review_events"}, cfg.ConsumerTopics)
	require.Equal(t, 250*time.Millisecond, cfg.OutboxPollInterval)
	require.Equal(t, 9, cfg.DLQMaxRetries)
	require.Equal(t, "/etc/trust/points.yaml", cfg.PointTablePath)
	require.Zero(t, cfg.RateLimitPerMinute)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("OUTBOX_BATCH_SIZE", "lots")
	t.Setenv("DLQ_BASE_DELAY", "soon")

	cfg := Load()
	require.Equal(t, 25, cfg.OutboxBatchSize)
	require.Equal(t, time.Minute, cfg.DLQBaseDelay)
}
