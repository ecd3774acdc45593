//go:build integration

package outbox

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Sugavanesh17/UniConnect/internal/domain"
	"github.com/Sugavanesh17/UniConnect/internal/persistence/postgres"
)

func TestDispatcherPublishesLedgerEvents(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	tenantID := uuid.NewString()
	seedLedger(t, ctx, pool, tenantID)

	producer := &stubProducer{}
	registry := &stubRegistry{id: 42}
	dispatcher := NewDispatcher(pool, producer, registry, 10*time.Millisecond, 10)

	beforeDelivered := testutil.ToFloat64(deliveredCounter)
	require.NoError(t, dispatcher.processBatch(ctx))

	topics := map[string]int{}
	for _, w := range producer.writes {
		topics[w.topic] += len(w.messages)
	}
	require.Equal(t, 1, topics["trust_activity_events"])
	require.Equal(t, 1, topics["trust_score_changed"])
	require.InDelta(t, beforeDelivered+2, testutil.ToFloat64(deliveredCounter), 0.0001)

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox WHERE published_at IS NULL`).Scan(&pending))
	require.Zero(t, pending)
}

func TestDispatcherFailureRoutesToDLQAndManagerRequeues(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	tenantID := uuid.NewString()
	seedLedger(t, ctx, pool, tenantID)

	dispatcher := NewDispatcher(pool, &stubProducer{err: errors.New("kafka write failed")}, &stubRegistry{id: 7}, 10*time.Millisecond, 10)
	beforeDLQ := testutil.ToFloat64(dlqCounter.WithLabelValues("trust_activity_events"))
	require.NoError(t, dispatcher.processBatch(ctx))
	require.InDelta(t, beforeDLQ+1, testutil.ToFloat64(dlqCounter.WithLabelValues("trust_activity_events")), 0.0001)

	var dlqCount int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE tenant_id = $1`, tenantID).Scan(&dlqCount))
	require.Equal(t, 2, dlqCount)

	manager := NewDLQManager(pool, 5, time.Second, nil)
	replayed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 2, replayed)

	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq`).Scan(&dlqCount))
	require.Zero(t, dlqCount)

	producer := &stubProducer{}
	dispatcher = NewDispatcher(pool, producer, &stubRegistry{id: 7}, 10*time.Millisecond, 10)
	require.NoError(t, dispatcher.processBatch(ctx))
	require.Len(t, producer.writes, 2)
}

func TestDLQManagerQuarantinesExhaustedEntries(t *testing.T) {
	ctx := context.Background()
	pool, cleanup := setupPostgres(t, ctx)
	defer cleanup()

	_, err := pool.Exec(ctx,
		`INSERT INTO outbox_dlq (tenant_id, event_id, event_type, topic, payload, reason, aggregate_type, aggregate_id, schema_subject, partition_key, retry_count, next_retry_at)
         VALUES ($1, 1, 'trust.score_changed', 'trust_score_changed', '{}', 'boom', 'trust_activity', 'a', 'trust_score_changed-value', 'u', 3, NOW())`,
		uuid.NewString())
	require.NoError(t, err)

	manager := NewDLQManager(pool, 3, time.Second, nil)
	processed, err := manager.RunOnce(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	var quarantined int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NOT NULL`).Scan(&quarantined))
	require.Equal(t, 1, quarantined)
}

func seedLedger(t *testing.T, ctx context.Context, pool *pgxpool.Pool, tenantID string) {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Microsecond)
	userID := uuid.NewString()
	_, err := postgres.NewRepository(pool).CreateUser(ctx, domain.User{
		ID:           userID,
		TenantID:     tenantID,
		Name:         "Outbox User",
		Email:        userID + "@uni.example",
		TrustScore:   domain.DefaultTrustScore,
		LastActiveAt: now,
		CreatedAt:    now,
	}, domain.ActivityRecord{
		ID:          uuid.Must(uuid.NewV7()).String(),
		TenantID:    tenantID,
		UserID:      userID,
		Kind:        domain.KindAccountCreated,
		Points:      5,
		Description: "Account created",
		CreatedAt:   now,
	})
	require.NoError(t, err)
}

func setupPostgres(t *testing.T, ctx context.Context) (*pgxpool.Pool, func()) {
	t.Helper()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("uniconnect"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pg.Terminate(ctx)
	}
	return pool, cleanup
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	t.Helper()

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	migrationsDir := resolvePath(t, "../../db/postgres/migrations")
	files, err := filepath.Glob(filepath.Join(migrationsDir, "*.up.sql"))
	require.NoError(t, err)
	require.NotEmpty(t, files, "expected at least one migration .up.sql file")
	sort.Strings(files)

	for _, file := range files {
		contents, readErr := os.ReadFile(file)
		require.NoErrorf(t, readErr, "read migration %s", file)
		_, execErr := pool.Exec(ctx, string(contents))
		require.NoErrorf(t, execErr, "execute migration %s", file)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
