//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/Sugavanesh17/UniConnect/internal/domain"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("uniconnect"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })
	return pool
}

func newUser(tenantID string) (domain.User, domain.ActivityRecord) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	user := domain.User{
		ID:           uuid.NewString(),
		TenantID:     tenantID,
		Name:         "Integration User",
		Email:        uuid.NewString() + "@uni.example",
		TrustScore:   domain.DefaultTrustScore,
		LastActiveAt: now,
		CreatedAt:    now,
	}
	opening := domain.ActivityRecord{
		ID:          uuid.Must(uuid.NewV7()).String(),
		TenantID:    tenantID,
		UserID:      user.ID,
		Kind:        domain.KindAccountCreated,
		Points:      5,
		Description: "Account created",
		CreatedAt:   now,
	}
	return user, opening
}

func TestRepositoryClampsAndKeepsConcurrentDeltas(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(startPostgres(t))
	tenantID := uuid.NewString()

	user, opening := newUser(tenantID)
	change, err := repo.CreateUser(ctx, user, opening)
	require.NoError(t, err)
	require.Equal(t, 55, change.After)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for _, delta := range []int{2, -1} {
			wg.Add(1)
			go func(delta int) {
				defer wg.Done()
				_, err := repo.AppendActivity(ctx, domain.ActivityRecord{
					ID:          uuid.Must(uuid.NewV7()).String(),
					TenantID:    tenantID,
					UserID:      user.ID,
					Kind:        domain.KindAdminAdjustment,
					Points:      delta,
					Description: "concurrent",
					CreatedAt:   time.Now().UTC(),
				})
				if err != nil {
					t.Errorf("append: %v", err)
				}
			}(delta)
		}
	}
	wg.Wait()

	stored, err := repo.GetUser(ctx, tenantID, user.ID)
	require.NoError(t, err)
	require.Equal(t, 65, stored.TrustScore)

	change, err = repo.AppendActivity(ctx, domain.ActivityRecord{
		ID: uuid.Must(uuid.NewV7()).String(), TenantID: tenantID, UserID: user.ID,
		Kind: domain.KindNegativeReviewReceived, Points: -15, Description: "review", CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	require.Equal(t, domain.ScoreChange{Before: 65, After: 50}, change)

	records, err := repo.ListActivities(ctx, tenantID, user.ID, nil, 5)
	require.NoError(t, err)
	require.Len(t, records, 5)
	require.Equal(t, domain.KindNegativeReviewReceived, records[0].Kind)
	require.Equal(t, 50, records[0].ScoreAfter)

	stats, err := repo.AggregateActivities(ctx, tenantID, user.ID, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	byKind := map[domain.ActivityKind]domain.KindStats{}
	for _, s := range stats {
		byKind[s.Kind] = s
	}
	require.Equal(t, 20, byKind[domain.KindAdminAdjustment].Count)
	require.Equal(t, 10, byKind[domain.KindAdminAdjustment].TotalPoints)
}

func TestRepositoryRejectsUnknownUserAndDuplicates(t *testing.T) {
	ctx := context.Background()
	pool := startPostgres(t)
	repo := NewRepository(pool)
	tenantID := uuid.NewString()

	_, err := repo.AppendActivity(ctx, domain.ActivityRecord{
		ID: uuid.Must(uuid.NewV7()).String(), TenantID: tenantID, UserID: "ghost",
		Kind: domain.KindTaskCompleted, Points: 8, Description: "x", CreatedAt: time.Now().UTC(),
	})
	require.ErrorIs(t, err, domain.ErrUserNotFound)

	user, opening := newUser(tenantID)
	_, err = repo.CreateUser(ctx, user, opening)
	require.NoError(t, err)
	_, err = repo.CreateUser(ctx, user, opening)
	require.ErrorIs(t, err, domain.ErrUserExists)

	rec := domain.ActivityRecord{
		ID: uuid.Must(uuid.NewV7()).String(), TenantID: tenantID, UserID: user.ID,
		Kind: domain.KindTaskCompleted, Points: 8, Description: "task",
		Metadata:  map[string]any{domain.MetadataSourceEventID: "evt-42"},
		CreatedAt: time.Now().UTC(),
	}
	_, err = repo.AppendActivity(ctx, rec)
	require.NoError(t, err)
	rec.ID = uuid.Must(uuid.NewV7()).String()
	_, err = repo.AppendActivity(ctx, rec)
	require.ErrorIs(t, err, domain.ErrDuplicate)

	stored, err := repo.GetUser(ctx, tenantID, user.ID)
	require.NoError(t, err)
	require.Equal(t, 63, stored.TrustScore)

	tx, err := repo.beginTenant(ctx, tenantID)
	require.NoError(t, err)
	_, err = tx.Exec(ctx, `UPDATE trust_activities SET points = 0 WHERE tenant_id = $1`, tenantID)
	require.Error(t, err, "ledger rows must be immutable")
	_ = tx.Rollback(ctx)

	other, err := repo.GetUser(ctx, uuid.NewString(), user.ID)
	require.NoError(t, err)
	require.Nil(t, other, "RLS should prevent cross-tenant access")
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
		"../../../db/postgres/migrations/0002_outbox_dlq_retry.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		contents, readErr := os.ReadFile(resolvePath(t, rel))
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
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
