package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Sugavanesh17/UniConnect/internal/domain"
	"github.com/Sugavanesh17/UniConnect/internal/events"
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgInvalidTextRepr      = "22P02"

	sourceEventIndex = "trust_activities_source_event_idx"
)

// Repository provides Postgres-backed persistence for users, the trust ledger
// and outbox events.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser inserts the user and its opening ledger entry in one transaction.
func (r *Repository) CreateUser(ctx context.Context, user domain.User, opening domain.ActivityRecord) (change domain.ScoreChange, err error) {
	tx, err := r.beginTenant(ctx, user.TenantID)
	if err != nil {
		return domain.ScoreChange{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `INSERT INTO users (user_id, tenant_id, name, email, university, trust_score, last_active_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		user.ID, user.TenantID, user.Name, user.Email, user.University, user.TrustScore, user.LastActiveAt, user.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ScoreChange{}, domain.ErrUserExists
		}
		return domain.ScoreChange{}, classify(err)
	}

	change, err = r.appendInTx(ctx, tx, opening)
	if err != nil {
		return domain.ScoreChange{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.ScoreChange{}, classify(err)
	}
	return change, nil
}

// GetUser retrieves a user by id, returning nil when absent.
func (r *Repository) GetUser(ctx context.Context, tenantID, userID string) (*domain.User, error) {
	tx, err := r.beginTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT user_id, tenant_id, name, email, university, trust_score, last_active_at, created_at
        FROM users WHERE tenant_id=$1 AND user_id=$2`, tenantID, userID)
	var user domain.User
	if err := row.Scan(&user.ID, &user.TenantID, &user.Name, &user.Email, &user.University, &user.TrustScore, &user.LastActiveAt, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tx.Commit(ctx)
		}
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &user, nil
}

// AppendActivity applies the record's delta to the user's score and inserts
// the record plus its outbox events inside a single transaction.
func (r *Repository) AppendActivity(ctx context.Context, record domain.ActivityRecord) (change domain.ScoreChange, err error) {
	tx, err := r.beginTenant(ctx, record.TenantID)
	if err != nil {
		return domain.ScoreChange{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	change, err = r.appendInTx(ctx, tx, record)
	if err != nil {
		return domain.ScoreChange{}, err
	}
	if err = tx.Commit(ctx); err != nil {
		return domain.ScoreChange{}, classify(err)
	}
	return change, nil
}

func (r *Repository) appendInTx(ctx context.Context, tx pgx.Tx, record domain.ActivityRecord) (domain.ScoreChange, error) {
	var change domain.ScoreChange

	// The row lock taken here serialises every ledger write for this user
	// until commit.
	err := tx.QueryRow(ctx, `SELECT trust_score FROM users WHERE tenant_id=$1 AND user_id=$2 FOR UPDATE`,
		record.TenantID, record.UserID).Scan(&change.Before)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ScoreChange{}, domain.ErrUserNotFound
		}
		return domain.ScoreChange{}, classify(err)
	}

	err = tx.QueryRow(ctx, `UPDATE users
           SET trust_score = LEAST($3::int, GREATEST($4::int, trust_score + $5::int)),
               last_active_at = $6
         WHERE tenant_id=$1 AND user_id=$2
     RETURNING trust_score`,
		record.TenantID, record.UserID, domain.MaxTrustScore, domain.MinTrustScore, record.Points, record.CreatedAt,
	).Scan(&change.After)
	if err != nil {
		return domain.ScoreChange{}, classify(err)
	}
	record.ScoreAfter = change.After

	metadata, err := encodeMetadata(record.Metadata)
	if err != nil {
		return domain.ScoreChange{}, err
	}

	_, err = tx.Exec(ctx, `INSERT INTO trust_activities (activity_id, tenant_id, user_id, kind, points, description, project_id, metadata, source_event_id, ip_address, user_agent, score_after, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		record.ID,
		record.TenantID,
		record.UserID,
		string(record.Kind),
		record.Points,
		record.Description,
		nullIfEmpty(record.ProjectID),
		metadata,
		nullIfEmpty(domain.SourceEventID(record.Metadata)),
		nullIfEmpty(record.IPAddress),
		nullIfEmpty(record.UserAgent),
		record.ScoreAfter,
		record.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == sourceEventIndex {
			return domain.ScoreChange{}, domain.ErrDuplicate
		}
		return domain.ScoreChange{}, classify(err)
	}

	if err := r.insertOutbox(ctx, tx, record, events.TypeActivityRecorded, events.ActivityRecorded{
		ActivityID:  record.ID,
		TenantID:    record.TenantID,
		UserID:      record.UserID,
		Kind:        string(record.Kind),
		Points:      record.Points,
		Description: record.Description,
		ProjectID:   record.ProjectID,
		Metadata:    record.Metadata,
		ScoreAfter:  record.ScoreAfter,
		CreatedAt:   record.CreatedAt,
	}); err != nil {
		return domain.ScoreChange{}, err
	}

	if change.Before != change.After {
		if err := r.insertOutbox(ctx, tx, record, events.TypeScoreChanged, events.ScoreChanged{
			TenantID:   record.TenantID,
			UserID:     record.UserID,
			ActivityID: record.ID,
			Previous:   change.Before,
			Current:    change.After,
			Level:      domain.ClassifyLevel(change.After).Slug,
			OccurredAt: record.CreatedAt,
		}); err != nil {
			return domain.ScoreChange{}, err
		}
	}

	return change, nil
}

func (r *Repository) insertOutbox(ctx context.Context, tx pgx.Tx, record domain.ActivityRecord, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (tenant_id, aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err = tx.Exec(ctx, stmt,
		record.TenantID,
		"trust_activity",
		record.ID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(record),
		body,
		fmt.Sprintf("%s:%s", record.ID, eventType),
	)
	return classify(err)
}

// ListActivities returns the user's records newest first, strictly older than
// cursor when one is given.
func (r *Repository) ListActivities(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, error) {
	args := []interface{}{tenantID, userID, limit}
	query := `SELECT activity_id, tenant_id, user_id, kind, points, description, COALESCE(project_id, ''), metadata,
               COALESCE(ip_address, ''), COALESCE(user_agent, ''), score_after, created_at
        FROM trust_activities WHERE tenant_id=$1 AND user_id=$2`

	if cursor != nil {
		query += ` AND (created_at, activity_id) < ($4, $5::uuid)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}

	query += ` ORDER BY created_at DESC, activity_id DESC LIMIT $3`

	tx, err := r.beginTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	results := make([]domain.ActivityRecord, 0, limit)
	for rows.Next() {
		var (
			rec      domain.ActivityRecord
			kind     string
			metadata []byte
		)
		if err := rows.Scan(&rec.ID, &rec.TenantID, &rec.UserID, &kind, &rec.Points, &rec.Description, &rec.ProjectID, &metadata,
			&rec.IPAddress, &rec.UserAgent, &rec.ScoreAfter, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Kind = domain.ActivityKind(kind)
		if rec.Metadata, err = decodeMetadata(metadata); err != nil {
			return nil, err
		}
		rec.CreatedAt = rec.CreatedAt.UTC()
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return results, nil
}

// AggregateActivities groups the user's records created at or after since by kind.
func (r *Repository) AggregateActivities(ctx context.Context, tenantID, userID string, since time.Time) ([]domain.KindStats, error) {
	const query = `SELECT kind, COUNT(*), COALESCE(SUM(points), 0)
        FROM trust_activities
        WHERE tenant_id=$1 AND user_id=$2 AND created_at >= $3
        GROUP BY kind`

	tx, err := r.beginTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, query, tenantID, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]domain.KindStats, 0)
	for rows.Next() {
		var (
			kind  string
			group domain.KindStats
		)
		if err := rows.Scan(&kind, &group.Count, &group.TotalPoints); err != nil {
			return nil, err
		}
		group.Kind = domain.ActivityKind(kind)
		stats = append(stats, group)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return stats, nil
}

// beginTenant opens a transaction scoped to tenantID for row-level security.
func (r *Repository) beginTenant(ctx context.Context, tenantID string) (pgx.Tx, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, "SELECT set_config('app.tenant_id', $1, true)", tenantID); err != nil {
		tx.Rollback(ctx)
		return nil, err
	}
	return tx, nil
}

// classify maps Postgres concurrency aborts onto domain.ErrConflict.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case pgSerializationFailure, pgDeadlockDetected:
		return fmt.Errorf("%w: %s", domain.ErrConflict, pgErr.Message)
	case pgInvalidTextRepr:
		return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.Message)
	}
	return err
}

func encodeMetadata(md map[string]any) ([]byte, error) {
	if len(md) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(md)
}

func decodeMetadata(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var md map[string]any
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, err
	}
	if len(md) == 0 {
		return nil, nil
	}
	return md, nil
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

// EventMetadata describes how to route an outbox event.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(domain.ActivityRecord) string
}

var eventCatalog = map[string]EventMetadata{
	events.TypeActivityRecorded: {
		Topic:         events.TopicTrustActivity,
		SchemaSubject: events.TopicTrustActivity + "-value",
		PartitionKeyFn: func(rec domain.ActivityRecord) string {
			return fmt.Sprintf("%s:%s", rec.TenantID, rec.UserID)
		},
	},
	events.TypeScoreChanged: {
		Topic:         events.TopicTrustScore,
		SchemaSubject: events.TopicTrustScore + "-value",
		PartitionKeyFn: func(rec domain.ActivityRecord) string {
			return rec.UserID
		},
	},
}
