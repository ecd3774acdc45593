// Package domain defines the trust ledger: activity records, the scoring
// policy and the read models built on top of them.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/Sugavanesh17/UniConnect/internal/observability"
)

// History and stats bounds.
const (
	DefaultHistoryLimit = 50
	MaxHistoryLimit     = 200
	DefaultStatsWindow  = 30
	MaxStatsWindow      = 365
	MaxDescriptionRunes = 500
)

// ScoreChange reports the stored score on either side of an append.
type ScoreChange struct {
	Before int
	After  int
}

// Clamped reports whether saturation discarded part of delta.
func (c ScoreChange) Clamped(delta int) bool {
	return c.Before+delta != c.After
}

// KindStats aggregates the records of one kind inside a stats window.
type KindStats struct {
	Kind        ActivityKind
	Count       int
	TotalPoints int
}

// Store captures persistence operations. AppendActivity and CreateUser must
// apply the score update and the record insert atomically: either both are
// visible afterwards or neither is.
type Store interface {
	CreateUser(ctx context.Context, user User, opening ActivityRecord) (ScoreChange, error)
	GetUser(ctx context.Context, tenantID, userID string) (*User, error)
	AppendActivity(ctx context.Context, record ActivityRecord) (ScoreChange, error)
	ListActivities(ctx context.Context, tenantID, userID string, cursor *Cursor, limit int) ([]ActivityRecord, error)
	AggregateActivities(ctx context.Context, tenantID, userID string, since time.Time) ([]KindStats, error)
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithPointTable overrides the default scoring policy.
func WithPointTable(table PointTable) Option {
	return func(s *Service) {
		s.points = table
	}
}

// WithClock overrides the time source used for timestamps and stats windows.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service orchestrates trust ledger workflows.
type Service struct {
	store  Store
	points PointTable
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		points: DefaultPointTable(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PointTable exposes the scoring policy the service was built with.
func (s *Service) PointTable() PointTable {
	return s.points
}

// RecordActivityInput captures a scored action reported by a collaborator.
type RecordActivityInput struct {
	TenantID    string
	UserID      string
	Kind        ActivityKind
	Points      int
	Description string
	ProjectID   string
	Metadata    map[string]any
	IPAddress   string
	UserAgent   string
}

// RecordActivity appends a ledger entry and applies its delta to the user's
// score. Points are taken as given; use RecordDefault to score from the table.
func (s *Service) RecordActivity(ctx context.Context, input RecordActivityInput) (*ActivityRecord, error) {
	if err := validateRecordInput(input); err != nil {
		observability.RecordActivityRejected("validation")
		return nil, err
	}

	record := ActivityRecord{
		ID:          newRecordID(),
		TenantID:    input.TenantID,
		UserID:      input.UserID,
		Kind:        input.Kind,
		Points:      input.Points,
		Description: strings.TrimSpace(input.Description),
		ProjectID:   strings.TrimSpace(input.ProjectID),
		Metadata:    CloneMetadata(input.Metadata),
		IPAddress:   input.IPAddress,
		UserAgent:   input.UserAgent,
		CreatedAt:   s.now().UTC(),
	}

	change, err := s.store.AppendActivity(ctx, record)
	if err != nil {
		err = storageError("append activity", err)
		observability.RecordActivityRejected(rejectReason(err))
		return nil, err
	}
	record.ScoreAfter = change.After
	observability.RecordActivityRecorded(string(record.Kind), record.Points, change.Clamped(record.Points), record.CreatedAt)
	return &record, nil
}

// RecordDefault records kind with the delta configured in the point table.
func (s *Service) RecordDefault(ctx context.Context, input RecordActivityInput) (*ActivityRecord, error) {
	input.Points = s.points.PointsFor(input.Kind)
	return s.RecordActivity(ctx, input)
}

// AdjustScoreInput describes a manual moderation of a user's score.
type AdjustScoreInput struct {
	TenantID string
	UserID   string
	AdminID  string
	Points   int
	Reason   string
}

// AdjustScore records an admin_adjustment entry with an arbitrary delta.
func (s *Service) AdjustScore(ctx context.Context, input AdjustScoreInput) (*ActivityRecord, error) {
	if input.Points == 0 {
		return nil, fmt.Errorf("%w: adjustment points must be non-zero", ErrValidation)
	}
	if strings.TrimSpace(input.AdminID) == "" {
		return nil, fmt.Errorf("%w: admin id is required", ErrValidation)
	}
	return s.RecordActivity(ctx, RecordActivityInput{
		TenantID:    input.TenantID,
		UserID:      input.UserID,
		Kind:        KindAdminAdjustment,
		Points:      input.Points,
		Description: input.Reason,
		Metadata:    map[string]any{"adjusted_by": input.AdminID},
	})
}

// RegisterUserInput captures a newly created platform account.
type RegisterUserInput struct {
	TenantID   string
	UserID     string
	Name       string
	Email      string
	University string
}

// RegisterUser creates the trust profile at DefaultTrustScore and records the
// account_created entry in the same write.
func (s *Service) RegisterUser(ctx context.Context, input RegisterUserInput) (*User, *ActivityRecord, error) {
	if strings.TrimSpace(input.TenantID) == "" {
		return nil, nil, fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !strings.Contains(input.Email, "@") {
		return nil, nil, fmt.Errorf("%w: email is invalid", ErrValidation)
	}

	now := s.now().UTC()
	user := User{
		ID:           strings.TrimSpace(input.UserID),
		TenantID:     input.TenantID,
		Name:         strings.TrimSpace(input.Name),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		University:   strings.TrimSpace(input.University),
		TrustScore:   DefaultTrustScore,
		LastActiveAt: now,
		CreatedAt:    now,
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	opening := ActivityRecord{
		ID:          newRecordID(),
		TenantID:    user.TenantID,
		UserID:      user.ID,
		Kind:        KindAccountCreated,
		Points:      s.points.PointsFor(KindAccountCreated),
		Description: "Account created",
		CreatedAt:   now,
	}

	change, err := s.store.CreateUser(ctx, user, opening)
	if err != nil {
		return nil, nil, storageError("create user", err)
	}
	user.TrustScore = change.After
	opening.ScoreAfter = change.After
	observability.RecordActivityRecorded(string(opening.Kind), opening.Points, change.Clamped(opening.Points), now)
	return &user, &opening, nil
}

// GetUser fetches a user's trust profile.
func (s *Service) GetUser(ctx context.Context, tenantID, userID string) (*User, error) {
	user, err := s.store.GetUser(ctx, tenantID, userID)
	if err != nil {
		return nil, storageError("get user", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetTrustSummary returns the user's current score and tier.
func (s *Service) GetTrustSummary(ctx context.Context, tenantID, userID string) (TrustSummary, error) {
	user, err := s.GetUser(ctx, tenantID, userID)
	if err != nil {
		return TrustSummary{}, err
	}
	return TrustSummary{
		UserID:       user.ID,
		TrustScore:   user.TrustScore,
		Level:        ClassifyLevel(user.TrustScore),
		LastActiveAt: user.LastActiveAt,
	}, nil
}

// HistoryQuery selects a page of a user's ledger. A zero Limit means
// DefaultHistoryLimit.
type HistoryQuery struct {
	Limit  int
	Cursor *Cursor
}

// HistoryPage is a newest-first slice of the ledger.
type HistoryPage struct {
	Items      []ActivityRecord
	NextCursor *Cursor
}

// GetHistory returns the user's records ordered by creation time, newest first.
func (s *Service) GetHistory(ctx context.Context, tenantID, userID string, query HistoryQuery) (HistoryPage, error) {
	limit := query.Limit
	if limit == 0 {
		limit = DefaultHistoryLimit
	}
	if limit < 0 || limit > MaxHistoryLimit {
		return HistoryPage{}, fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, MaxHistoryLimit)
	}
	if _, err := s.GetUser(ctx, tenantID, userID); err != nil {
		return HistoryPage{}, err
	}

	records, err := s.store.ListActivities(ctx, tenantID, userID, query.Cursor, limit)
	if err != nil {
		return HistoryPage{}, storageError("list activities", err)
	}

	page := HistoryPage{Items: records}
	if len(records) == limit {
		last := records[len(records)-1]
		page.NextCursor = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return page, nil
}

// TrustStats summarises a user's ledger over a trailing window.
type TrustStats struct {
	UserID     string
	WindowDays int
	Since      time.Time
	Kinds      map[ActivityKind]KindStats
	TotalCount int
	NetPoints  int
}

// GetStats groups the records created in the last windowDays days by kind.
// A zero window means DefaultStatsWindow.
func (s *Service) GetStats(ctx context.Context, tenantID, userID string, windowDays int) (TrustStats, error) {
	if windowDays == 0 {
		windowDays = DefaultStatsWindow
	}
	if windowDays < 0 || windowDays > MaxStatsWindow {
		return TrustStats{}, fmt.Errorf("%w: days must be between 1 and %d", ErrValidation, MaxStatsWindow)
	}
	if _, err := s.GetUser(ctx, tenantID, userID); err != nil {
		return TrustStats{}, err
	}

	since := s.now().UTC().Add(-time.Duration(windowDays) * 24 * time.Hour)
	groups, err := s.store.AggregateActivities(ctx, tenantID, userID, since)
	if err != nil {
		return TrustStats{}, storageError("aggregate activities", err)
	}

	stats := TrustStats{
		UserID:     userID,
		WindowDays: windowDays,
		Since:      since,
		Kinds:      make(map[ActivityKind]KindStats, len(groups)),
	}
	for _, group := range groups {
		stats.Kinds[group.Kind] = group
		stats.TotalCount += group.Count
		stats.NetPoints += group.TotalPoints
	}
	return stats, nil
}

func validateRecordInput(input RecordActivityInput) error {
	if strings.TrimSpace(input.TenantID) == "" {
		return fmt.Errorf("%w: tenant id is required", ErrValidation)
	}
	if strings.TrimSpace(input.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if !input.Kind.Valid() {
		return fmt.Errorf("%w: unknown activity kind %q", ErrValidation, input.Kind)
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return fmt.Errorf("%w: description is required", ErrValidation)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionRunes {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionRunes)
	}
	if input.Points > MaxPointsMagnitude || input.Points < -MaxPointsMagnitude {
		return fmt.Errorf("%w: points must be between %d and %d", ErrValidation, -MaxPointsMagnitude, MaxPointsMagnitude)
	}
	return validateMetadata(input.Metadata)
}

// newRecordID returns a time-ordered id so that records created in the same
// instant still sort by creation.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

func storageError(op string, err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrUserExists),
		errors.Is(err, ErrDuplicate),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrValidation),
		errors.Is(err, ErrStorage):
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return "user_not_found"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	case errors.Is(err, ErrConflict):
		return "conflict"
	case errors.Is(err, ErrValidation):
		return "validation"
	default:
		return "storage"
	}
}
