// Package memory provides an in-process trust store for local development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Sugavanesh17/UniConnect/internal/domain"
)

// Store keeps users and their ledgers in memory. A single mutex serialises
// writers so the read-modify-write of a score cannot interleave.
type Store struct {
	mu         sync.RWMutex
	users      map[string]domain.User
	emails     map[string]string
	ledger     map[string][]domain.ActivityRecord
	seenEvents map[string]struct{}
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]domain.User),
		emails:     make(map[string]string),
		ledger:     make(map[string][]domain.ActivityRecord),
		seenEvents: make(map[string]struct{}),
	}
}

func userKey(tenantID, userID string) string {
	return tenantID + "/" + userID
}

// CreateUser implements domain.Store.
func (s *Store) CreateUser(ctx context.Context, user domain.User, opening domain.ActivityRecord) (domain.ScoreChange, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScoreChange{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := userKey(user.TenantID, user.ID)
	if _, exists := s.users[key]; exists {
		return domain.ScoreChange{}, domain.ErrUserExists
	}
	emailKey := userKey(user.TenantID, strings.ToLower(user.Email))
	if _, exists := s.emails[emailKey]; exists {
		return domain.ScoreChange{}, domain.ErrUserExists
	}

	s.users[key] = user
	s.emails[emailKey] = user.ID
	change, err := s.appendLocked(opening)
	if err != nil {
		delete(s.users, key)
		delete(s.emails, emailKey)
		return domain.ScoreChange{}, err
	}
	return change, nil
}

// GetUser implements domain.Store.
func (s *Store) GetUser(ctx context.Context, tenantID, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userKey(tenantID, userID)]
	if !ok {
		return nil, nil
	}
	return &user, nil
}

// AppendActivity implements domain.Store.
func (s *Store) AppendActivity(ctx context.Context, record domain.ActivityRecord) (domain.ScoreChange, error) {
	if err := ctx.Err(); err != nil {
		return domain.ScoreChange{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(record)
}

func (s *Store) appendLocked(record domain.ActivityRecord) (domain.ScoreChange, error) {
	key := userKey(record.TenantID, record.UserID)
	user, ok := s.users[key]
	if !ok {
		return domain.ScoreChange{}, domain.ErrUserNotFound
	}

	var eventKey string
	if source := domain.SourceEventID(record.Metadata); source != "" {
		eventKey = userKey(record.TenantID, source)
		if _, seen := s.seenEvents[eventKey]; seen {
			return domain.ScoreChange{}, domain.ErrDuplicate
		}
	}

	change := domain.ScoreChange{Before: user.TrustScore}
	user.TrustScore = domain.ApplyDelta(user.TrustScore, record.Points)
	user.LastActiveAt = record.CreatedAt
	change.After = user.TrustScore

	record.ScoreAfter = change.After
	record.Metadata = domain.CloneMetadata(record.Metadata)

	s.users[key] = user
	s.ledger[key] = append(s.ledger[key], record)
	if eventKey != "" {
		s.seenEvents[eventKey] = struct{}{}
	}
	return change, nil
}

// ListActivities implements domain.Store.
func (s *Store) ListActivities(ctx context.Context, tenantID, userID string, cursor *domain.Cursor, limit int) ([]domain.ActivityRecord, error) {
	s.mu.RLock()
	entries := s.ledger[userKey(tenantID, userID)]
	sorted := make([]domain.ActivityRecord, len(entries))
	copy(sorted, entries)
	s.mu.RUnlock()

	sort.SliceStable(sorted, func(i, j int) bool {
		return newer(sorted[i], sorted[j].CreatedAt, sorted[j].ID)
	})

	out := make([]domain.ActivityRecord, 0, limit)
	for _, record := range sorted {
		if cursor != nil && !newer(domain.ActivityRecord{CreatedAt: cursor.CreatedAt, ID: cursor.ID}, record.CreatedAt, record.ID) {
			continue
		}
		record.Metadata = domain.CloneMetadata(record.Metadata)
		out = append(out, record)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// AggregateActivities implements domain.Store.
func (s *Store) AggregateActivities(ctx context.Context, tenantID, userID string, since time.Time) ([]domain.KindStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make(map[domain.ActivityKind]*domain.KindStats)
	order := make([]domain.ActivityKind, 0)
	for _, record := range s.ledger[userKey(tenantID, userID)] {
		if record.CreatedAt.Before(since) {
			continue
		}
		group, ok := groups[record.Kind]
		if !ok {
			group = &domain.KindStats{Kind: record.Kind}
			groups[record.Kind] = group
			order = append(order, record.Kind)
		}
		group.Count++
		group.TotalPoints += record.Points
	}

	out := make([]domain.KindStats, 0, len(order))
	for _, kind := range order {
		out = append(out, *groups[kind])
	}
	return out, nil
}

// newer reports whether a sorts strictly after (createdAt, id).
func newer(a domain.ActivityRecord, createdAt time.Time, id string) bool {
	if !a.CreatedAt.Equal(createdAt) {
		return a.CreatedAt.After(createdAt)
	}
	return a.ID > id
}
