// Package events defines the event payloads the trust service publishes and consumes.
package events

import "time"

// Event types published through the outbox.
const (
	TypeActivityRecorded = "trust.activity_recorded"
	TypeScoreChanged     = "trust.score_changed"
)

// Topics the outbox publishes trust events to.
const (
	TopicTrustActivity = "trust_activity_events"
	TopicTrustScore    = "trust_score_changed"
)

// ActivityRecorded is emitted for every appended ledger entry.
type ActivityRecorded struct {
	ActivityID  string         `json:"activity_id"`
	TenantID    string         `json:"tenant_id"`
	UserID      string         `json:"user_id"`
	Kind        string         `json:"kind"`
	Points      int            `json:"points"`
	Description string         `json:"description"`
	ProjectID   string         `json:"project_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ScoreAfter  int            `json:"score_after"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ScoreChanged is emitted when an entry actually moved the stored score.
type ScoreChanged struct {
	TenantID   string    `json:"tenant_id"`
	UserID     string    `json:"user_id"`
	ActivityID string    `json:"activity_id"`
	Previous   int       `json:"previous_score"`
	Current    int       `json:"current_score"`
	Level      string    `json:"level"`
	OccurredAt time.Time `json:"occurred_at"`
}
