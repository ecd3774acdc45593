package api

import (
	"time"

	"github.com/Sugavanesh17/UniConnect/internal/domain"
)

// RegisterUserRequest is the payload for POST /v1/trust/users.
type RegisterUserRequest struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	University string `json:"university"`
}

// RegisterUserResponse returns the new profile and its opening ledger entry.
type RegisterUserResponse struct {
	User     UserView     `json:"user"`
	Activity ActivityView `json:"activity"`
}

// RecordActivityRequest is the payload for POST /v1/trust/activities. When
// Points is omitted the point table default for Kind applies.
type RecordActivityRequest struct {
	UserID      string         `json:"user_id"`
	Kind        string         `json:"kind"`
	Points      *int           `json:"points,omitempty"`
	Description string         `json:"description"`
	ProjectID   string         `json:"project_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// AdjustScoreRequest is the payload for admin adjustments.
type AdjustScoreRequest struct {
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// UserView exposes a trust profile.
type UserView struct {
	UserID       string       `json:"user_id"`
	Name         string       `json:"name"`
	University   string       `json:"university,omitempty"`
	TrustScore   int          `json:"trust_score"`
	Level        domain.Level `json:"level"`
	LastActiveAt time.Time    `json:"last_active_at"`
	CreatedAt    time.Time    `json:"created_at"`
}

// ActivityView exposes a ledger entry.
type ActivityView struct {
	ActivityID  string         `json:"activity_id"`
	UserID      string         `json:"user_id"`
	Kind        string         `json:"kind"`
	Points      int            `json:"points"`
	Description string         `json:"description"`
	ProjectID   string         `json:"project_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	ScoreAfter  int            `json:"score_after"`
	CreatedAt   time.Time      `json:"created_at"`
}

// HistoryResponse packages a history page.
type HistoryResponse struct {
	Items      []ActivityView `json:"items"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// KindStatsView is one row of the stats breakdown.
type KindStatsView struct {
	Count       int `json:"count"`
	TotalPoints int `json:"total_points"`
}

// StatsResponse summarises a window of the ledger.
type StatsResponse struct {
	UserID     string                   `json:"user_id"`
	WindowDays int                      `json:"window_days"`
	Since      time.Time                `json:"since"`
	TotalCount int                      `json:"total_count"`
	NetPoints  int                      `json:"net_points"`
	Kinds      map[string]KindStatsView `json:"kinds"`
}

// LevelResponse classifies a single score.
type LevelResponse struct {
	Score int          `json:"score"`
	Level domain.Level `json:"level"`
}

// LevelsResponse lists every tier.
type LevelsResponse struct {
	Levels []domain.Level `json:"levels"`
}

func toUserView(user domain.User) UserView {
	return UserView{
		UserID:       user.ID,
		Name:         user.Name,
		University:   user.University,
		TrustScore:   user.TrustScore,
		Level:        domain.ClassifyLevel(user.TrustScore),
		LastActiveAt: user.LastActiveAt,
		CreatedAt:    user.CreatedAt,
	}
}

func toActivityView(record domain.ActivityRecord) ActivityView {
	return ActivityView{
		ActivityID:  record.ID,
		UserID:      record.UserID,
		Kind:        string(record.Kind),
		Points:      record.Points,
		Description: record.Description,
		ProjectID:   record.ProjectID,
		Metadata:    record.Metadata,
		ScoreAfter:  record.ScoreAfter,
		CreatedAt:   record.CreatedAt,
	}
}

func toStatsView(stats domain.TrustStats) StatsResponse {
	kinds := make(map[string]KindStatsView, len(stats.Kinds))
	for kind, group := range stats.Kinds {
		kinds[string(kind)] = KindStatsView{Count: group.Count, TotalPoints: group.TotalPoints}
	}
	return StatsResponse{
		UserID:     stats.UserID,
		WindowDays: stats.WindowDays,
		Since:      stats.Since,
		TotalCount: stats.TotalCount,
		NetPoints:  stats.NetPoints,
		Kinds:      kinds,
	}
}
