package domain

import "time"

// ActivityKind enumerates the actions that move a user's trust score.
type ActivityKind string

const (
	KindAccountCreated         ActivityKind = "account_created"
	KindProfileCompleted       ActivityKind = "profile_completed"
	KindProjectCreated         ActivityKind = "project_created"
	KindProjectJoined          ActivityKind = "project_joined"
	KindProjectCompleted       ActivityKind = "project_completed"
	KindTaskCompleted          ActivityKind = "task_completed"
	KindPositiveReviewReceived ActivityKind = "positive_review_received"
	KindNegativeReviewReceived ActivityKind = "negative_review_received"
	KindAdminAdjustment        ActivityKind = "admin_adjustment"
	KindLongevityBonus         ActivityKind = "longevity_bonus"
	KindInactivePenalty        ActivityKind = "inactive_penalty"
	KindProjectAbandoned       ActivityKind = "project_abandoned"
	KindCollaborationSuccess   ActivityKind = "collaboration_success"
	KindCommunicationExcellent ActivityKind = "communication_excellent"
	KindDeadlineMissed         ActivityKind = "deadline_missed"
	KindHelpfulContribution    ActivityKind = "helpful_contribution"
)

var knownKinds = []ActivityKind{
	KindAccountCreated,
	KindProfileCompleted,
	KindProjectCreated,
	KindProjectJoined,
	KindProjectCompleted,
	KindTaskCompleted,
	KindPositiveReviewReceived,
	KindNegativeReviewReceived,
	KindAdminAdjustment,
	KindLongevityBonus,
	KindInactivePenalty,
	KindProjectAbandoned,
	KindCollaborationSuccess,
	KindCommunicationExcellent,
	KindDeadlineMissed,
	KindHelpfulContribution,
}

// Kinds returns the closed set of activity kinds in declaration order.
func Kinds() []ActivityKind {
	out := make([]ActivityKind, len(knownKinds))
	copy(out, knownKinds)
	return out
}

// Valid reports whether k belongs to the closed kind set.
func (k ActivityKind) Valid() bool {
	for _, known := range knownKinds {
		if k == known {
			return true
		}
	}
	return false
}

// ActivityRecord is one immutable ledger entry. Points holds the delta the
// caller asked for; ScoreAfter is the clamped score that resulted, so the sum
// of Points over a user's history is not expected to equal the current score.
type ActivityRecord struct {
	ID          string
	TenantID    string
	UserID      string
	Kind        ActivityKind
	Points      int
	Description string
	ProjectID   string
	Metadata    map[string]any
	IPAddress   string
	UserAgent   string
	ScoreAfter  int
	CreatedAt   time.Time
}

// Cursor models the history pagination token.
type Cursor struct {
	CreatedAt time.Time
	ID        string
}
