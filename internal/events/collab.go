package events

import "time"

// Event types emitted by the project, task, review and identity services.
const (
	TypeUserRegistered      = "user.registered"
	TypeProfileCompleted    = "profile.completed"
	TypeProjectCreated      = "project.created"
	TypeProjectMemberJoined = "project.member_joined"
	TypeProjectCompleted    = "project.completed"
	TypeProjectAbandoned    = "project.abandoned"
	TypeTaskCompleted       = "task.completed"
	TypeTaskDeadlineMissed  = "task.deadline_missed"
	TypeReviewReceived      = "review.received"
)

// CollabEvent is the envelope shared by all collaborator events. Fields that
// do not apply to a given type are left empty.
type CollabEvent struct {
	EventID      string    `json:"event_id"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Name         string    `json:"name,omitempty"`
	Email        string    `json:"email,omitempty"`
	University   string    `json:"university,omitempty"`
	ProjectID    string    `json:"project_id,omitempty"`
	ProjectTitle string    `json:"project_title,omitempty"`
	TaskID       string    `json:"task_id,omitempty"`
	TaskTitle    string    `json:"task_title,omitempty"`
	Rating       int       `json:"rating,omitempty"`
	ReviewerID   string    `json:"reviewer_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}
