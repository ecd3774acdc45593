package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Sugavanesh17/UniConnect/internal/domain"
	"github.com/Sugavanesh17/UniConnect/internal/events"
)

// Review ratings at or above PositiveRatingMin score as positive, at or below
// NegativeRatingMax as negative. Ratings in between are acknowledged only.
const (
	PositiveRatingMin = 4
	NegativeRatingMax = 2
)

// Ledger is the subset of domain.Service the handler writes through.
type Ledger interface {
	RecordDefault(ctx context.Context, input domain.RecordActivityInput) (*domain.ActivityRecord, error)
	RegisterUser(ctx context.Context, input domain.RegisterUserInput) (*domain.User, *domain.ActivityRecord, error)
}

// LedgerHandler turns collaborator events into trust ledger entries.
type LedgerHandler struct {
	ledger Ledger
	logger *slog.Logger
}

// NewLedgerHandler constructs a LedgerHandler.
func NewLedgerHandler(ledger Ledger, logger *slog.Logger) *LedgerHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LedgerHandler{ledger: ledger, logger: logger}
}

// Handle implements Handler. Replays, unknown types and events the ledger
// permanently rejects are acknowledged so they are not redelivered.
func (h *LedgerHandler) Handle(ctx context.Context, msg Message) error {
	var event events.CollabEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		recordSkipped(msg.EventType, "malformed")
		h.logger.Warn("collaborator event payload rejected", "event_type", msg.EventType, "offset", msg.Offset, "error", err)
		return nil
	}
	if event.TenantID == "" {
		event.TenantID = msg.TenantID
	}

	if msg.EventType == events.TypeUserRegistered {
		return h.register(ctx, msg, event)
	}

	input, ok := MapEvent(msg.EventType, event)
	if !ok {
		recordSkipped(msg.EventType, "unmapped")
		h.logger.Debug("collaborator event skipped", "event_type", msg.EventType, "event_id", event.EventID)
		return nil
	}

	record, err := h.ledger.RecordDefault(ctx, input)
	if err != nil {
		return h.settle(msg, event, err)
	}
	h.logger.Info("collaborator event recorded",
		"event_type", msg.EventType,
		"event_id", event.EventID,
		"tenant_id", record.TenantID,
		"user_id", record.UserID,
		"kind", record.Kind,
		"score_after", record.ScoreAfter,
	)
	return nil
}

func (h *LedgerHandler) register(ctx context.Context, msg Message, event events.CollabEvent) error {
	user, _, err := h.ledger.RegisterUser(ctx, domain.RegisterUserInput{
		TenantID:   event.TenantID,
		UserID:     event.UserID,
		Name:       event.Name,
		Email:      event.Email,
		University: event.University,
	})
	if err != nil {
		return h.settle(msg, event, err)
	}
	h.logger.Info("trust profile created", "tenant_id", user.TenantID, "user_id", user.ID, "score", user.TrustScore)
	return nil
}

// settle decides whether a ledger error is final. Only storage and conflict
// errors are returned for retry.
func (h *LedgerHandler) settle(msg Message, event events.CollabEvent, err error) error {
	var reason string
	switch {
	case errors.Is(err, domain.ErrDuplicate), errors.Is(err, domain.ErrUserExists):
		reason = "duplicate"
	case errors.Is(err, domain.ErrUserNotFound):
		reason = "unknown_user"
	case errors.Is(err, domain.ErrValidation):
		reason = "invalid"
	default:
		return fmt.Errorf("%s %s: %w", msg.EventType, event.EventID, err)
	}
	recordSkipped(msg.EventType, reason)
	h.logger.Warn("collaborator event acknowledged without ledger write",
		"event_type", msg.EventType,
		"event_id", event.EventID,
		"user_id", event.UserID,
		"reason", reason,
		"error", err,
	)
	return nil
}

// MapEvent translates a collaborator event into a ledger write. It reports
// false for types that carry no trust signal.
func MapEvent(eventType string, event events.CollabEvent) (domain.RecordActivityInput, bool) {
	input := domain.RecordActivityInput{
		TenantID:  event.TenantID,
		UserID:    event.UserID,
		ProjectID: event.ProjectID,
		Metadata:  map[string]any{},
	}
	if event.EventID != "" {
		input.Metadata[domain.MetadataSourceEventID] = event.EventID
	}

	switch eventType {
	case events.TypeProfileCompleted:
		input.Kind = domain.KindProfileCompleted
		input.Description = "Completed profile"
	case events.TypeProjectCreated:
		input.Kind = domain.KindProjectCreated
		input.Description = describe("Created project", event.ProjectTitle)
	case events.TypeProjectMemberJoined:
		input.Kind = domain.KindProjectJoined
		input.Description = describe("Joined project", event.ProjectTitle)
	case events.TypeProjectCompleted:
		input.Kind = domain.KindProjectCompleted
		input.Description = describe("Completed project", event.ProjectTitle)
	case events.TypeProjectAbandoned:
		input.Kind = domain.KindProjectAbandoned
		input.Description = describe("Abandoned project", event.ProjectTitle)
	case events.TypeTaskCompleted:
		input.Kind = domain.KindTaskCompleted
		input.Description = describe("Completed task", event.TaskTitle)
		if event.TaskID != "" {
			input.Metadata["task_id"] = event.TaskID
		}
	case events.TypeTaskDeadlineMissed:
		input.Kind = domain.KindDeadlineMissed
		input.Description = describe("Missed deadline", event.TaskTitle)
		if event.TaskID != "" {
			input.Metadata["task_id"] = event.TaskID
		}
	case events.TypeReviewReceived:
		switch {
		case event.Rating >= PositiveRatingMin:
			input.Kind = domain.KindPositiveReviewReceived
			input.Description = fmt.Sprintf("Received a %d-star review", event.Rating)
		case event.Rating > 0 && event.Rating <= NegativeRatingMax:
			input.Kind = domain.KindNegativeReviewReceived
			input.Description = fmt.Sprintf("Received a %d-star review", event.Rating)
		default:
			return domain.RecordActivityInput{}, false
		}
		input.Metadata["rating"] = event.Rating
		if event.ReviewerID != "" {
			input.Metadata["reviewer_id"] = event.ReviewerID
		}
	default:
		return domain.RecordActivityInput{}, false
	}
	return input, true
}

func describe(action, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return action
	}
	text := action + ": " + title
	if runes := []rune(text); len(runes) > domain.MaxDescriptionRunes {
		text = string(runes[:domain.MaxDescriptionRunes])
	}
	return text
}
