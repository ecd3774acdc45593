package consumer

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Sugavanesh17/UniConnect/internal/domain"
	"github.com/Sugavanesh17/UniConnect/internal/events"
	"github.com/Sugavanesh17/UniConnect/internal/persistence/memory"
)

func eventMessage(t *testing.T, eventType string, event events.CollabEvent) Message {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return Message{Topic: "collab_events", EventType: eventType, TenantID: "uni-1", Payload: payload}
}

func newLedger(t *testing.T) (*domain.Service, *LedgerHandler) {
	t.Helper()
	svc := domain.NewService(memory.NewStore())
	return svc, NewLedgerHandler(svc, quietLogger())
}

func TestLedgerHandlerRegistersAndScoresEvents(t *testing.T) {
	ctx := context.Background()
	svc, handler := newLedger(t)

	require.NoError(t, handler.Handle(ctx, eventMessage(t, events.TypeUserRegistered, events.CollabEvent{
		EventID: "evt-0", UserID: "u-1", Name: "Asha", Email: "asha@uni.example", University: "Anna University",
	})))
	require.NoError(t, handler.Handle(ctx, eventMessage(t, events.TypeTaskCompleted, events.CollabEvent{
		EventID: "evt-1", UserID: "u-1", ProjectID: "p-1", TaskID: "t-1", TaskTitle: "Write report", OccurredAt: time.Now(),
	})))
	require.NoError(t, handler.Handle(ctx, eventMessage(t, events.TypeReviewReceived, events.CollabEvent{
		EventID: "evt-2", UserID: "u-1", Rating: 1, ReviewerID: "u-2",
	})))

	user, err := svc.GetUser(ctx, "uni-1", "u-1")
	require.NoError(t, err)
	require.Equal(t, 55+8-15, user.TrustScore)

	page, err := svc.GetHistory(ctx, "uni-1", "u-1", domain.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, page.Items, 3)
	require.Equal(t, domain.KindNegativeReviewReceived, page.Items[0].Kind)
	require.Equal(t, "u-2", page.Items[0].Metadata["reviewer_id"])
	require.Equal(t, domain.KindTaskCompleted, page.Items[1].Kind)
	require.Equal(t, "Completed task: Write report", page.Items[1].Description)
	require.Equal(t, "p-1", page.Items[1].ProjectID)
}

func TestLedgerHandlerTreatsReplaysAsSuccess(t *testing.T) {
	ctx := context.Background()
	svc, handler := newLedger(t)

	registered := eventMessage(t, events.TypeUserRegistered, events.CollabEvent{UserID: "u-1", Name: "Asha", Email: "asha@uni.example"})
	require.NoError(t, handler.Handle(ctx, registered))
	require.NoError(t, handler.Handle(ctx, registered))

	joined := eventMessage(t, events.TypeProjectMemberJoined, events.CollabEvent{EventID: "evt-9", UserID: "u-1", ProjectID: "p-1"})
	require.NoError(t, handler.Handle(ctx, joined))
	require.NoError(t, handler.Handle(ctx, joined))

	user, err := svc.GetUser(ctx, "uni-1", "u-1")
	require.NoError(t, err)
	require.Equal(t, 60, user.TrustScore)
}

func TestLedgerHandlerAcknowledgesEventsWithoutTrustSignal(t *testing.T) {
	ctx := context.Background()
	_, handler := newLedger(t)

	require.NoError(t, handler.Handle(ctx, eventMessage(t, "project.archived", events.CollabEvent{UserID: "u-1"})))
	require.NoError(t, handler.Handle(ctx, eventMessage(t, events.TypeReviewReceived, events.CollabEvent{UserID: "u-1", Rating: 3})))
	require.NoError(t, handler.Handle(ctx, eventMessage(t, events.TypeTaskCompleted, events.CollabEvent{UserID: "ghost"})))
	require.NoError(t, handler.Handle(ctx, Message{EventType: events.TypeTaskCompleted, Payload: json.RawMessage(`[]`)}))
}

func TestLedgerHandlerReturnsStorageErrors(t *testing.T) {
	handler := NewLedgerHandler(failingLedger{err: domain.ErrStorage}, quietLogger())
	err := handler.Handle(context.Background(), eventMessage(t, events.TypeProfileCompleted, events.CollabEvent{EventID: "evt-3", UserID: "u-1"}))
	require.ErrorIs(t, err, domain.ErrStorage)

	handler = NewLedgerHandler(failingLedger{err: domain.ErrConflict}, quietLogger())
	err = handler.Handle(context.Background(), eventMessage(t, events.TypeUserRegistered, events.CollabEvent{UserID: "u-1"}))
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestMapEvent(t *testing.T) {
	cases := []struct {
		eventType string
		event     events.CollabEvent
		kind      domain.ActivityKind
		ok        bool
	}{
		{events.TypeProfileCompleted, events.CollabEvent{}, domain.KindProfileCompleted, true},
		{events.TypeProjectCreated, events.CollabEvent{ProjectTitle: "Robotics"}, domain.KindProjectCreated, true},
		{events.TypeProjectMemberJoined, events.CollabEvent{}, domain.KindProjectJoined, true},
		{events.TypeProjectCompleted, events.CollabEvent{}, domain.KindProjectCompleted, true},
		{events.TypeProjectAbandoned, events.CollabEvent{}, domain.KindProjectAbandoned, true},
		{events.TypeTaskCompleted, events.CollabEvent{}, domain.KindTaskCompleted, true},
		{events.TypeTaskDeadlineMissed, events.CollabEvent{}, domain.KindDeadlineMissed, true},
		{events.TypeReviewReceived, events.CollabEvent{Rating: 5}, domain.KindPositiveReviewReceived, true},
		{events.TypeReviewReceived, events.CollabEvent{Rating: 4}, domain.KindPositiveReviewReceived, true},
		{events.TypeReviewReceived, events.CollabEvent{Rating: 2}, domain.KindNegativeReviewReceived, true},
		{events.TypeReviewReceived, events.CollabEvent{Rating: 3}, "", false},
		{events.TypeReviewReceived, events.CollabEvent{}, "", false},
		{events.TypeUserRegistered, events.CollabEvent{}, "", false},
		{"chat.message_sent", events.CollabEvent{}, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.eventType, func(t *testing.T) {
			tc.event.EventID = "evt"
			input, ok := MapEvent(tc.eventType, tc.event)
			require.Equal(t, tc.ok, ok)
			if !ok {
				return
			}
			require.Equal(t, tc.kind, input.Kind)
			require.NotEmpty(t, input.Description)
			require.Equal(t, "evt", input.Metadata[domain.MetadataSourceEventID])
		})
	}
}

func TestMapEventDescribesProjects(t *testing.T) {
	input, ok := MapEvent(events.TypeProjectCreated, events.CollabEvent{ProjectTitle: "  Campus Rover  "})
	require.True(t, ok)
	require.Equal(t, "Created project: Campus Rover", input.Description)
	require.NotContains(t, input.Metadata, domain.MetadataSourceEventID)
}

type failingLedger struct {
	err error
}

func (f failingLedger) RecordDefault(context.Context, domain.RecordActivityInput) (*domain.ActivityRecord, error) {
	return nil, f.err
}

func (f failingLedger) RegisterUser(context.Context, domain.RegisterUserInput) (*domain.User, *domain.ActivityRecord, error) {
	return nil, nil, f.err
}
