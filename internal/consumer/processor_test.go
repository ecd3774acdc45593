package consumer

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

func framed(schemaID int, payload []byte) []byte {
	value := make([]byte, 5+len(payload))
	binary.BigEndian.PutUint32(value[1:5], uint32(schemaID))
	copy(value[5:], payload)
	return value
}

func collabMessage(eventType string, value []byte, offset int64) kafka.Message {
	return kafka.Message{
		Topic:     "collab_events",
		Partition: 0,
		Offset:    offset,
		Time:      time.Now().UTC(),
		Value:     value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "tenant_id", Value: []byte("uni-1")},
			{Key: "schema_subject", Value: []byte("collab_events-value")},
		},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestProcessorCommitsOnSuccess(t *testing.T) {
	payload := []byte(`{"event_id":"evt-1","user_id":"u-1"}`)
	reader := &stubReader{messages: []kafka.Message{collabMessage("task.completed", framed(42, payload), 10)}}
	handler := &stubHandler{}

	before := testutil.ToFloat64(processedCounter.WithLabelValues("collab_events", "task.completed"))
	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, "task.completed", handler.last.EventType)
	require.Equal(t, "uni-1", handler.last.TenantID)
	require.Equal(t, 42, handler.last.SchemaID)
	require.JSONEq(t, string(payload), string(handler.last.Payload))
	require.InDelta(t, before+1, testutil.ToFloat64(processedCounter.WithLabelValues("collab_events", "task.completed")), 0.0001)
}

func TestProcessorAcceptsPlainJSON(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{collabMessage("profile.completed", []byte(`{"user_id":"u-1"}`), 3)}}
	handler := &stubHandler{}

	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, 1, handler.calls)
	require.Zero(t, handler.last.SchemaID)
}

func TestProcessorRetriesFailedRecordBeforeMovingOn(t *testing.T) {
	reader := &stubReader{messages: []kafka.Message{
		collabMessage("task.completed", framed(7, []byte(`{"user_id":"u-1"}`)), 20),
		collabMessage("task.completed", framed(7, []byte(`{"user_id":"u-2"}`)), 21),
	}}
	handler := &stubHandler{failures: 1, err: errors.New("storage unavailable")}

	before := testutil.ToFloat64(handlerErrorCounter.WithLabelValues("collab_events", "task.completed"))
	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, []int64{20, 20, 21}, handler.offsets)
	require.Equal(t, []int64{20, 21}, reader.committed)
	require.InDelta(t, before+1, testutil.ToFloat64(handlerErrorCounter.WithLabelValues("collab_events", "task.completed")), 0.0001)
}

func TestProcessorNeverCommitsRecordThatKeepsFailing(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader := &stubReader{messages: []kafka.Message{
		collabMessage("review.received", framed(99, []byte(`{"rating":5}`)), 20),
		collabMessage("review.received", framed(99, []byte(`{"rating":5}`)), 21),
	}}
	handler := &stubHandler{failures: -1, err: errors.New("boom")}
	handler.onCall = func(calls int) {
		if calls == 3 {
			cancel()
		}
	}

	err := NewProcessor(reader, handler, WithLogger(quietLogger()), WithRetryDelay(time.Millisecond)).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, []int64{20, 20, 20}, handler.offsets)
	require.Empty(t, reader.committed)
	require.Equal(t, 1, reader.index, "the next record must not be fetched")
}

func TestProcessorCommitsUndecodableMessages(t *testing.T) {
	noHeader := collabMessage("task.completed", framed(1, []byte(`{}`)), 1)
	noHeader.Headers = nil
	reader := &stubReader{messages: []kafka.Message{
		noHeader,
		collabMessage("task.completed", []byte{0, 1}, 2),
		collabMessage("task.completed", framed(1, []byte(`not-json`)), 3),
	}}
	handler := &stubHandler{}

	before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("collab_events"))
	err := NewProcessor(reader, handler, WithLogger(quietLogger())).Run(context.Background())
	require.ErrorIs(t, err, context.Canceled)

	require.Zero(t, handler.calls)
	require.Equal(t, 3, reader.commitCalls)
	require.InDelta(t, before+3, testutil.ToFloat64(decodeErrorCounter.WithLabelValues("collab_events")), 0.0001)
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	committed   []int64
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	r.commitCalls++
	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}
	return nil
}

func (r *stubReader) Close() error { return nil }

// stubHandler fails its first failures calls with err; a negative count fails every call.
type stubHandler struct {
	calls    int
	failures int
	err      error
	last     Message
	offsets  []int64
	onCall   func(calls int)
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	h.offsets = append(h.offsets, msg.Offset)
	if h.onCall != nil {
		h.onCall(h.calls)
	}
	if h.err != nil && (h.failures < 0 || h.calls <= h.failures) {
		return h.err
	}
	return nil
}
