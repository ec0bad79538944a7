package consumer

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"presence-ledger/internal/presence/infrastructure/memory"
)

type scriptedReader struct {
	messages  []kafka.Message
	committed []int64
	closed    bool
}

func (r *scriptedReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *scriptedReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, msg := range msgs {
		r.committed = append(r.committed, msg.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func message(offset int64, value string) kafka.Message {
	return kafka.Message{
		Topic:  "presence.status-changes",
		Offset: offset,
		Value:  []byte(value),
		Time:   time.Date(2025, 8, 11, 12, 0, 0, 0, time.UTC),
	}
}

func TestProcessorAppendsStatusChanges(t *testing.T) {
	reader := &scriptedReader{messages: []kafka.Message{
		message(1, `{"type":"status_changed","scope_id":"g1","subject_id":"u1","display_name":"Ana","status":"online","at":"2025-08-11T12:00:00Z"}`),
		message(2, `{"type":"status_changed","scope_id":"g1","subject_id":"u1","status":"idle","at":"2025-08-11T12:30:00Z"}`),
	}}
	sink := memory.NewEventLog()

	processor, err := NewProcessor(reader, sink, nil, nil, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	if err := processor.Run(context.Background()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}

	if sink.Len() != 2 {
		t.Fatalf("expected 2 events appended, got %d", sink.Len())
	}
	if len(reader.committed) != 2 {
		t.Fatalf("expected 2 commits, got %d", len(reader.committed))
	}
	if !reader.closed {
		t.Fatal("expected reader to be closed")
	}
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	reader := &scriptedReader{messages: []kafka.Message{
		message(7, `not json`),
		message(8, `{"type":"status_changed","scope_id":"g1","status":"online"}`),
		message(9, `{"type":"status_changed","scope_id":"g1","subject_id":"u1","status":"busy"}`),
	}}
	sink := memory.NewEventLog()

	processor, err := NewProcessor(reader, sink, nil, nil, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	_ = processor.Run(context.Background())

	if sink.Len() != 0 {
		t.Fatalf("expected no events appended, got %d", sink.Len())
	}
	if len(reader.committed) != 3 {
		t.Fatalf("expected all 3 offsets committed, got %d", len(reader.committed))
	}
}

func TestProcessorClassifiesManualIdle(t *testing.T) {
	reader := &scriptedReader{messages: []kafka.Message{
		message(1, `{"type":"activity","scope_id":"g1","subject_id":"u1","at":"2025-08-11T12:00:00Z"}`),
		message(2, `{"type":"status_changed","scope_id":"g1","subject_id":"u1","status":"idle","at":"2025-08-11T12:00:30Z"}`),
		message(3, `{"type":"status_changed","scope_id":"g1","subject_id":"u2","status":"idle","at":"2025-08-11T12:00:30Z"}`),
	}}
	sink := memory.NewEventLog()
	tracker := NewActivityTracker(time.Minute, 30*time.Minute)

	processor, err := NewProcessor(reader, sink, tracker, nil, WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("new processor: %v", err)
	}
	_ = processor.Run(context.Background())

	if sink.Len() != 2 {
		t.Fatalf("expected 2 events appended, got %d", sink.Len())
	}
	first, err := sink.LatestEvent(context.Background(), "g1", "u1")
	if err != nil || first == nil {
		t.Fatalf("latest event for u1: %v", err)
	}
	if !first.Manual {
		t.Fatal("expected idle shortly after activity to be manual")
	}
	second, err := sink.LatestEvent(context.Background(), "g1", "u2")
	if err != nil || second == nil {
		t.Fatalf("latest event for u2: %v", err)
	}
	if second.Manual {
		t.Fatal("expected idle without prior activity to be automatic")
	}
}

func TestActivityTrackerEviction(t *testing.T) {
	tracker := NewActivityTracker(time.Minute, 10*time.Minute)
	base := time.Date(2025, 8, 11, 12, 0, 0, 0, time.UTC)

	tracker.Touch("g1", "u1", base)
	tracker.Touch("g1", "u2", base.Add(8*time.Minute))

	if removed := tracker.Evict(base.Add(11 * time.Minute)); removed != 1 {
		t.Fatalf("expected 1 entry evicted, got %d", removed)
	}
	if tracker.Len() != 1 {
		t.Fatalf("expected 1 entry left, got %d", tracker.Len())
	}
	if tracker.ActiveWithin("g1", "u1", base.Add(30*time.Second)) {
		t.Fatal("expected evicted subject to be inactive")
	}
}

func TestActivityTrackerThreshold(t *testing.T) {
	tracker := NewActivityTracker(time.Minute, time.Hour)
	base := time.Date(2025, 8, 11, 12, 0, 0, 0, time.UTC)
	tracker.Touch("g1", "u1", base)

	if !tracker.ActiveWithin("g1", "u1", base.Add(59*time.Second)) {
		t.Fatal("expected activity within threshold")
	}
	if tracker.ActiveWithin("g1", "u1", base.Add(2*time.Minute)) {
		t.Fatal("expected activity outside threshold to be stale")
	}
}
