package eventing

import (
	"context"
	"errors"
	"testing"
	"time"
)

func sampleEvent() PresenceLogged {
	return PresenceLogged{
		ScopeID:   "scope-1",
		SubjectID: "subject-1",
		Status:    "online",
		At:        time.Date(2025, time.August, 11, 9, 15, 0, 0, time.UTC),
		Source:    SourceIngest,
	}
}

func TestNotifierDeliversToAllHandlers(t *testing.T) {
	notifier := NewPresenceNotifier()

	var first, second []PresenceLogged
	notifier.Subscribe(func(_ context.Context, logged PresenceLogged) error {
		first = append(first, logged)
		return nil
	})
	notifier.Subscribe(func(_ context.Context, logged PresenceLogged) error {
		second = append(second, logged)
		return nil
	})

	if err := notifier.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected both handlers invoked once, got %d and %d", len(first), len(second))
	}
	if first[0].SubjectID != "subject-1" || first[0].Source != SourceIngest {
		t.Fatalf("unexpected event delivered: %+v", first[0])
	}
}

func TestNotifierReturnsFirstErrorAndKeepsGoing(t *testing.T) {
	notifier := NewPresenceNotifier()

	errBoom := errors.New("boom")
	notifier.Subscribe(func(_ context.Context, _ PresenceLogged) error {
		return errBoom
	})

	reached := false
	notifier.Subscribe(func(_ context.Context, _ PresenceLogged) error {
		reached = true
		return errors.New("later")
	})

	err := notifier.Publish(context.Background(), sampleEvent())
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected first error, got %v", err)
	}
	if !reached {
		t.Fatal("expected later handler to run despite earlier failure")
	}
}

func TestNotifierIgnoresNilHandler(t *testing.T) {
	notifier := NewPresenceNotifier()
	notifier.Subscribe(nil)

	if err := notifier.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("publish with no handlers: %v", err)
	}
}

func TestNotifierPublishWithoutSubscribers(t *testing.T) {
	notifier := NewPresenceNotifier()
	if err := notifier.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
}
