package bus

import (
	"context"
	"testing"
)

func TestLogPublisherRejectsUnmarshalablePayload(t *testing.T) {
	p := LogPublisher{}
	if err := p.Publish(context.Background(), "test.topic", map[string]any{"ok": true}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	// Channels cannot be marshaled to JSON.
	if err := p.Publish(context.Background(), "test.topic", make(chan int)); err == nil {
		t.Fatal("expected marshal error for channel payload")
	}
}

func TestCaptureRecordsInOrder(t *testing.T) {
	var c Capture
	ctx := context.Background()
	if err := c.Publish(ctx, "a", 1); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := c.Publish(ctx, "b", 2); err != nil {
		t.Fatalf("publish: %v", err)
	}

	events := c.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Topic != "a" || events[1].Topic != "b" {
		t.Fatalf("wrong order: %v", events)
	}

	// Events returns a copy: mutating it must not affect the capture.
	events[0].Topic = "mutated"
	if c.Events()[0].Topic != "a" {
		t.Fatal("capture exposed internal slice")
	}
}
