package events

import (
	"encoding/json"
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	defer cancel()

	h.PublishCommand(TypeCommandDispatched, CommandEvent{CommandID: "c1", Operation: "project.open"})

	select {
	case ev := <-ch:
		if ev.Type != TypeCommandDispatched {
			t.Errorf("type = %q, want %q", ev.Type, TypeCommandDispatched)
		}
		var payload CommandEvent
		if err := json.Unmarshal(ev.Data, &payload); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if payload.CommandID != "c1" || payload.Operation != "project.open" {
			t.Errorf("payload = %+v", payload)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}
}

func TestSnapshotSince(t *testing.T) {
	h := NewHub(3)
	for i := 0; i < 5; i++ {
		h.Publish(TypeCommandSucceeded, CommandEvent{CommandID: "c"})
	}

	all := h.SnapshotSince(0)
	if len(all) != 3 {
		t.Fatalf("snapshot size = %d, want ring capacity 3", len(all))
	}
	// Oldest two were overwritten; remaining IDs are 3, 4, 5.
	if all[0].ID != 3 || all[2].ID != 5 {
		t.Errorf("unexpected ids %d..%d", all[0].ID, all[2].ID)
	}

	since := h.SnapshotSince(4)
	if len(since) != 1 || since[0].ID != 5 {
		t.Errorf("SnapshotSince(4) = %v", since)
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	h := NewHub(10)
	ch, cancel := h.Subscribe()
	cancel()

	// Channel is closed after cancel.
	if _, ok := <-ch; ok {
		t.Error("expected closed channel")
	}

	// Publishing after cancel must not panic.
	h.Publish(TypeCommandFailed, nil)
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	h := NewHub(10)
	_, cancel := h.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 200; i++ {
			h.Publish(TypeCommandSucceeded, nil)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}
