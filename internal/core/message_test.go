package core

import (
	"errors"
	"testing"
)

func TestMessageIsDiceRoll(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"/diceroll", true},
		{"/Diceroll", false},
		{"/diceroll ", false},
		{" /diceroll", false},
		{"/dice", false},
		{"please /diceroll", false},
	}

	for _, tt := range tests {
		if got := (Message{Text: tt.text}).IsDiceRoll(); got != tt.want {
			t.Errorf("IsDiceRoll(%q) = %v, want %v", tt.text, got, tt.want)
		}
	}
}

func TestMessageValidate(t *testing.T) {
	if err := (Message{User: "alice", Text: "hi"}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, msg := range []Message{{Text: "hi"}, {User: "alice"}, {}} {
		err := msg.Validate()
		if !errors.Is(err, ErrBadRequest) {
			t.Errorf("Validate(%+v) = %v, want ErrBadRequest", msg, err)
		}
	}
}

func TestRegistryBroadcastCountsDrops(t *testing.T) {
	r := NewRegistry()
	fast := NewClient("fast")
	slow := &Client{ID: "slow", Events: make(chan *Event)} // unbuffered, nobody reading

	if !r.Add(fast) || !r.Add(slow) {
		t.Fatal("expected clients to be added")
	}
	if r.Add(fast) {
		t.Fatal("expected duplicate add to be rejected")
	}

	if dropped := r.Broadcast(&Event{Kind: EventChat}); dropped != 1 {
		t.Fatalf("expected 1 dropped, got %d", dropped)
	}
	if len(fast.Events) != 1 {
		t.Fatalf("expected fast client to have 1 event, got %d", len(fast.Events))
	}

	drained := r.Drain()
	if len(drained) != 2 || r.Len() != 0 {
		t.Fatalf("unexpected drain result: %d clients, %d left", len(drained), r.Len())
	}
	if r.Remove(fast) {
		t.Fatal("expected remove after drain to report false")
	}
}

func TestClientHoldsEventsWhileReplaying(t *testing.T) {
	c := NewClient("c")
	c.replaying = true

	c.deliver(&Event{Kind: EventChat})
	if len(c.Events) != 0 || len(c.pending) != 1 {
		t.Fatalf("expected event held back, queue=%d pending=%d", len(c.Events), len(c.pending))
	}
}

func TestClientHoldBackQueueIsBounded(t *testing.T) {
	r := NewRegistry()
	c := NewClient("c")
	c.replaying = true
	r.Add(c)

	for i := range eventBuffer {
		if dropped := r.Broadcast(&Event{Kind: EventChat}); dropped != 0 {
			t.Fatalf("event %d dropped before the queue was full", i)
		}
	}
	if dropped := r.Broadcast(&Event{Kind: EventChat}); dropped != 1 {
		t.Fatalf("expected overflow to count as a drop, got %d", dropped)
	}
	if len(c.pending) != eventBuffer {
		t.Fatalf("expected %d held events, got %d", eventBuffer, len(c.pending))
	}
}
