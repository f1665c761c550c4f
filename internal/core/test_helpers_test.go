package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vovakirdan/chatrelay/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

func mustNoEvent(t *testing.T, ch <-chan *Event, wait time.Duration) {
	t.Helper()

	select {
	case ev, ok := <-ch:
		if ok {
			t.Fatalf("unexpected event: %+v", ev)
		}
	case <-time.After(wait):
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// fakeStore records appends and can hold ListMessages until released.
type fakeStore struct {
	mu        sync.Mutex
	messages  []store.Message
	appendErr error
	listErr   error
	listGate  chan struct{}
}

func (s *fakeStore) AppendMessage(_ context.Context, msg *store.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *fakeStore) ListMessages(ctx context.Context) ([]*store.Message, error) {
	if s.listGate != nil {
		select {
		case <-s.listGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	out := make([]*store.Message, 0, len(s.messages))
	for i := range s.messages {
		msg := s.messages[i]
		out = append(out, &msg)
	}
	return out, nil
}

func (s *fakeStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *fakeStore) snapshot() []store.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]store.Message(nil), s.messages...)
}

// fakeRoller returns a fixed value or error, optionally after blocking on ctx.
type fakeRoller struct {
	value int
	err   error
	block bool
}

func (r *fakeRoller) Roll(ctx context.Context) (int, error) {
	if r.block {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return r.value, r.err
}

var errBoom = errors.New("boom")

func startHub(t *testing.T, st store.MessageStore, roller DiceRoller, opts ...Option) *Hub {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub(st, roller, nil, nil, opts...)
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-hub.Done()
		hub.Wait()
	})
	return hub
}

func connect(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	if hub.store != nil {
		mustEvent(t, c.Events, EventHistory)
	}
	return c
}

// connectPending registers a client without waiting for its replay.
func connectPending(t *testing.T, hub *Hub, id string) *Client {
	t.Helper()

	c := NewClient(id)
	if err := hub.RegisterClient(c); err != nil {
		t.Fatalf("register %s: %v", id, err)
	}
	return c
}
