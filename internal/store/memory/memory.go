// Package memory keeps chat history in process memory. History is lost on restart.
package memory

import (
	"context"
	"sync"

	"github.com/vovakirdan/chatrelay/internal/store"
)

// Store implements store.Store with a slice guarded by a mutex.
type Store struct {
	mu       sync.RWMutex
	messages []store.Message
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{}
}

// AppendMessage stores a copy of msg.
func (s *Store) AppendMessage(ctx context.Context, msg *store.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.messages = append(s.messages, *msg)
	s.mu.Unlock()
	return nil
}

// ListMessages returns copies of all messages in append order.
func (s *Store) ListMessages(ctx context.Context) ([]*store.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*store.Message, 0, len(s.messages))
	for i := range s.messages {
		msg := s.messages[i]
		out = append(out, &msg)
	}
	return out, nil
}

// Len reports how many messages are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }
