package store

import (
	"context"
	"errors"
)

// ErrUnsupportedScheme is returned when a store URI names an unknown backend.
var ErrUnsupportedScheme = errors.New("unsupported store scheme")

// Message represents a persisted chat message.
type Message struct {
	ID   string
	User string
	Msg  string
	Time int64 // milliseconds since epoch, assigned by the server
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists a message. Messages are never updated afterwards.
	AppendMessage(ctx context.Context, msg *Message) error

	// ListMessages returns the full history in the backend's natural
	// insertion order, oldest first.
	ListMessages(ctx context.Context) ([]*Message, error)
}

// Store aggregates message persistence with connection lifecycle.
type Store interface {
	MessageStore

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close closes the underlying connection.
	Close() error
}
