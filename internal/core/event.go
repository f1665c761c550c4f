package core

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventChat delivers a single chat message, live or synthesized.
	EventChat EventKind = iota
	// EventHistory delivers the persisted history to one newly connected client.
	EventHistory
	// EventError notifies a client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Message  Message
	Messages []Message // For EventHistory
	Error    *CoreError
}
