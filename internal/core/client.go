package core

// ClientState tracks a connection through its lifetime.
type ClientState int

const (
	StateConnecting ClientState = iota
	StateConnected
	StateDisconnected
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// eventBuffer bounds each client queue; a full queue drops live events.
const eventBuffer = 64

// Client is a connection as seen by the core layer. It carries no user
// identity; the display name travels with each submitted message.
type Client struct {
	ID     string
	Events chan *Event

	// Owned by the hub goroutine.
	state     ClientState
	replaying bool
	pending   []*Event
}

// NewClient constructs a client with an initialized event queue.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan *Event, eventBuffer),
		state:  StateConnecting,
	}
}

// deliver queues ev for the client. Events arriving while history is being
// replayed are held back so that history always comes first; the hold-back
// queue is bounded by eventBuffer like the live one.
func (c *Client) deliver(ev *Event) bool {
	if c.replaying {
		if len(c.pending) >= eventBuffer {
			return false
		}
		c.pending = append(c.pending, ev)
		return true
	}
	select {
	case c.Events <- ev:
		return true
	default:
		// Drop if slow consumer.
		return false
	}
}
