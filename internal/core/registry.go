package core

// Registry tracks connected clients and fans events out to them.
// Implementations are used from the hub goroutine only.
type Registry interface {
	// Add admits a client. Returns true if newly added.
	Add(c *Client) bool
	// Remove deletes a client. Returns true if removed.
	Remove(c *Client) bool
	// Broadcast sends an event to every client and returns how many were dropped.
	Broadcast(ev *Event) int
	// Drain removes and returns all clients.
	Drain() []*Client
	// Len returns the number of registered clients.
	Len() int
}

// ConnectionRegistry is the default Registry backed by a set.
type ConnectionRegistry struct {
	clients map[*Client]struct{}
}

// NewRegistry constructs an empty registry.
func NewRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{clients: make(map[*Client]struct{})}
}

func (r *ConnectionRegistry) Add(c *Client) bool {
	if _, exists := r.clients[c]; exists {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

func (r *ConnectionRegistry) Remove(c *Client) bool {
	if _, exists := r.clients[c]; !exists {
		return false
	}
	delete(r.clients, c)
	return true
}

func (r *ConnectionRegistry) Broadcast(ev *Event) int {
	dropped := 0
	for client := range r.clients {
		if !client.deliver(ev) {
			dropped++
		}
	}
	return dropped
}

func (r *ConnectionRegistry) Drain() []*Client {
	out := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		out = append(out, client)
	}
	clear(r.clients)
	return out
}

func (r *ConnectionRegistry) Len() int {
	return len(r.clients)
}
