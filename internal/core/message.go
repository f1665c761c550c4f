package core

import "time"

const (
	// DiceRollCommand is the reserved body that requests a dice roll.
	DiceRollCommand = "/diceroll"
	// SystemUser is the author of messages synthesized by the server.
	SystemUser = "System"
)

// Message is the domain model for a chat message.
type Message struct {
	ID   string
	User string
	Text string
	Time time.Time
}

// IsDiceRoll reports whether the body is exactly the reserved command token.
func (m Message) IsDiceRoll() bool {
	return m.Text == DiceRollCommand
}

// Validate rejects submissions without a user or body.
func (m Message) Validate() error {
	if m.User == "" {
		return coreError(ErrCodeBadRequest, "user is required")
	}
	if m.Text == "" {
		return coreError(ErrCodeBadRequest, "msg is required")
	}
	return nil
}
