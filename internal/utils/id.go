package utils

import "github.com/google/uuid"

// NewID returns a random UUID string used for sessions and messages.
func NewID() string {
	return uuid.NewString()
}
