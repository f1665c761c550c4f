package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeInvalidMessage = "invalid_message"
)

var (
	ErrBadRequest   = errors.New("bad request")
	ErrHubStopped   = errors.New("hub stopped")
	ErrNoDiceRoller = errors.New("no dice roller configured")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

// Is lets errors.Is match bad_request errors against ErrBadRequest.
func (e *CoreError) Is(target error) bool {
	return target == ErrBadRequest && e.Code == ErrCodeBadRequest
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
