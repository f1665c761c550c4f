package proto

import "encoding/json"

// Inbound is the envelope for frames coming from the client.
type Inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	// InboundEventMessage carries a chat submission.
	InboundEventMessage = "message"

	// OutboundEventChat carries one chat message, replayed or live.
	OutboundEventChat = "chat"
	// OutboundEventError reports a rejected frame to its sender.
	OutboundEventError = "error"
)

// MessageData is a chat submission from the client.
type MessageData struct {
	User string `json:"user"`
	Msg  string `json:"msg"`
}

// Outbound is the envelope for frames sent to the client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// ChatData is the payload of a chat event.
type ChatData struct {
	User string `json:"user"`
	Msg  string `json:"msg"`
	Time int64  `json:"time"` // milliseconds since epoch
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
