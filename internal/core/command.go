package core

// Command is a chat submission received from a client.
type Command struct {
	Client  *Client
	Message Message
}
