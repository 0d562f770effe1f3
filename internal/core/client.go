package core

// Client is a hub subscriber, typically one WebSocket connection.
type Client struct {
	ID     string
	Events chan Event
}

// NewClient constructs a client with an initialized event buffer.
func NewClient(id string) *Client {
	return &Client{
		ID:     id,
		Events: make(chan Event, 32),
	}
}
