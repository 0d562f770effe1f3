package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	ProtocolVersion = 1

	InboundTypeSubmit = "submit"
	InboundTypeDelete = "delete"
	InboundTypeClear  = "clear"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventSnapshot = "snapshot"
)

// SubmitData asks for text to be corrected.
type SubmitData struct {
	Text string `json:"text"`
}

// DeleteData removes one message from the log.
type DeleteData struct {
	ID int64 `json:"id"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// Message is a log entry as seen on the wire.
type Message struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsUser    bool   `json:"isUser"`
	Timestamp int64  `json:"timestamp"`
}

// State mirrors the controller's loading and error state.
type State struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Snapshot is sent once after connecting.
type Snapshot struct {
	Protocol int       `json:"protocol"`
	Messages []Message `json:"messages"`
	State    State     `json:"state"`
}

// EventMessageDeleted carries the id of a removed message.
type EventMessageDeleted struct {
	ID int64 `json:"id"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
