package core

import "time"

// Message is one entry of the conversation log. Once created it is never mutated;
// only its presence in the log changes.
type Message struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsUser    bool   `json:"isUser"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// NewMessage builds an unsaved message stamped with the current time.
// MessageStore.Append assigns the id.
func NewMessage(text string, isUser bool) Message {
	return Message{
		Text:      text,
		IsUser:    isUser,
		Timestamp: time.Now().UnixMilli(),
	}
}

// Time returns the creation instant.
func (m Message) Time() time.Time {
	return time.UnixMilli(m.Timestamp)
}

// Author names the side that wrote the message.
func (m Message) Author() string {
	if m.IsUser {
		return "user"
	}
	return "assistant"
}
