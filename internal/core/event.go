package core

// EventKind is a notification the core emits to subscribers.
type EventKind int

const (
	// EventMessageAdded carries a message appended to the log.
	EventMessageAdded EventKind = iota
	// EventMessageDeleted carries the id of a removed message.
	EventMessageDeleted
	// EventMessagesCleared reports that the log was emptied.
	EventMessagesCleared
	// EventStateChanged carries the controller state after a transition.
	EventStateChanged
)

func (k EventKind) String() string {
	switch k {
	case EventMessageAdded:
		return "message_added"
	case EventMessageDeleted:
		return "message_deleted"
	case EventMessagesCleared:
		return "messages_cleared"
	case EventStateChanged:
		return "state_changed"
	default:
		return "unknown"
	}
}

// Event is sent to subscribers to describe what happened.
type Event struct {
	Kind      EventKind
	Message   *Message // EventMessageAdded
	MessageID int64    // EventMessageDeleted
	State     *State   // EventStateChanged
}
