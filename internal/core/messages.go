package core

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/grammarchat-server/internal/store"
	applog "github.com/vovakirdan/grammarchat-server/internal/log"
)

// MessageStore owns the ordered conversation log. Every mutation is written
// through to the KV under a single key before the call returns.
// Persistence failures are logged and otherwise ignored.
type MessageStore struct {
	mu       sync.Mutex
	kv       store.KV
	key      string
	ids      *IDGenerator
	messages []Message
	hub      *Hub
	log      *zerolog.Logger
}

// NewMessageStore creates an empty store. Call Load to restore a saved log.
func NewMessageStore(kv store.KV, key string, hub *Hub, logger *zerolog.Logger) *MessageStore {
	if logger == nil {
		logger = applog.Nop()
	}
	return &MessageStore{
		kv:  kv,
		key: key,
		ids: NewIDGenerator(),
		hub: hub,
		log: logger,
	}
}

// Load replaces the in-memory log with the persisted one. An absent, unreadable
// or corrupt record yields an empty log; Load never fails.
func (s *MessageStore) Load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.messages = nil

	data, err := s.kv.Get(ctx, s.key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Warn().Err(err).Str("key", s.key).Msg("failed to read message log, starting empty")
		}
		return
	}

	var restored []Message
	if err := json.Unmarshal(data, &restored); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("corrupt message log, starting empty")
		return
	}

	for _, m := range restored {
		s.ids.Observe(m.ID)
	}

	seen := make(map[int64]struct{}, len(restored))
	for _, m := range restored {
		if _, dup := seen[m.ID]; dup || m.ID <= 0 {
			old := m.ID
			m.ID = s.ids.Next()
			s.log.Warn().Int64("old_id", old).Int64("new_id", m.ID).Msg("re-stamped duplicate message id")
		}
		seen[m.ID] = struct{}{}
		s.messages = append(s.messages, m)
	}

	s.log.Debug().Int("count", len(s.messages)).Msg("message log restored")
}

// Append adds msg to the end of the log and persists. A zero or already-held id
// is replaced with a fresh one; a zero timestamp is set to now. The stored
// message is returned.
func (s *MessageStore) Append(ctx context.Context, msg Message) Message {
	s.mu.Lock()
	if msg.ID <= 0 || s.indexLocked(msg.ID) >= 0 {
		msg.ID = s.ids.Next()
	} else {
		s.ids.Observe(msg.ID)
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = time.Now().UnixMilli()
	}
	s.messages = append(s.messages, msg)
	s.persistLocked(ctx)
	s.mu.Unlock()

	stored := msg
	s.hub.Publish(Event{Kind: EventMessageAdded, Message: &stored})
	return msg
}

// Remove deletes the message with id. It reports whether a message was removed;
// when none matched nothing is written.
func (s *MessageStore) Remove(ctx context.Context, id int64) bool {
	s.mu.Lock()
	idx := s.indexLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.messages = slices.Delete(s.messages, idx, idx+1)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.hub.Publish(Event{Kind: EventMessageDeleted, MessageID: id})
	return true
}

// Clear empties the log and deletes the persisted record.
func (s *MessageStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.messages = nil
	if err := s.kv.Delete(context.WithoutCancel(ctx), s.key); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to delete message log")
	}
	s.mu.Unlock()

	s.hub.Publish(Event{Kind: EventMessagesCleared})
}

// List returns a copy of the log in insertion order.
func (s *MessageStore) List() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Get returns the message with id.
func (s *MessageStore) Get(id int64) (Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if idx := s.indexLocked(id); idx >= 0 {
		return s.messages[idx], true
	}
	return Message{}, false
}

// Len returns the number of messages held.
func (s *MessageStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func (s *MessageStore) indexLocked(id int64) int {
	for i := range s.messages {
		if s.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// persistLocked writes the full log, ignoring cancellation of ctx.
func (s *MessageStore) persistLocked(ctx context.Context) {
	msgs := s.messages
	if msgs == nil {
		msgs = []Message{}
	}
	data, err := json.Marshal(msgs)
	if err != nil {
		s.log.Warn().Err(err).Msg("failed to encode message log")
		return
	}
	if err := s.kv.Put(context.WithoutCancel(ctx), s.key, data); err != nil {
		s.log.Warn().Err(err).Str("key", s.key).Msg("failed to persist message log")
	}
}
