package core

import (
	"bytes"
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/vovakirdan/grammarchat-server/internal/store"
	"github.com/vovakirdan/grammarchat-server/internal/store/memory"
)

// failingKV rejects every operation.
type failingKV struct{}

func (failingKV) Get(context.Context, string) ([]byte, error) { return nil, errors.New("disk on fire") }
func (failingKV) Put(context.Context, string, []byte) error   { return errors.New("disk on fire") }
func (failingKV) Delete(context.Context, string) error        { return errors.New("disk on fire") }
func (failingKV) Close() error                                { return nil }

func TestMessageStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()

	st := NewMessageStore(kv, "messages", nil, nil)
	st.Load(ctx)
	orig := st.Append(ctx, Message{Text: "helo wrold", IsUser: true, Timestamp: 1_700_000_000_123})

	restored := NewMessageStore(kv, "messages", nil, nil)
	restored.Load(ctx)

	msgs := restored.List()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 restored message, got %d", len(msgs))
	}
	if msgs[0] != orig {
		t.Fatalf("round trip mismatch: got %+v, want %+v", msgs[0], orig)
	}

	raw, err := kv.Get(ctx, "messages")
	if err != nil {
		t.Fatalf("get persisted: %v", err)
	}
	for _, field := range []string{`"id":`, `"text":"helo wrold"`, `"isUser":true`, `"timestamp":1700000000123`} {
		if !bytes.Contains(raw, []byte(field)) {
			t.Errorf("persisted log %s is missing %s", raw, field)
		}
	}
}

func TestMessageStoreRemoveUnknownIDWritesNothing(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	st := NewMessageStore(kv, "messages", nil, nil)

	st.Append(ctx, NewMessage("a", true))
	st.Append(ctx, NewMessage("A.", false))

	before, _ := kv.Get(ctx, "messages")
	writes := kv.Writes()
	listBefore := st.List()

	if st.Remove(ctx, 42) {
		t.Fatal("Remove reported success for unknown id")
	}

	after, _ := kv.Get(ctx, "messages")
	if !bytes.Equal(before, after) {
		t.Fatalf("persisted bytes changed:\nbefore %s\nafter  %s", before, after)
	}
	if kv.Writes() != writes {
		t.Fatalf("expected no write, got %d new", kv.Writes()-writes)
	}
	listAfter := st.List()
	if len(listAfter) != len(listBefore) {
		t.Fatalf("length changed from %d to %d", len(listBefore), len(listAfter))
	}
	for i := range listBefore {
		if listBefore[i] != listAfter[i] {
			t.Fatalf("message %d changed: %+v -> %+v", i, listBefore[i], listAfter[i])
		}
	}
}

func TestMessageStoreRemoveKeepsOrder(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	st := NewMessageStore(kv, "messages", nil, nil)

	a := st.Append(ctx, NewMessage("a", true))
	b := st.Append(ctx, NewMessage("b", true))
	c := st.Append(ctx, NewMessage("c", true))

	if !st.Remove(ctx, b.ID) {
		t.Fatal("expected removal")
	}

	restored := NewMessageStore(kv, "messages", nil, nil)
	restored.Load(ctx)
	got := restored.List()
	if len(got) != 2 || got[0].ID != a.ID || got[1].ID != c.ID {
		t.Fatalf("unexpected log after remove: %+v", got)
	}
	if _, ok := st.Get(b.ID); ok {
		t.Fatal("removed message still retrievable")
	}
}

func TestMessageStoreClear(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	st := NewMessageStore(kv, "messages", nil, nil)

	st.Append(ctx, NewMessage("a", true))
	st.Clear(ctx)

	if st.Len() != 0 {
		t.Fatalf("expected empty log, got %d", st.Len())
	}
	if _, err := kv.Get(ctx, "messages"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected persisted record to be removed, got %v", err)
	}

	restored := NewMessageStore(kv, "messages", nil, nil)
	restored.Load(ctx)
	if restored.Len() != 0 {
		t.Fatalf("expected empty log after reload, got %d", restored.Len())
	}
}

func TestMessageStoreLoadFailsSoft(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
	}{
		{name: "absent"},
		{name: "corrupt json", value: []byte(`[{"id":1,"text":`)},
		{name: "wrong shape", value: []byte(`{"id":1}`)},
		{name: "wrong field types", value: []byte(`[{"id":"one","text":5}]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			kv := memory.New()
			if tt.value != nil {
				_ = kv.Put(ctx, "messages", tt.value)
			}

			st := NewMessageStore(kv, "messages", nil, nil)
			st.Load(ctx)
			if st.Len() != 0 {
				t.Fatalf("expected empty log, got %+v", st.List())
			}
		})
	}
}

func TestMessageStoreSurvivesFailingStorage(t *testing.T) {
	ctx := context.Background()
	st := NewMessageStore(failingKV{}, "messages", nil, nil)

	st.Load(ctx)
	m := st.Append(ctx, NewMessage("still here", true))
	if st.Len() != 1 {
		t.Fatalf("expected in-memory append despite write failure, got %d", st.Len())
	}
	if !st.Remove(ctx, m.ID) {
		t.Fatal("expected remove to succeed in memory")
	}
	st.Clear(ctx)
}

func TestMessageStoreIDsUniqueAndIncreasing(t *testing.T) {
	ctx := context.Background()
	st := NewMessageStore(memory.New(), "messages", nil, nil)

	var last int64
	for i := 0; i < 200; i++ {
		m := st.Append(ctx, NewMessage("x", i%2 == 0))
		if m.ID <= last {
			t.Fatalf("id %d not greater than previous %d", m.ID, last)
		}
		last = m.ID
	}
}

func TestMessageStoreLoadSeedsAndRepairsIDs(t *testing.T) {
	ctx := context.Background()
	kv := memory.New()
	future := time.Now().Add(24 * time.Hour).UnixMilli()

	_ = kv.Put(ctx, "messages", []byte(
		`[{"id":5,"text":"a","isUser":true,"timestamp":1},`+
			`{"id":5,"text":"b","isUser":false,"timestamp":2},`+
			`{"id":`+strconv.FormatInt(future, 10)+`,"text":"c","isUser":true,"timestamp":3}]`))

	st := NewMessageStore(kv, "messages", nil, nil)
	st.Load(ctx)

	msgs := st.List()
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].ID != 5 || msgs[1].ID == 5 {
		t.Fatalf("duplicate id was not re-stamped: %+v", msgs)
	}
	if msgs[1].Text != "b" {
		t.Fatalf("order not preserved: %+v", msgs)
	}

	next := st.Append(ctx, NewMessage("d", true))
	for _, m := range msgs {
		if next.ID <= m.ID {
			t.Fatalf("new id %d does not exceed restored id %d", next.ID, m.ID)
		}
	}
}

func TestMessageStoreAppendReplacesHeldID(t *testing.T) {
	ctx := context.Background()
	st := NewMessageStore(memory.New(), "messages", nil, nil)

	first := st.Append(ctx, Message{ID: 10, Text: "a", IsUser: true, Timestamp: 1})
	second := st.Append(ctx, Message{ID: 10, Text: "b", IsUser: true, Timestamp: 2})

	if first.ID != 10 {
		t.Fatalf("expected explicit id to be kept, got %d", first.ID)
	}
	if second.ID == first.ID {
		t.Fatal("colliding id was not replaced")
	}
	if st.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", st.Len())
	}
}
