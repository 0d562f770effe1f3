package core

import (
	"context"
	"testing"
	"time"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
	"github.com/vovakirdan/grammarchat-server/internal/store/memory"
)

func mustEvent(t *testing.T, ch <-chan Event, kind EventKind) Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				t.Fatalf("event channel closed while waiting for %v", kind)
			}
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return Event{}
		}
	}
}

func mustResult(t *testing.T, req *Request) Result {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res, err := req.Wait(ctx)
	if err != nil {
		t.Fatalf("request did not resolve: %v", err)
	}
	return res
}

// echoClient appends a period to the input, mimicking a corrected sentence.
func echoClient(replies map[string]string) completion.Client {
	return completion.Func(func(_ context.Context, text string) (string, error) {
		if r, ok := replies[text]; ok {
			return r, nil
		}
		return text + ".", nil
	})
}

// gatedClient blocks every call until release is closed.
func gatedClient(release <-chan struct{}, reply string) completion.Client {
	return completion.Func(func(ctx context.Context, _ string) (string, error) {
		select {
		case <-release:
			return reply, nil
		case <-ctx.Done():
			return "", completion.Wrap(completion.KindNetwork, ctx.Err())
		}
	})
}

func newTestController(t *testing.T, client completion.Client, hub *Hub) (*Controller, *MessageStore, *memory.KV) {
	t.Helper()

	kv := memory.New()
	st := NewMessageStore(kv, "messages", hub, nil)
	st.Load(context.Background())
	return NewController(st, client, hub, 0, nil), st, kv
}
