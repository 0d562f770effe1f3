package http

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
	"github.com/vovakirdan/grammarchat-server/internal/config"
	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/store/memory"
)

type testEnv struct {
	ts    *httptest.Server
	ctrl  *core.Controller
	store *core.MessageStore
	hub   *core.Hub
}

// startTestServer wires a controller backed by an in-memory KV and the given client.
func startTestServer(t *testing.T, client completion.Client) *testEnv {
	t.Helper()

	disabledLogger := zerolog.Nop()

	hub := core.NewHub(&disabledLogger)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	st := core.NewMessageStore(memory.New(), "messages", hub, &disabledLogger)
	st.Load(ctx)
	ctrl := core.NewController(st, client, hub, 5*time.Second, &disabledLogger)

	cfg := config.Config{
		Addr:              ":0",
		ReadHeaderTimeout: time.Second,
		ShutdownTimeout:   time.Second,
		MaxMessageBytes:   1 << 16,
	}

	server := NewServer(ctrl, hub, &cfg, &disabledLogger)
	ts := httptest.NewServer(server.Handler)
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, ctrl: ctrl, store: st, hub: hub}
}

func correctingClient() completion.Client {
	return completion.Func(func(_ context.Context, text string) (string, error) {
		if text == "helo wrold" {
			return "Hello, world.", nil
		}
		return text + ".", nil
	})
}

func failingClient(kind completion.Kind) completion.Client {
	return completion.Func(func(context.Context, string) (string, error) {
		return "", completion.Wrapf(kind, "upstream said no")
	})
}

// blockingClient holds every call until release is closed.
func blockingClient(release <-chan struct{}) completion.Client {
	return completion.Func(func(ctx context.Context, text string) (string, error) {
		select {
		case <-release:
			return text + ".", nil
		case <-ctx.Done():
			return "", completion.Wrap(completion.KindNetwork, ctx.Err())
		}
	})
}
