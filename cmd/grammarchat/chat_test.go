package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
	"github.com/vovakirdan/grammarchat-server/internal/config"
	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/store/memory"
	transporthttp "github.com/vovakirdan/grammarchat-server/internal/transport/http"
)

// syncBuffer lets the chat read loop and the test share one output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func startChatServer(t *testing.T, ctx context.Context) (string, *core.MessageStore) {
	t.Helper()

	logger := zerolog.Nop()
	hub := core.NewHub(&logger)
	go hub.Run(ctx)

	st := core.NewMessageStore(memory.New(), "messages", hub, &logger)
	st.Load(ctx)
	client := completion.Func(func(_ context.Context, text string) (string, error) {
		if text == "helo wrold" {
			return "Hello, world.", nil
		}
		return text + ".", nil
	})
	ctrl := core.NewController(st, client, hub, 5*time.Second, &logger)

	cfg := config.Default()
	ts := httptest.NewServer(transporthttp.NewHandler(ctrl, hub, &cfg, &logger))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws", st
}

func TestChatSession(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addr, st := startChatServer(t, ctx)

	inR, inW := io.Pipe()
	t.Cleanup(func() { _ = inW.Close() })
	out := &syncBuffer{}

	done := make(chan error, 1)
	go func() {
		done <- runChat(ctx, addr, inR, out)
	}()

	contains := func(s string) func() bool {
		return func() bool { return strings.Contains(out.String(), s) }
	}

	_, err := io.WriteString(inW, "helo wrold\n")
	require.NoError(t, err)
	require.Eventually(t, contains("Hello, world."), 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(inW, "   \n")
	require.NoError(t, err)
	require.Eventually(t, contains(core.InputRequiredText), 3*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(inW, "/clear\n")
	require.NoError(t, err)
	require.Eventually(t, contains("conversation cleared"), 3*time.Second, 10*time.Millisecond)
	require.Equal(t, 0, st.Len())

	_, err = io.WriteString(inW, "/quit\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("chat did not exit on /quit")
	}
}

func TestChatShowsHistoryOnConnect(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	addr, st := startChatServer(t, ctx)
	st.Append(ctx, core.NewMessage("from before", true))

	out := &syncBuffer{}
	inR, inW := io.Pipe()
	t.Cleanup(func() { _ = inW.Close() })

	done := make(chan error, 1)
	go func() {
		done <- runChat(ctx, addr, inR, out)
	}()

	require.Eventually(t, func() bool { return strings.Contains(out.String(), "from before") }, 3*time.Second, 10*time.Millisecond)

	_, err := io.WriteString(inW, "/quit\n")
	require.NoError(t, err)
	require.NoError(t, <-done)
}

func TestChatDialFailure(t *testing.T) {
	err := runChat(context.Background(), "ws://127.0.0.1:1/ws", strings.NewReader(""), io.Discard)
	require.ErrorContains(t, err, "dial")
}
