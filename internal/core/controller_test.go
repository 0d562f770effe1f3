package core

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
)

func TestSubmitSuccessScenario(t *testing.T) {
	ctrl, st, _ := newTestController(t, echoClient(map[string]string{"helo wrold": "Hello, world."}), nil)

	req, err := ctrl.Submit(context.Background(), "helo wrold")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.User.Text != "helo wrold" || !req.User.IsUser {
		t.Fatalf("unexpected user message: %+v", req.User)
	}

	res := mustResult(t, req)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Reply == nil || res.Reply.Text != "Hello, world." || res.Reply.IsUser {
		t.Fatalf("unexpected reply: %+v", res.Reply)
	}

	msgs := st.List()
	if len(msgs) != 2 {
		t.Fatalf("expected log length 2, got %d", len(msgs))
	}
	if msgs[0].ID != req.User.ID || msgs[1].ID != res.Reply.ID {
		t.Fatalf("assistant message must follow its user message: %+v", msgs)
	}
	if s := ctrl.State(); s.Status != StatusIdle || s.Error != "" {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestSubmitEmptyInput(t *testing.T) {
	var calls atomic.Int32
	client := completion.Func(func(context.Context, string) (string, error) {
		calls.Add(1)
		return "x", nil
	})
	ctrl, st, kv := newTestController(t, client, nil)

	for _, in := range []string{"", "   ", "\t\n"} {
		req, err := ctrl.Submit(context.Background(), in)
		if !errors.Is(err, ErrInputRequired) {
			t.Fatalf("Submit(%q) error = %v, want ErrInputRequired", in, err)
		}
		if req != nil {
			t.Fatalf("Submit(%q) returned a request", in)
		}
	}

	if st.Len() != 0 {
		t.Fatalf("expected empty log, got %d", st.Len())
	}
	if kv.Writes() != 0 {
		t.Fatalf("expected no persistence writes, got %d", kv.Writes())
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no completion calls, got %d", calls.Load())
	}
	if s := ctrl.State(); s.Status != StatusIdle || s.Error != InputRequiredText {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestSubmitFailureKeepsUserMessage(t *testing.T) {
	client := completion.Func(func(context.Context, string) (string, error) {
		return "", completion.Wrap(completion.KindAuth, errors.New("API key not valid"))
	})
	ctrl, st, _ := newTestController(t, client, nil)

	req, err := ctrl.Submit(context.Background(), "helo")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	res := mustResult(t, req)

	if !errors.Is(res.Err, completion.ErrAuth) {
		t.Fatalf("expected auth kind to be preserved, got %v", res.Err)
	}
	if res.Reply != nil {
		t.Fatalf("no reply expected on failure, got %+v", res.Reply)
	}

	msgs := st.List()
	if len(msgs) != 1 || msgs[0].Text != "helo" || !msgs[0].IsUser {
		t.Fatalf("expected only the user message, got %+v", msgs)
	}
	s := ctrl.State()
	if s.Status != StatusIdle || s.Error != CompletionFailedText {
		t.Fatalf("unexpected state: %+v", s)
	}
}

func TestSubmitSuccessClearsPriorError(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	client := completion.Func(func(context.Context, string) (string, error) {
		if fail.Load() {
			return "", completion.Wrap(completion.KindNetwork, errors.New("timeout"))
		}
		return "Fine.", nil
	})
	ctrl, _, _ := newTestController(t, client, nil)

	req, _ := ctrl.Submit(context.Background(), "one")
	mustResult(t, req)
	if ctrl.State().Error == "" {
		t.Fatal("expected error after failure")
	}

	fail.Store(false)
	req, err := ctrl.Submit(context.Background(), "two")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ctrl.State().Error != "" {
		t.Fatal("submit should clear the previous error immediately")
	}
	mustResult(t, req)
	if s := ctrl.State(); s.Error != "" || s.Status != StatusIdle {
		t.Fatalf("unexpected state after success: %+v", s)
	}
}

func TestSequentialSubmitsKeepOrder(t *testing.T) {
	ctrl, st, _ := newTestController(t, echoClient(map[string]string{"a": "A.", "b": "B."}), nil)

	for _, in := range []string{"a", "b"} {
		req, err := ctrl.Submit(context.Background(), in)
		if err != nil {
			t.Fatalf("submit %q: %v", in, err)
		}
		mustResult(t, req)
	}

	want := []struct {
		text   string
		isUser bool
	}{{"a", true}, {"A.", false}, {"b", true}, {"B.", false}}

	got := st.List()
	if len(got) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(got))
	}
	for i, w := range want {
		if got[i].Text != w.text || got[i].IsUser != w.isUser {
			t.Fatalf("message %d = %+v, want %+v", i, got[i], w)
		}
	}
}

func TestSubmitWhileBusy(t *testing.T) {
	release := make(chan struct{})
	ctrl, st, _ := newTestController(t, gatedClient(release, "Done."), nil)

	req, err := ctrl.Submit(context.Background(), "first")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s := ctrl.State(); s.Status != StatusSubmitting {
		t.Fatalf("expected submitting, got %+v", s)
	}
	if st.Len() != 1 {
		t.Fatalf("user message must be appended before completion resolves, got %d", st.Len())
	}

	if _, err := ctrl.Submit(context.Background(), "second"); !errors.Is(err, ErrBusy) {
		t.Fatalf("expected ErrBusy, got %v", err)
	}
	if st.Len() != 1 {
		t.Fatalf("rejected submit must not append, got %d", st.Len())
	}

	close(release)
	mustResult(t, req)
	if st.Len() != 2 {
		t.Fatalf("expected 2 messages, got %d", st.Len())
	}
}

func TestClearDiscardsInFlightResponse(t *testing.T) {
	release := make(chan struct{})
	ctrl, st, _ := newTestController(t, gatedClient(release, "Late."), nil)

	req, err := ctrl.Submit(context.Background(), "hello")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctrl.Clear(context.Background())
	if s := ctrl.State(); s.Status != StatusIdle || s.Error != "" {
		t.Fatalf("unexpected state after clear: %+v", s)
	}

	close(release)
	res := mustResult(t, req)
	if !errors.Is(res.Err, ErrDiscarded) {
		t.Fatalf("expected ErrDiscarded, got %v", res.Err)
	}
	if st.Len() != 0 {
		t.Fatalf("late reply must not be appended, got %+v", st.List())
	}
}

func TestCompletionTimeout(t *testing.T) {
	never := make(chan struct{})
	defer close(never)

	ctrl, st, _ := newTestController(t, gatedClient(never, ""), nil)
	ctrl.timeout = 20 * time.Millisecond

	req, err := ctrl.Submit(context.Background(), "slow")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	res := mustResult(t, req)
	if !errors.Is(res.Err, completion.ErrNetwork) {
		t.Fatalf("expected network failure, got %v", res.Err)
	}
	if st.Len() != 1 || ctrl.State().Error == "" {
		t.Fatalf("unexpected outcome: log=%d state=%+v", st.Len(), ctrl.State())
	}
}

func TestSubmitIgnoresCallerCancellation(t *testing.T) {
	release := make(chan struct{})
	ctrl, st, _ := newTestController(t, gatedClient(release, "Kept."), nil)

	ctx, cancel := context.WithCancel(context.Background())
	req, err := ctrl.Submit(ctx, "hi")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	cancel()
	close(release)

	res := mustResult(t, req)
	if res.Err != nil || st.Len() != 2 {
		t.Fatalf("request should run to completion: err=%v len=%d", res.Err, st.Len())
	}
}

func TestControllerPublishesEvents(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	hub := NewHub(nil)
	go hub.Run(ctx)

	sub := NewClient("watcher")
	hub.RegisterClient(sub)

	ctrl, _, _ := newTestController(t, echoClient(nil), hub)

	req, err := ctrl.Submit(ctx, "hi")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ev := mustEvent(t, sub.Events, EventMessageAdded)
	if ev.Message == nil || ev.Message.ID != req.User.ID {
		t.Fatalf("expected user message event, got %+v", ev)
	}
	ev = mustEvent(t, sub.Events, EventStateChanged)
	if ev.State.Status != StatusSubmitting {
		t.Fatalf("expected submitting state, got %+v", ev.State)
	}
	ev = mustEvent(t, sub.Events, EventMessageAdded)
	if ev.Message == nil || ev.Message.Text != "hi." {
		t.Fatalf("expected assistant message event, got %+v", ev)
	}
	ev = mustEvent(t, sub.Events, EventStateChanged)
	if ev.State.Status != StatusIdle {
		t.Fatalf("expected idle state, got %+v", ev.State)
	}

	if !ctrl.Delete(ctx, req.User.ID) {
		t.Fatal("expected delete to succeed")
	}
	ev = mustEvent(t, sub.Events, EventMessageDeleted)
	if ev.MessageID != req.User.ID {
		t.Fatalf("unexpected delete event: %+v", ev)
	}

	ctrl.Clear(ctx)
	mustEvent(t, sub.Events, EventMessagesCleared)
}

func TestDrainWaitsForInFlight(t *testing.T) {
	release := make(chan struct{})
	ctrl, _, _ := newTestController(t, gatedClient(release, "ok"), nil)

	if _, err := ctrl.Submit(context.Background(), "x"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	short, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := ctrl.Drain(short); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected drain to time out while blocked, got %v", err)
	}

	close(release)
	if err := ctrl.Drain(context.Background()); err != nil {
		t.Fatalf("drain: %v", err)
	}
}

func TestRequestDoneAndResult(t *testing.T) {
	release := make(chan struct{})
	ctrl, _, _ := newTestController(t, gatedClient(release, "Ready."), nil)

	req, err := ctrl.Submit(context.Background(), "ready")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, ok := req.Result(); ok {
		t.Fatal("result must not be available before the completion resolves")
	}

	close(release)
	select {
	case <-req.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("request did not resolve")
	}

	res, ok := req.Result()
	if !ok {
		t.Fatal("result must be available once done is closed")
	}
	if res.Err != nil || res.Reply == nil || res.Reply.Text != "Ready." || res.User.ID != req.User.ID {
		t.Fatalf("unexpected result: %+v", res)
	}
}
