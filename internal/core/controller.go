package core

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/grammarchat-server/internal/completion"
	applog "github.com/vovakirdan/grammarchat-server/internal/log"
)

// Status is the request lifecycle phase exposed to the presentation layer.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusSubmitting Status = "submitting"
)

// State is a snapshot of the controller for rendering.
type State struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Result is the outcome of one submission.
type Result struct {
	User  Message
	Reply *Message // nil unless the completion succeeded
	Err   error    // completion error, or ErrDiscarded
}

// Request is the pending second phase of a submission.
type Request struct {
	User   Message
	done   chan struct{}
	result Result
}

func newRequest(user Message) *Request {
	return &Request{User: user, done: make(chan struct{})}
}

func (r *Request) finish(res Result) {
	r.result = res
	close(r.done)
}

// Done is closed once the outcome has been applied to the log.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the outcome is applied or ctx ends.
func (r *Request) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return Result{User: r.User}, ctx.Err()
	}
}

// Result returns the outcome if it is already known.
func (r *Request) Result() (Result, bool) {
	select {
	case <-r.done:
		return r.result, true
	default:
		return Result{}, false
	}
}

// Controller turns user submissions into completion calls and keeps the
// single-flight loading and error state.
type Controller struct {
	mu         sync.Mutex
	store      *MessageStore
	client     completion.Client
	hub        *Hub
	log        *zerolog.Logger
	timeout    time.Duration
	status     Status
	errText    string
	generation uint64
	inflight   sync.WaitGroup
}

// NewController wires a controller. timeout bounds each completion call; zero means no bound.
func NewController(st *MessageStore, client completion.Client, hub *Hub, timeout time.Duration, logger *zerolog.Logger) *Controller {
	if logger == nil {
		logger = applog.Nop()
	}
	return &Controller{
		store:   st,
		client:  client,
		hub:     hub,
		log:     logger,
		timeout: timeout,
		status:  StatusIdle,
	}
}

// State returns the current status and display error.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	return State{Status: c.status, Error: c.errText}
}

// Messages returns the current log.
func (c *Controller) Messages() []Message {
	return c.store.List()
}

// Message returns one message from the log.
func (c *Controller) Message(id int64) (Message, bool) {
	return c.store.Get(id)
}

// Submit validates raw, appends it to the log as a user message and starts the
// completion in the background. The returned Request resolves once the
// assistant reply has been appended or the failure recorded.
//
// Empty input yields ErrInputRequired and leaves the log untouched. A submit
// while another request is in flight yields ErrBusy.
func (c *Controller) Submit(ctx context.Context, raw string) (*Request, error) {
	c.mu.Lock()
	if strings.TrimSpace(raw) == "" {
		c.errText = InputRequiredText
		st := c.stateLocked()
		c.mu.Unlock()
		c.publishState(st)
		return nil, ErrInputRequired
	}
	if c.status == StatusSubmitting {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	c.status = StatusSubmitting
	c.errText = ""
	gen := c.generation
	user := c.store.Append(ctx, NewMessage(raw, true))
	st := c.stateLocked()
	c.inflight.Add(1)
	c.mu.Unlock()

	c.publishState(st)

	req := newRequest(user)
	go c.complete(gen, req, raw)
	return req, nil
}

func (c *Controller) complete(gen uint64, req *Request, raw string) {
	defer c.inflight.Done()

	ctx := context.Background()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	started := time.Now()
	text, err := c.client.Complete(ctx, raw)
	elapsed := time.Since(started)

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.log.Info().Int64("user_message_id", req.User.ID).Dur("elapsed", elapsed).Msg("discarding response that arrived after clear")
		req.finish(Result{User: req.User, Err: ErrDiscarded})
		return
	}

	if err != nil {
		c.errText = CompletionFailedText
		c.status = StatusIdle
		st := c.stateLocked()
		c.mu.Unlock()

		c.log.Error().Err(err).
			Str("kind", completion.KindOf(err).String()).
			Int64("user_message_id", req.User.ID).
			Dur("elapsed", elapsed).
			Msg("completion failed")
		req.finish(Result{User: req.User, Err: err})
		c.publishState(st)
		return
	}

	reply := c.store.Append(ctx, NewMessage(text, false))
	c.status = StatusIdle
	c.errText = ""
	st := c.stateLocked()
	c.mu.Unlock()

	c.log.Debug().Int64("user_message_id", req.User.ID).Int64("reply_id", reply.ID).Dur("elapsed", elapsed).Msg("completion succeeded")
	req.finish(Result{User: req.User, Reply: &reply})
	c.publishState(st)
}

// Delete removes one message from the log. Unknown ids are ignored.
func (c *Controller) Delete(ctx context.Context, id int64) bool {
	return c.store.Remove(ctx, id)
}

// Clear empties the log and resets the error. A response still in flight is
// ignored when it arrives, and the controller is immediately idle again.
func (c *Controller) Clear(ctx context.Context) {
	c.mu.Lock()
	c.generation++
	c.status = StatusIdle
	c.errText = ""
	c.store.Clear(ctx)
	st := c.stateLocked()
	c.mu.Unlock()

	c.publishState(st)
}

// Drain waits for in-flight completions to resolve or ctx to end.
func (c *Controller) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) publishState(st State) {
	c.hub.Publish(Event{Kind: EventStateChanged, State: &st})
}
