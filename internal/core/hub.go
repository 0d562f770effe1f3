package core

import (
	"context"

	"github.com/rs/zerolog"

	applog "github.com/vovakirdan/grammarchat-server/internal/log"
)

// Hub fans events out to every registered client. Run must be started
// before anything publishes to it; a nil *Hub silently drops events.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	events     chan Event
	done       chan struct{}
	clients    map[*Client]struct{}
	log        *zerolog.Logger
}

// NewHub creates a hub. Call Run to start delivering events.
func NewHub(logger *zerolog.Logger) *Hub {
	if logger == nil {
		logger = applog.Nop()
	}
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		events:     make(chan Event, 64),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		log:        logger,
	}
}

// Run delivers events until ctx is cancelled, then closes every client's channel.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.clients[c] = struct{}{}
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.Events)
			}
		case ev := <-h.events:
			h.broadcast(ev)
		case <-ctx.Done():
			for c := range h.clients {
				delete(h.clients, c)
				close(c.Events)
			}
			return
		}
	}
}

func (h *Hub) broadcast(ev Event) {
	for c := range h.clients {
		select {
		case c.Events <- ev:
		default:
			// A client that cannot keep up is disconnected rather than stalling everyone.
			h.log.Warn().Str("client_id", c.ID).Str("event", ev.Kind.String()).Msg("dropping slow client")
			delete(h.clients, c)
			close(c.Events)
		}
	}
}

// RegisterClient subscribes c. If the hub has stopped, c.Events is closed immediately.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.Events)
	}
}

// UnregisterClient unsubscribes c and closes its channel.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues ev for delivery.
func (h *Hub) Publish(ev Event) {
	if h == nil {
		return
	}
	select {
	case h.events <- ev:
	case <-h.done:
	}
}
