package http

import (
	"context"
	"errors"
	"io"
	stdhttp "net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/proto"
)

// WSHandler upgrades HTTP connections and bridges them to the controller and hub.
type WSHandler struct {
	ctrl      *core.Controller
	hub       *core.Hub
	readLimit int64
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. readLimit caps inbound frames; zero keeps the library default.
func NewWSHandler(ctrl *core.Controller, hub *core.Hub, readLimit int64, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{ctrl: ctrl, hub: hub, readLimit: readLimit, log: logger}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error")

	if h.readLimit > 0 {
		conn.SetReadLimit(h.readLimit)
	}

	client := core.NewClient(uuid.NewString())
	h.hub.RegisterClient(client)
	defer h.hub.UnregisterClient(client)

	log := h.log.With().Str("client_id", client.ID).Logger()
	log.Debug().Msg("ws client connected")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Replies to intents are written by the write loop so only one goroutine writes.
	replies := make(chan proto.Outbound, 8)

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, client, replies, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, replies, &log)
	}()

	err = <-errCh
	cancel()
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	conn.Close(status, reason)
}

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, replies chan<- proto.Outbound, log *zerolog.Logger) error {
	for {
		var inbound proto.Inbound
		if err := wsjson.Read(ctx, conn, &inbound); err != nil {
			log.Debug().Err(err).Msg("read ws inbound")
			return err
		}

		in, protoErr, err := inboundToIntent(inbound)
		if err != nil {
			log.Warn().Err(err).Str("type", inbound.Type).Msg("failed to map inbound")
			return err
		}
		if protoErr != nil {
			if !sendReply(ctx, replies, proto.Outbound{Type: proto.OutboundTypeError, Error: protoErr}) {
				return ctx.Err()
			}
			continue
		}

		if reply, ok := h.apply(ctx, in, log); ok {
			if !sendReply(ctx, replies, reply) {
				return ctx.Err()
			}
		}
	}
}

// apply runs an intent against the controller. Results reach the client as
// hub events; only rejected intents produce a direct reply.
func (h *WSHandler) apply(ctx context.Context, in *intent, log *zerolog.Logger) (proto.Outbound, bool) {
	switch in.kind {
	case proto.InboundTypeSubmit:
		// The request outlives this connection once accepted.
		if _, err := h.ctrl.Submit(context.WithoutCancel(ctx), in.text); err != nil {
			log.Debug().Err(err).Msg("submit rejected")
			return errorOutbound(err), true
		}
	case proto.InboundTypeDelete:
		if !h.ctrl.Delete(context.WithoutCancel(ctx), in.id) {
			return errorOutbound(core.ErrNotFound), true
		}
	case proto.InboundTypeClear:
		h.ctrl.Clear(context.WithoutCancel(ctx))
	}
	return proto.Outbound{}, false
}

func sendReply(ctx context.Context, replies chan<- proto.Outbound, out proto.Outbound) bool {
	select {
	case replies <- out:
		return true
	case <-ctx.Done():
		return false
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, replies <-chan proto.Outbound, log *zerolog.Logger) error {
	// The client is registered before the snapshot is taken, so an append in
	// between arrives both ways. inSnapshot filters those out.
	msgs := h.ctrl.Messages()
	inSnapshot := make(map[int64]struct{}, len(msgs))
	for _, m := range msgs {
		inSnapshot[m.ID] = struct{}{}
	}
	if err := wsjson.Write(ctx, conn, snapshotOutbound(msgs, h.ctrl.State())); err != nil {
		log.Error().Err(err).Msg("write ws snapshot")
		return err
	}

	for {
		var out proto.Outbound
		select {
		case event, ok := <-client.Events:
			if !ok {
				return nil
			}
			if skipSnapshotted(inSnapshot, event) {
				continue
			}
			out = outboundFromEvent(event)
		case out = <-replies:
		case <-ctx.Done():
			return ctx.Err()
		}

		if err := wsjson.Write(ctx, conn, out); err != nil {
			log.Error().Err(err).Msg("write ws event")
			return err
		}
	}
}

// skipSnapshotted reports whether event re-announces a message the client
// already received in its snapshot. Ids are unique, so each is skipped once.
func skipSnapshotted(inSnapshot map[int64]struct{}, event core.Event) bool {
	if len(inSnapshot) == 0 || event.Kind != core.EventMessageAdded || event.Message == nil {
		return false
	}
	if _, ok := inSnapshot[event.Message.ID]; !ok {
		return false
	}
	delete(inSnapshot, event.Message.ID)
	return true
}
