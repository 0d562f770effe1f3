package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/proto"
)

// inboundEnvelope mirrors proto.Outbound with undecoded data.
type inboundEnvelope struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func newChatCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Interactive terminal client for a running server",
		Long: "Type a sentence and press Enter to have it corrected.\n" +
			"Commands: /delete <id>, /clear, /quit.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runChat(cmd.Context(), addr, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "ws://localhost:8080/ws", "WebSocket address")

	return cmd
}

func runChat(parent context.Context, addr string, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	fmt.Fprintf(out, "Connected to %s\n", addr)
	fmt.Fprintln(out, renderNote("Type a sentence and press Enter. /delete <id>, /clear, /quit. Ctrl+C to exit."))

	go func() {
		defer cancel()
		readLoop(ctx, conn, out)
	}()

	writeLoop(ctx, conn, in, out)

	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn, out io.Writer) {
	for {
		var env inboundEnvelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			// Treat expected shutdowns quietly.
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			fmt.Fprintln(out, renderError(fmt.Sprintf("read: %v", err)))
			return
		}
		printEnvelope(out, env)
	}
}

func printEnvelope(out io.Writer, env inboundEnvelope) {
	if env.Type == proto.OutboundTypeError {
		if env.Error != nil {
			fmt.Fprintln(out, renderError(env.Error.Msg))
		}
		return
	}

	switch env.Event {
	case proto.EventSnapshot:
		var snap proto.Snapshot
		if err := json.Unmarshal(env.Data, &snap); err != nil {
			fmt.Fprintln(out, renderError(fmt.Sprintf("decode snapshot: %v", err)))
			return
		}
		for _, m := range snap.Messages {
			fmt.Fprintf(out, "%s\n\n", renderMessage(fromProto(m)))
		}
		if snap.State.Error != "" {
			fmt.Fprintln(out, renderError(snap.State.Error))
		}
	case core.EventMessageAdded.String():
		var m proto.Message
		if err := json.Unmarshal(env.Data, &m); err != nil {
			fmt.Fprintln(out, renderError(fmt.Sprintf("decode message: %v", err)))
			return
		}
		fmt.Fprintf(out, "%s\n\n", renderMessage(fromProto(m)))
	case core.EventMessageDeleted.String():
		var d proto.EventMessageDeleted
		if err := json.Unmarshal(env.Data, &d); err == nil {
			fmt.Fprintln(out, renderNote(fmt.Sprintf("message #%d deleted", d.ID)))
		}
	case core.EventMessagesCleared.String():
		fmt.Fprintln(out, renderNote("conversation cleared"))
	case core.EventStateChanged.String():
		var st proto.State
		if err := json.Unmarshal(env.Data, &st); err != nil {
			return
		}
		switch {
		case st.Error != "":
			fmt.Fprintln(out, renderError(st.Error))
		case st.Status == string(core.StatusSubmitting):
			fmt.Fprintln(out, renderNote("correcting..."))
		}
	}
}

func writeLoop(ctx context.Context, conn *websocket.Conn, in io.Reader, out io.Writer) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			inbound, quit, err := parseLine(line)
			if quit {
				return
			}
			if err != nil {
				fmt.Fprintln(out, renderError(err.Error()))
				continue
			}
			if inbound == nil {
				continue
			}
			if err := wsjson.Write(ctx, conn, inbound); err != nil {
				fmt.Fprintln(out, renderError(fmt.Sprintf("send: %v", err)))
				return
			}
		}
	}
}

// parseLine turns a line of input into an inbound intent. Blank lines are
// sent as submits so the server reports the validation error.
func parseLine(line string) (*proto.Inbound, bool, error) {
	trimmed := strings.TrimSpace(line)

	switch {
	case trimmed == "/quit":
		return nil, true, nil
	case trimmed == "/clear":
		return &proto.Inbound{Type: proto.InboundTypeClear}, false, nil
	case strings.HasPrefix(trimmed, "/delete"):
		arg := strings.TrimSpace(strings.TrimPrefix(trimmed, "/delete"))
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil || id <= 0 {
			return nil, false, fmt.Errorf("usage: /delete <id>")
		}
		data, err := json.Marshal(proto.DeleteData{ID: id})
		if err != nil {
			return nil, false, err
		}
		return &proto.Inbound{Type: proto.InboundTypeDelete, Data: data}, false, nil
	default:
		data, err := json.Marshal(proto.SubmitData{Text: line})
		if err != nil {
			return nil, false, err
		}
		return &proto.Inbound{Type: proto.InboundTypeSubmit, Data: data}, false, nil
	}
}

func fromProto(m proto.Message) core.Message {
	return core.Message{ID: m.ID, Text: m.Text, IsUser: m.IsUser, Timestamp: m.Timestamp}
}
