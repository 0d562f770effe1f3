package http

import (
	"encoding/json"

	"github.com/vovakirdan/grammarchat-server/internal/core"
	"github.com/vovakirdan/grammarchat-server/internal/proto"
)

// intent is a decoded inbound WebSocket request.
type intent struct {
	kind string
	text string
	id   int64
}

func inboundToIntent(inbound proto.Inbound) (*intent, *proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeSubmit:
		var data proto.SubmitData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		return &intent{kind: inbound.Type, text: data.Text}, nil, nil
	case proto.InboundTypeDelete:
		var data proto.DeleteData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, nil, err
		}
		if data.ID <= 0 {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "id is required"}, nil
		}
		return &intent{kind: inbound.Type, id: data.ID}, nil, nil
	case proto.InboundTypeClear:
		return &intent{kind: inbound.Type}, nil, nil
	default:
		return nil, &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
}

func messageToProto(m core.Message) proto.Message {
	return proto.Message{
		ID:        m.ID,
		Text:      m.Text,
		IsUser:    m.IsUser,
		Timestamp: m.Timestamp,
	}
}

func messagesToProto(msgs []core.Message) []proto.Message {
	out := make([]proto.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageToProto(m))
	}
	return out
}

func stateToProto(s core.State) proto.State {
	return proto.State{Status: string(s.Status), Error: s.Error}
}

func snapshotOutbound(msgs []core.Message, st core.State) proto.Outbound {
	return proto.Outbound{
		Type:  proto.OutboundTypeEvent,
		Event: proto.EventSnapshot,
		Data: proto.Snapshot{
			Protocol: proto.ProtocolVersion,
			Messages: messagesToProto(msgs),
			State:    stateToProto(st),
		},
	}
}

func errorOutbound(err error) proto.Outbound {
	ce := core.ToCoreError(err)
	return proto.Outbound{
		Type:  proto.OutboundTypeError,
		Error: &proto.Error{Code: ce.Code, Msg: ce.Message},
	}
}

func outboundFromEvent(event core.Event) proto.Outbound {
	out := proto.Outbound{Type: proto.OutboundTypeEvent, Event: event.Kind.String()}
	switch event.Kind {
	case core.EventMessageAdded:
		if event.Message != nil {
			out.Data = messageToProto(*event.Message)
		}
	case core.EventMessageDeleted:
		out.Data = proto.EventMessageDeleted{ID: event.MessageID}
	case core.EventStateChanged:
		if event.State != nil {
			out.Data = stateToProto(*event.State)
		}
	}
	return out
}
