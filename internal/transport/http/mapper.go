package http

import (
	"context"
	"encoding/json"

	"github.com/galafis/roomcast-server/internal/core"
	"github.com/galafis/roomcast-server/internal/proto"
)

// dispatch decodes one inbound frame and routes it to the session manager.
// A malformed payload yields a protocol error for the client; only a
// decoding failure of the envelope itself is fatal to the connection.
func (h *WSHandler) dispatch(ctx context.Context, connID string, inbound proto.Inbound) (*proto.Error, error) {
	switch inbound.Type {
	case proto.InboundTypeJoin:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.Room == "" {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		h.sessions.HandleJoin(ctx, connID, data.Room)
	case proto.InboundTypeLeave:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.Room == "" {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		h.sessions.HandleLeave(ctx, connID, data.Room)
	case proto.InboundTypeMsg:
		var data proto.MsgData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		if data.Room == "" {
			return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "room is required"}, nil
		}
		h.sessions.HandleSend(ctx, connID, data.Room, data.Text)
	case proto.InboundTypeTyping:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		h.sessions.HandleTyping(connID, data.Room)
	case proto.InboundTypeStopTyping:
		var data proto.RoomData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, err
		}
		h.sessions.HandleStopTyping(connID, data.Room)
	default:
		return &proto.Error{Code: "invalid_message", Msg: "unknown message type"}, nil
	}
	return nil, nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventMessage:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "message",
			Data: proto.EventMessage{
				Room:        event.Room,
				Username:    event.User.Username,
				Text:        event.Text,
				Timestamp:   event.Timestamp.Unix(),
				AvatarColor: event.User.AvatarColor,
			},
		}
	case core.EventUserJoined:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "user_joined",
			Data: proto.EventUserJoined{
				Room:     event.Room,
				Username: event.User.Username,
				Members:  event.Members,
			},
		}
	case core.EventUserLeft:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "user_left",
			Data: proto.EventUserLeft{
				Room:     event.Room,
				Username: event.User.Username,
				Members:  event.Members,
			},
		}
	case core.EventTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "typing",
			Data: proto.EventTyping{
				Room:     event.Room,
				Username: event.User.Username,
			},
		}
	case core.EventStopTyping:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "stop_typing",
			Data:  proto.EventStopTyping{Room: event.Room},
		}
	case core.EventRoomRoster:
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "room_roster",
			Data: proto.EventRoomRoster{
				Room:    event.Room,
				Members: event.Members,
			},
		}
	case core.EventHistory:
		messages := make([]proto.EventMessage, 0, len(event.Messages))
		for _, msg := range event.Messages {
			messages = append(messages, proto.EventMessage{
				Room:        msg.Room,
				Username:    msg.Username,
				Text:        msg.Text,
				Timestamp:   msg.CreatedAt.Unix(),
				AvatarColor: msg.AvatarColor,
			})
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeEvent,
			Event: "history",
			Data: proto.EventHistory{
				Room:     event.Room,
				Messages: messages,
			},
		}
	case core.EventError:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Err.Code, Msg: event.Err.Message},
		}
	default:
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: "internal", Msg: "unknown event"},
		}
	}
}
