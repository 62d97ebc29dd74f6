package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	InboundTypeJoin       = "join"
	InboundTypeLeave      = "leave"
	InboundTypeMsg        = "message"
	InboundTypeTyping     = "typing"
	InboundTypeStopTyping = "stop_typing"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"
)

// RoomData addresses a room-scoped request (join, leave, typing).
type RoomData struct {
	Room string `json:"room"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage carries one chat message to room members.
type EventMessage struct {
	Room        string `json:"room"`
	Username    string `json:"username"`
	Text        string `json:"text"`
	Timestamp   int64  `json:"timestamp"`
	AvatarColor string `json:"avatar_color,omitempty"`
}

// EventUserJoined notifies that a user joined a room.
type EventUserJoined struct {
	Room     string   `json:"room"`
	Username string   `json:"username"`
	Members  []string `json:"members"`
}

// EventUserLeft notifies that a user left a room.
type EventUserLeft struct {
	Room     string   `json:"room"`
	Username string   `json:"username"`
	Members  []string `json:"members"`
}

// EventTyping notifies that a user started typing in a room.
type EventTyping struct {
	Room     string `json:"room"`
	Username string `json:"username"`
}

// EventStopTyping notifies that typing stopped in a room.
type EventStopTyping struct {
	Room string `json:"room"`
}

// EventRoomRoster delivers the current member list to a joining client.
type EventRoomRoster struct {
	Room    string   `json:"room"`
	Members []string `json:"members"`
}

// EventHistory delivers recent room messages, oldest first.
type EventHistory struct {
	Room     string         `json:"room"`
	Messages []EventMessage `json:"messages"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
