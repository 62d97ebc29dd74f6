package core

import (
	"time"

	"github.com/galafis/roomcast-server/internal/store"
)

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage notifies clients about a chat message in a room.
	EventMessage EventKind = iota
	// EventUserJoined notifies clients about a user joining a room.
	EventUserJoined
	// EventUserLeft notifies clients about a user leaving a room.
	EventUserLeft
	// EventTyping notifies clients that a user started typing in a room.
	EventTyping
	// EventStopTyping notifies clients that typing in a room stopped.
	EventStopTyping
	// EventRoomRoster delivers the current member list to a client upon joining.
	EventRoomRoster
	// EventHistory delivers recent message history to a client upon joining.
	EventHistory
	// EventError notifies a single client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind      EventKind
	Room      string
	User      Identity
	Text      string
	Timestamp time.Time
	// Members is the post-operation membership snapshot (usernames) for
	// joined/left/roster events.
	Members  []string
	Messages []store.Message // for EventHistory
	Err      *CoreError      // for EventError
}
