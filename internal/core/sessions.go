package core

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionsConfig carries the tunables of the session manager.
type SessionsConfig struct {
	// TypingTTL is how long a typing indicator lives without a refresh.
	TypingTTL time.Duration
	// MaxMessageLen bounds inbound message text in runes; longer text is
	// truncated.
	MaxMessageLen int
	// HistoryLimit is how many recent messages a joining connection receives.
	HistoryLimit int
}

// Sessions orchestrates the lifecycle of every connection:
// connect -> authenticate -> register -> (join/leave)* -> disconnect.
//
// It is the single writer of registry and room-table mutations: every
// mutation happens under one mutex, which is the ordering discipline that
// keeps the registry's joinedRooms and the table's membership in agreement.
// Handlers for a connection that has already been deregistered are silent
// no-ops, never errors.
type Sessions struct {
	registry  *PresenceRegistry
	rooms     *RoomTable
	broadcast *BroadcastEngine
	typing    *TypingCoordinator
	auth      Authenticator
	messages  MessageStore
	catalogue RoomCatalogue
	cfg       SessionsConfig
	log       *zerolog.Logger

	// mu serializes all registry and room-table mutations.
	mu sync.Mutex
}

// NewSessions wires the session manager over its collaborators and registers
// itself as the broadcast engine's failure sink.
func NewSessions(
	registry *PresenceRegistry,
	rooms *RoomTable,
	broadcast *BroadcastEngine,
	typing *TypingCoordinator,
	auth Authenticator,
	messages MessageStore,
	catalogue RoomCatalogue,
	cfg SessionsConfig,
	logger *zerolog.Logger,
) *Sessions {
	s := &Sessions{
		registry:  registry,
		rooms:     rooms,
		broadcast: broadcast,
		typing:    typing,
		auth:      auth,
		messages:  messages,
		catalogue: catalogue,
		cfg:       cfg,
		log:       logger,
	}

	// A connection that cannot accept a send is treated as disconnected.
	broadcast.OnSendFailure(s.Disconnect)
	return s
}

// Run drives background work (typing expiry) until ctx is cancelled.
func (s *Sessions) Run(ctx context.Context) {
	s.typing.Run(ctx)
}

// Connect authenticates the handshake credential and registers the
// connection. On auth failure the connection is closed and never registered.
func (s *Sessions) Connect(ctx context.Context, conn Conn, token string) (Identity, error) {
	identity, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		_ = conn.Close()
		return Identity{}, fmt.Errorf("authenticate: %w", err)
	}

	s.mu.Lock()
	err = s.registry.Register(conn, identity)
	s.mu.Unlock()
	if err != nil {
		_ = conn.Close()
		return Identity{}, fmt.Errorf("register: %w", err)
	}

	s.log.Info().
		Str("conn_id", conn.ID()).
		Str("user", identity.Username).
		Msg("connection registered")
	return identity, nil
}

// HandleJoin subscribes the connection to a room, announces the join to the
// room (self included), and sends the joining connection its roster and the
// recent message history.
func (s *Sessions) HandleJoin(ctx context.Context, connID, room string) {
	entry, ok := s.registry.Lookup(connID)
	if !ok {
		return
	}

	if exists, err := s.catalogue.RoomExists(ctx, room); err != nil {
		s.log.Warn().Err(err).Str("room", room).Msg("room catalogue lookup failed")
	} else if !exists {
		s.sendTo(connID, &Event{
			Kind: EventError,
			Room: room,
			Err:  coreError(ErrCodeRoomNotFound, "unknown room"),
		})
		return
	}

	s.mu.Lock()
	if !s.registry.MarkJoined(connID, room) {
		// Deregistered while the catalogue call was in flight.
		s.mu.Unlock()
		return
	}
	members, joined := s.rooms.Join(room, connID)
	names := s.usernames(members)
	s.mu.Unlock()

	if joined {
		s.broadcast.Broadcast(room, &Event{
			Kind:    EventUserJoined,
			Room:    room,
			User:    entry.Identity,
			Members: names,
		}, "")
	}

	s.sendTo(connID, &Event{Kind: EventRoomRoster, Room: room, Members: names})

	if history, err := s.messages.RecentMessages(ctx, room, s.cfg.HistoryLimit); err != nil {
		s.log.Warn().Err(err).Str("room", room).Msg("load history failed")
	} else if len(history) > 0 {
		s.sendTo(connID, &Event{Kind: EventHistory, Room: room, Messages: history})
	}
}

// HandleLeave unsubscribes the connection from a room and announces the
// departure with the post-leave roster. Leaving a room never joined is a
// silent no-op.
func (s *Sessions) HandleLeave(ctx context.Context, connID, room string) {
	entry, ok := s.registry.Lookup(connID)
	if !ok {
		return
	}

	s.mu.Lock()
	members, left := s.rooms.Leave(room, connID)
	s.registry.MarkLeft(connID, room)
	names := s.usernames(members)
	s.mu.Unlock()

	if !left {
		return
	}

	s.typing.ClearTyping(room, connID)
	s.broadcast.Broadcast(room, &Event{
		Kind:    EventUserLeft,
		Room:    room,
		User:    entry.Identity,
		Members: names,
	}, "")
}

// HandleSend persists a message and broadcasts it to the room. A connection
// that is not a member of the room is ignored. A store failure surfaces to
// the sender only; the room never observes a partial effect.
func (s *Sessions) HandleSend(ctx context.Context, connID, room, text string) {
	entry, ok := s.registry.Lookup(connID)
	if !ok {
		return
	}
	if !s.registry.IsMember(connID, room) {
		return
	}
	if text == "" {
		return
	}
	if runes := []rune(text); len(runes) > s.cfg.MaxMessageLen {
		text = string(runes[:s.cfg.MaxMessageLen])
	}

	ts, err := s.messages.AppendMessage(ctx, room, entry.Identity.ID, entry.Identity.Username, text)
	if err != nil {
		s.log.Error().Err(err).
			Str("room", room).
			Str("user", entry.Identity.Username).
			Msg("append message failed")
		s.sendTo(connID, &Event{
			Kind: EventError,
			Room: room,
			Err:  coreError(ErrCodeStoreFailed, "message could not be saved"),
		})
		return
	}

	s.broadcast.Broadcast(room, &Event{
		Kind:      EventMessage,
		Room:      room,
		User:      entry.Identity,
		Text:      text,
		Timestamp: ts,
	}, "")
}

// HandleTyping records a typing signal for the connection's room.
func (s *Sessions) HandleTyping(connID, room string) {
	entry, ok := s.registry.Lookup(connID)
	if !ok || !s.registry.IsMember(connID, room) {
		return
	}
	s.typing.SetTyping(room, connID, entry.Identity, s.cfg.TypingTTL)
}

// HandleStopTyping clears a typing signal for the connection's room.
func (s *Sessions) HandleStopTyping(connID, room string) {
	if _, ok := s.registry.Lookup(connID); !ok {
		return
	}
	s.typing.ClearTyping(room, connID)
}

// Disconnect removes the connection from every room, announces each
// departure with the post-leave roster, clears its typing state, and
// deregisters it. It is idempotent and safe to call concurrently with any
// other handler for the same connection; the second caller finds the
// registry entry gone and does nothing.
func (s *Sessions) Disconnect(connID string) {
	s.mu.Lock()
	conn, _ := s.registry.Conn(connID)
	entry, ok := s.registry.Deregister(connID)
	if !ok {
		s.mu.Unlock()
		return
	}
	affected := s.rooms.LeaveAll(connID)
	rosters := make(map[string][]string, len(affected))
	for room, members := range affected {
		rosters[room] = s.usernames(members)
	}
	s.mu.Unlock()

	for room := range affected {
		s.typing.ClearTyping(room, connID)
	}

	// The connection is already out of every snapshot, so it can never
	// receive the departure notice it caused.
	for room, names := range rosters {
		s.broadcast.Broadcast(room, &Event{
			Kind:    EventUserLeft,
			Room:    room,
			User:    entry.Identity,
			Members: names,
		}, connID)
	}

	if conn != nil {
		_ = conn.Close()
	}

	s.log.Info().
		Str("conn_id", connID).
		Str("user", entry.Identity.Username).
		Int("rooms", len(affected)).
		Msg("connection deregistered")
}

// sendTo delivers an event to a single connection; a failed send is routed
// through the disconnect path like any broadcast failure.
func (s *Sessions) sendTo(connID string, ev *Event) {
	conn, ok := s.registry.Conn(connID)
	if !ok {
		return
	}
	if err := conn.Send(ev); err != nil {
		s.log.Warn().Err(err).Str("conn_id", connID).Msg("direct send failed")
		go s.Disconnect(connID)
	}
}

// usernames resolves connection ids to a sorted, deduplicated username list.
// A user with several live connections appears once.
func (s *Sessions) usernames(connIDs []string) []string {
	seen := make(map[string]struct{}, len(connIDs))
	names := make([]string, 0, len(connIDs))
	for _, id := range connIDs {
		entry, ok := s.registry.Lookup(id)
		if !ok {
			continue
		}
		if _, dup := seen[entry.Identity.Username]; dup {
			continue
		}
		seen[entry.Identity.Username] = struct{}{}
		names = append(names, entry.Identity.Username)
	}
	sort.Strings(names)
	return names
}
