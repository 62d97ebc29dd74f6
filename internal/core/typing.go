package core

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often expired typing entries are collected. Typing
// indicators are human-perceptible state; one second is fine-grained enough.
const sweepInterval = time.Second

type typingEntry struct {
	user     Identity
	deadline time.Time
}

// TypingCoordinator tracks ephemeral per-room "who is typing" state with
// automatic expiry. Absence of an entry means "not typing".
//
// A typing signal broadcasts only on the not-typing -> typing transition;
// refreshes within the TTL are silent to avoid event storms. Entries vanish
// on stop-typing, leave, disconnect, or expiry, and each transition back to
// not-typing emits exactly one stop event.
type TypingCoordinator struct {
	broadcast *BroadcastEngine

	mu     sync.Mutex
	byRoom map[string]map[string]typingEntry
}

// NewTypingCoordinator constructs a coordinator over the broadcast engine.
func NewTypingCoordinator(broadcast *BroadcastEngine) *TypingCoordinator {
	return &TypingCoordinator{
		broadcast: broadcast,
		byRoom:    make(map[string]map[string]typingEntry),
	}
}

// SetTyping records or refreshes the typing deadline for a connection.
func (t *TypingCoordinator) SetTyping(room, connID string, user Identity, ttl time.Duration) {
	now := time.Now()

	t.mu.Lock()
	entries, ok := t.byRoom[room]
	if !ok {
		entries = make(map[string]typingEntry)
		t.byRoom[room] = entries
	}
	prev, present := entries[connID]
	transition := !present || now.After(prev.deadline)
	entries[connID] = typingEntry{user: user, deadline: now.Add(ttl)}
	t.mu.Unlock()

	if transition {
		t.broadcast.Broadcast(room, &Event{Kind: EventTyping, Room: room, User: user}, connID)
	}
}

// ClearTyping removes the entry if present and broadcasts a stop event only
// on an actual typing -> not-typing transition.
func (t *TypingCoordinator) ClearTyping(room, connID string) {
	t.mu.Lock()
	var ent typingEntry
	var present bool
	if entries, ok := t.byRoom[room]; ok {
		if ent, present = entries[connID]; present {
			delete(entries, connID)
		}
	}
	t.mu.Unlock()

	if present {
		t.broadcast.Broadcast(room, &Event{Kind: EventStopTyping, Room: room, User: ent.user}, connID)
	}
}

// Sweep expires entries whose deadline has passed, emitting one stop event
// per expired entry.
func (t *TypingCoordinator) Sweep(now time.Time) {
	type expired struct {
		room   string
		connID string
		user   Identity
	}

	t.mu.Lock()
	var gone []expired
	for room, entries := range t.byRoom {
		for connID, ent := range entries {
			if now.After(ent.deadline) {
				delete(entries, connID)
				gone = append(gone, expired{room: room, connID: connID, user: ent.user})
			}
		}
	}
	t.mu.Unlock()

	for _, e := range gone {
		t.broadcast.Broadcast(e.room, &Event{Kind: EventStopTyping, Room: e.room, User: e.user}, e.connID)
	}
}

// Run drives the expiry sweep until the context is cancelled.
func (t *TypingCoordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			t.Sweep(now)
		case <-ctx.Done():
			return
		}
	}
}
