package core

import "sync"

// PresenceEntry is a read-only snapshot of one live connection.
type PresenceEntry struct {
	ConnID   string
	Identity Identity
	Rooms    []string
}

type presenceRecord struct {
	conn     Conn
	identity Identity
	rooms    map[string]struct{}
}

// PresenceRegistry is the authoritative source of "who is online". It maps
// connection ids to identities and back. It has no side effects beyond its
// own maps; the session manager coordinates it with the RoomTable.
type PresenceRegistry struct {
	mu     sync.RWMutex
	byConn map[string]*presenceRecord
	byUser map[int64]map[string]struct{} // identity id -> set of conn ids
}

// NewPresenceRegistry constructs an empty registry.
func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{
		byConn: make(map[string]*presenceRecord),
		byUser: make(map[int64]map[string]struct{}),
	}
}

// Register records a freshly authenticated connection. It fails with
// ErrAlreadyRegistered if the connection id is already present.
func (r *PresenceRegistry) Register(conn Conn, identity Identity) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := conn.ID()
	if _, exists := r.byConn[id]; exists {
		return ErrAlreadyRegistered
	}

	r.byConn[id] = &presenceRecord{
		conn:     conn,
		identity: identity,
		rooms:    make(map[string]struct{}),
	}

	conns, ok := r.byUser[identity.ID]
	if !ok {
		conns = make(map[string]struct{})
		r.byUser[identity.ID] = conns
	}
	conns[id] = struct{}{}
	return nil
}

// Deregister removes a connection and returns its final entry. It is
// idempotent: a second call for the same id returns ok=false and no error.
func (r *PresenceRegistry) Deregister(connID string) (PresenceEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byConn[connID]
	if !ok {
		return PresenceEntry{}, false
	}
	delete(r.byConn, connID)

	if conns, ok := r.byUser[rec.identity.ID]; ok {
		delete(conns, connID)
		if len(conns) == 0 {
			delete(r.byUser, rec.identity.ID)
		}
	}
	return snapshotRecord(connID, rec), true
}

// Lookup returns a snapshot of the entry for a connection id.
func (r *PresenceRegistry) Lookup(connID string) (PresenceEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byConn[connID]
	if !ok {
		return PresenceEntry{}, false
	}
	return snapshotRecord(connID, rec), true
}

// ConnectionsFor returns the ids of all live connections owned by an identity.
// A single user may hold several (multiple devices or tabs).
func (r *PresenceRegistry) ConnectionsFor(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]string, 0, len(r.byUser[userID]))
	for id := range r.byUser[userID] {
		conns = append(conns, id)
	}
	return conns
}

// Conn resolves a connection id to its transport handle.
func (r *PresenceRegistry) Conn(connID string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byConn[connID]
	if !ok {
		return nil, false
	}
	return rec.conn, true
}

// MarkJoined records room membership on the presence entry. Returns false if
// the connection is no longer registered.
func (r *PresenceRegistry) MarkJoined(connID, room string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byConn[connID]
	if !ok {
		return false
	}
	rec.rooms[room] = struct{}{}
	return true
}

// MarkLeft removes room membership from the presence entry.
func (r *PresenceRegistry) MarkLeft(connID, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.byConn[connID]; ok {
		delete(rec.rooms, room)
	}
}

// IsMember reports whether the connection has joined the room.
func (r *PresenceRegistry) IsMember(connID, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byConn[connID]
	if !ok {
		return false
	}
	_, in := rec.rooms[room]
	return in
}

func snapshotRecord(connID string, rec *presenceRecord) PresenceEntry {
	rooms := make([]string, 0, len(rec.rooms))
	for room := range rec.rooms {
		rooms = append(rooms, room)
	}
	return PresenceEntry{ConnID: connID, Identity: rec.identity, Rooms: rooms}
}
