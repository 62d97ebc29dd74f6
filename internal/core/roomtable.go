package core

import (
	"sort"
	"sync"
)

// RoomTable tracks live room membership by connection id. It is the sole
// source of truth for who receives a broadcast; membership is never derived
// from the transport layer. Rooms are created lazily on first join and
// persist empty once everyone leaves.
type RoomTable struct {
	mu    sync.Mutex
	rooms map[string]map[string]struct{} // room name -> set of conn ids
}

// NewRoomTable constructs an empty table.
func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: make(map[string]map[string]struct{})}
}

// Join adds the connection to the room, creating the room if absent, and
// returns the post-join membership snapshot. Joining a room the connection
// is already in is an idempotent success (reconnecting tabs must not crash
// the flow); joined reports whether membership actually changed.
func (t *RoomTable) Join(room, connID string) (members []string, joined bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[room]
	if !ok {
		set = make(map[string]struct{})
		t.rooms[room] = set
	}
	_, already := set[connID]
	set[connID] = struct{}{}
	return snapshotSet(set), !already
}

// Leave removes the connection from the room and returns the post-leave
// snapshot. Leaving a room the connection never joined is a no-op.
func (t *RoomTable) Leave(room, connID string) (members []string, left bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[room]
	if !ok {
		return nil, false
	}
	if _, in := set[connID]; !in {
		return snapshotSet(set), false
	}
	delete(set, connID)
	return snapshotSet(set), true
}

// LeaveAll removes the connection from every room it was in and returns the
// post-leave snapshot per affected room. The whole operation happens under
// one lock acquisition, so no concurrent join or leave observes a partial
// result.
func (t *RoomTable) LeaveAll(connID string) map[string][]string {
	t.mu.Lock()
	defer t.mu.Unlock()

	affected := make(map[string][]string)
	for room, set := range t.rooms {
		if _, in := set[connID]; !in {
			continue
		}
		delete(set, connID)
		affected[room] = snapshotSet(set)
	}
	return affected
}

// MembersOf returns a membership snapshot for the room. The snapshot may be
// stale by the time the caller acts on it; the broadcast engine re-snapshots
// under its own room lock.
func (t *RoomTable) MembersOf(room string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	set, ok := t.rooms[room]
	if !ok {
		return nil
	}
	return snapshotSet(set)
}

func snapshotSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
