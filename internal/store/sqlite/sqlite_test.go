package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/galafis/roomcast-server/internal/store"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	st, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestUserRoundTrip(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	created, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash", "#667eea")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.ID == 0 || created.Username != "alice" || created.AvatarColor != "#667eea" {
		t.Fatalf("unexpected user: %+v", created)
	}

	byName, err := st.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("get by username: %v", err)
	}
	if byName.ID != created.ID || byName.Email != "alice@example.com" {
		t.Fatalf("unexpected user: %+v", byName)
	}

	byID, err := st.GetUserByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID.Username != "alice" {
		t.Fatalf("unexpected user: %+v", byID)
	}

	if err := st.TouchLastSeen(ctx, created.ID); err != nil {
		t.Fatalf("touch last seen: %v", err)
	}
}

func TestUserNotFound(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.GetUserByUsername(ctx, "ghost"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := st.GetUserByID(ctx, 404); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDuplicateUsernameRejected(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	if _, err := st.CreateUser(ctx, "alice", "a@example.com", "hash", "#667eea"); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if _, err := st.CreateUser(ctx, "alice", "b@example.com", "hash", "#667eea"); err == nil {
		t.Fatal("duplicate username must fail")
	}
}

func TestMessageHistoryOrderAndLimit(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash", "#667eea")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	texts := []string{"one", "two", "three", "four", "five"}
	for _, text := range texts {
		ts, err := st.AppendMessage(ctx, "general", user.ID, user.Username, text)
		if err != nil {
			t.Fatalf("append %q: %v", text, err)
		}
		if ts.IsZero() {
			t.Fatalf("append %q returned zero timestamp", text)
		}
	}

	msgs, err := st.RecentMessages(ctx, "general", 3)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	for i, want := range []string{"three", "four", "five"} {
		if msgs[i].Text != want {
			t.Fatalf("message %d: want %q, got %q", i, want, msgs[i].Text)
		}
	}
	if msgs[0].Username != "alice" || msgs[0].AvatarColor != "#667eea" {
		t.Fatalf("unexpected message fields: %+v", msgs[0])
	}
}

func TestRecentMessagesScopedToRoom(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	user, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash", "#667eea")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	if _, err := st.AppendMessage(ctx, "general", user.ID, user.Username, "here"); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := st.AppendMessage(ctx, "random", user.ID, user.Username, "there"); err != nil {
		t.Fatalf("append: %v", err)
	}

	msgs, err := st.RecentMessages(ctx, "general", 10)
	if err != nil {
		t.Fatalf("recent messages: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Text != "here" {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
}

func TestRoomCatalogue(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// 'general' is seeded by the schema.
	exists, err := st.RoomExists(ctx, "general")
	if err != nil || !exists {
		t.Fatalf("expected seeded general room, exists=%v err=%v", exists, err)
	}
	exists, err = st.RoomExists(ctx, "ghost")
	if err != nil || exists {
		t.Fatalf("ghost room must not exist, exists=%v err=%v", exists, err)
	}

	user, err := st.CreateUser(ctx, "alice", "alice@example.com", "hash", "#667eea")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	info, err := st.CreateRoom(ctx, "dev", "Development talk", user.ID)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if info.Name != "dev" || info.Description != "Development talk" {
		t.Fatalf("unexpected room info: %+v", info)
	}

	rooms, err := st.ListPublicRooms(ctx)
	if err != nil {
		t.Fatalf("list rooms: %v", err)
	}
	names := make(map[string]bool, len(rooms))
	for _, room := range rooms {
		names[room.Name] = true
	}
	if len(names) != 2 || !names["general"] || !names["dev"] {
		t.Fatalf("unexpected rooms: %v", rooms)
	}
}
