package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/galafis/roomcast-server/internal/log"
	"github.com/galafis/roomcast-server/internal/store"
)

// testConn is a channel-backed Conn for driving the core without a transport.
type testConn struct {
	id     string
	events chan *Event

	closeOnce sync.Once
	done      chan struct{}
}

func newTestConn(id string) *testConn {
	return newTestConnBuffer(id, 32)
}

func newTestConnBuffer(id string, buffer int) *testConn {
	return &testConn{
		id:     id,
		events: make(chan *Event, buffer),
		done:   make(chan struct{}),
	}
}

func (c *testConn) ID() string { return c.id }

func (c *testConn) Send(ev *Event) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.events <- ev:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (c *testConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return nil
}

// fakeAuth resolves tokens from a fixed map.
type fakeAuth struct {
	mu     sync.Mutex
	tokens map[string]Identity
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{tokens: make(map[string]Identity)}
}

func (a *fakeAuth) add(token string, id Identity) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.tokens[token] = id
}

func (a *fakeAuth) Authenticate(_ context.Context, token string) (Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	id, ok := a.tokens[token]
	if !ok {
		return Identity{}, errors.New("unknown token")
	}
	return id, nil
}

// fakeStore keeps messages in memory and can be told to fail appends.
type fakeStore struct {
	mu         sync.Mutex
	messages   map[string][]store.Message
	failAppend bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{messages: make(map[string][]store.Message)}
}

func (s *fakeStore) setFailAppend(fail bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAppend = fail
}

func (s *fakeStore) AppendMessage(_ context.Context, room string, userID int64, username, text string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAppend {
		return time.Time{}, errors.New("store unavailable")
	}
	ts := time.Now().UTC()
	s.messages[room] = append(s.messages[room], store.Message{
		ID:        int64(len(s.messages[room]) + 1),
		Room:      room,
		UserID:    userID,
		Username:  username,
		Text:      text,
		CreatedAt: ts,
	})
	return ts, nil
}

func (s *fakeStore) RecentMessages(_ context.Context, room string, limit int) ([]store.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[room]
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]store.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (s *fakeStore) count(room string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages[room])
}

// fakeCatalogue admits every room unless restricted.
type fakeCatalogue struct {
	mu       sync.Mutex
	allowAll bool
	rooms    map[string]struct{}
}

func newFakeCatalogue() *fakeCatalogue {
	return &fakeCatalogue{allowAll: true}
}

func (c *fakeCatalogue) restrict(rooms ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allowAll = false
	c.rooms = make(map[string]struct{}, len(rooms))
	for _, room := range rooms {
		c.rooms[room] = struct{}{}
	}
}

func (c *fakeCatalogue) RoomExists(_ context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.allowAll {
		return true, nil
	}
	_, ok := c.rooms[name]
	return ok, nil
}

func (c *fakeCatalogue) ListPublicRooms(_ context.Context) ([]store.RoomInfo, error) {
	return nil, nil
}

// testEnv is a fully wired core with fake collaborators.
type testEnv struct {
	sessions  *Sessions
	registry  *PresenceRegistry
	rooms     *RoomTable
	broadcast *BroadcastEngine
	typing    *TypingCoordinator
	auth      *fakeAuth
	store     *fakeStore
	catalogue *fakeCatalogue
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	registry := NewPresenceRegistry()
	rooms := NewRoomTable()
	broadcast := NewBroadcastEngine(rooms, registry, log.Nop())
	typing := NewTypingCoordinator(broadcast)
	authc := newFakeAuth()
	st := newFakeStore()
	catalogue := newFakeCatalogue()

	sessions := NewSessions(registry, rooms, broadcast, typing, authc, st, catalogue, SessionsConfig{
		TypingTTL:     100 * time.Millisecond,
		MaxMessageLen: 100,
		HistoryLimit:  10,
	}, log.Nop())

	return &testEnv{
		sessions:  sessions,
		registry:  registry,
		rooms:     rooms,
		broadcast: broadcast,
		typing:    typing,
		auth:      authc,
		store:     st,
		catalogue: catalogue,
	}
}

// connect registers a new connection for the named user and returns it.
func (env *testEnv) connect(t *testing.T, connID, username string) *testConn {
	t.Helper()

	token := "token-" + connID
	env.auth.add(token, Identity{ID: userIDFor(username), Username: username, AvatarColor: "#667eea"})

	conn := newTestConn(connID)
	if _, err := env.sessions.Connect(context.Background(), conn, token); err != nil {
		t.Fatalf("connect %s: %v", connID, err)
	}
	return conn
}

func userIDFor(username string) int64 {
	var id int64
	for _, r := range username {
		id = id*31 + int64(r)
	}
	return id
}

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("expected event kind %v not received", kind)
			return nil
		}
	}
}

// expectNoEvent asserts no event of the given kind arrives within the window.
func expectNoEvent(t *testing.T, ch <-chan *Event, kind EventKind, window time.Duration) {
	t.Helper()

	deadline := time.After(window)
	for {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == kind {
				t.Fatalf("unexpected event: %+v", ev)
			}
		case <-deadline:
			return
		}
	}
}

func drain(ch <-chan *Event) {
	for {
		select {
		case <-ch:
		default:
			return
		}
	}
}
