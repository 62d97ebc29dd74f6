package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/galafis/roomcast-server/internal/auth"
	"github.com/galafis/roomcast-server/internal/config"
	"github.com/galafis/roomcast-server/internal/core"
	"github.com/galafis/roomcast-server/internal/log"
	"github.com/galafis/roomcast-server/internal/proto"
	"github.com/galafis/roomcast-server/internal/store/sqlite"
)

// testServer is a fully wired server backed by an in-memory database.
type testServer struct {
	http  *httptest.Server
	store *sqlite.SQLiteStore
	auth  *auth.Service
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.Default()
	cfg.TypingTTL = 200 * time.Millisecond

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte("test-secret"),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      time.Hour,
	}
	authService := auth.NewService(st, jwtConfig)

	logger := log.Nop()
	registry := core.NewPresenceRegistry()
	rooms := core.NewRoomTable()
	broadcast := core.NewBroadcastEngine(rooms, registry, logger)
	typing := core.NewTypingCoordinator(broadcast)
	sessions := core.NewSessions(registry, rooms, broadcast, typing, authService, st, st, core.SessionsConfig{
		TypingTTL:     cfg.TypingTTL,
		MaxMessageLen: cfg.MaxMessageLen,
		HistoryLimit:  cfg.HistoryLimit,
	}, logger)

	srv := NewServer(sessions, authService, st, &cfg, logger)
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	return &testServer{http: ts, store: st, auth: authService}
}

// register creates an account through the REST API and returns its token.
func (s *testServer) register(t *testing.T, username string) string {
	t.Helper()

	body := map[string]string{
		"username": username,
		"email":    username + "@example.com",
		"password": "password123",
	}
	resp := s.postJSON(t, "/api/register", body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}
	var out AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out.Token
}

func (s *testServer) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()

	buf, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	resp, err := http.Post(s.http.URL+path, "application/json", bytes.NewReader(buf))
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func (s *testServer) get(t *testing.T, path, token string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(http.MethodGet, s.http.URL+path, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// dialWS opens an authenticated websocket against the test server.
func (s *testServer) dialWS(t *testing.T, ctx context.Context, token string) *websocket.Conn {
	t.Helper()

	url := "ws" + s.http.URL[len("http"):] + "/ws?token=" + token
	sock, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial ws: %v", err)
	}
	t.Cleanup(func() { sock.Close(websocket.StatusNormalClosure, "test done") })
	return sock
}

func sendWS(t *testing.T, ctx context.Context, sock *websocket.Conn, msgType string, data any) {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s payload: %v", msgType, err)
	}
	if err := wsjson.Write(ctx, sock, proto.Inbound{Type: msgType, Data: raw}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

// wsOutbound mirrors proto.Outbound with the payload left raw for the test
// to decode by event type.
type wsOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

// readEvent reads frames until one matches the wanted event name.
func readEvent(t *testing.T, ctx context.Context, sock *websocket.Conn, event string) wsOutbound {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		var out wsOutbound
		if err := wsjson.Read(ctx, sock, &out); err != nil {
			t.Fatalf("read waiting for %q: %v", event, err)
		}
		if out.Event == event {
			return out
		}
	}
	t.Fatalf("event %q never arrived", event)
	return wsOutbound{}
}
