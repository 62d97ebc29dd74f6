package http

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.get(t, "/health", "")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("health: status %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("health: body %q", body)
	}
}

func TestRegisterEndpoint(t *testing.T) {
	srv := newTestServer(t)

	token := srv.register(t, "alice")
	if token == "" {
		t.Fatal("register returned empty token")
	}

	// Duplicate username.
	resp := srv.postJSON(t, "/api/register", map[string]string{
		"username": "alice",
		"email":    "other@example.com",
		"password": "password123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register: status %d", resp.StatusCode)
	}

	// Binding failure.
	resp = srv.postJSON(t, "/api/register", map[string]string{
		"username": "x",
		"email":    "not-an-email",
		"password": "123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid register: status %d", resp.StatusCode)
	}
}

func TestLoginEndpoint(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "alice")

	resp := srv.postJSON(t, "/api/login", map[string]string{
		"username": "alice",
		"password": "password123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login: status %d", resp.StatusCode)
	}
	var out AuthResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.Token == "" {
		t.Fatalf("login response: token=%q err=%v", out.Token, err)
	}

	resp = srv.postJSON(t, "/api/login", map[string]string{
		"username": "alice",
		"password": "wrong-password",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("bad login: status %d", resp.StatusCode)
	}
}
