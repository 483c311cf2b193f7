package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	authModel "github.com/elliehq/ellie/internal/model/auth"
	"github.com/elliehq/ellie/internal/service/account"
	chatservice "github.com/elliehq/ellie/internal/service/chat"
)

func setupRouter() (*chi.Mux, *account.Service, *chatservice.Service) {
	accountSvc := account.NewService()
	chatSvc := chatservice.NewService()
	handler := New(accountSvc, chatSvc)

	r := chi.NewRouter()
	handler.RegisterRoutes(r)
	return r, accountSvc, chatSvc
}

func postJSON(t *testing.T, r http.Handler, path string, body any, token string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal err: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegisterReturnsTokenAndUser(t *testing.T) {
	r, _, _ := setupRouter()

	resp := postJSON(t, r, "/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "longenough",
	}, "")

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		AccessToken string         `json:"access_token"`
		TokenType   string         `json:"token_type"`
		User        authModel.User `json:"user"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if payload.AccessToken == "" || payload.TokenType != "bearer" {
		t.Fatalf("unexpected auth payload: %+v", payload)
	}
	if payload.User.Email != "a@b.com" {
		t.Fatalf("unexpected user: %+v", payload.User)
	}
}

func TestRegisterLinksForwardedSession(t *testing.T) {
	r, _, chatSvc := setupRouter()
	ctx := context.Background()

	session, _ := chatSvc.CreateSession(ctx, 0)

	resp := postJSON(t, r, "/auth/register", map[string]string{
		"email":      "a@b.com",
		"password":   "longenough",
		"session_id": session.ID,
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	got, _ := chatSvc.GetSession(ctx, session.ID)
	if got.IsAnonymous {
		t.Fatal("forwarded session should be linked at registration")
	}
}

func TestRegisterValidationError(t *testing.T) {
	r, _, _ := setupRouter()

	resp := postJSON(t, r, "/auth/register", map[string]string{
		"email":    "a@b.com",
		"password": "short",
	}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	r, accountSvc, _ := setupRouter()
	_, _, _ = accountSvc.Register(context.Background(), "a@b.com", "longenough")

	resp := postJSON(t, r, "/auth/login", map[string]string{
		"email":    "a@b.com",
		"password": "wrongpass",
	}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}

	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if payload.Detail != "Invalid email or password" {
		t.Fatalf("unexpected detail: %q", payload.Detail)
	}
}

func TestMeRequiresValidToken(t *testing.T) {
	r, accountSvc, _ := setupRouter()
	_, token, _ := accountSvc.Register(context.Background(), "a@b.com", "longenough")

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestLinkSessionIdempotent(t *testing.T) {
	r, accountSvc, chatSvc := setupRouter()
	ctx := context.Background()

	_, token, _ := accountSvc.Register(ctx, "a@b.com", "longenough")
	session, _ := chatSvc.CreateSession(ctx, 0)

	body := map[string]string{"session_id": session.ID}
	if resp := postJSON(t, r, "/auth/link-session", body, token); resp.Code != http.StatusOK {
		t.Fatalf("first link: expected 200, got %d", resp.Code)
	}
	if resp := postJSON(t, r, "/auth/link-session", body, token); resp.Code != http.StatusOK {
		t.Fatalf("relink: expected 200, got %d", resp.Code)
	}

	got, _ := chatSvc.GetSession(ctx, session.ID)
	if got.IsAnonymous {
		t.Fatal("session should stay linked")
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	r, accountSvc, _ := setupRouter()
	_, token, _ := accountSvc.Register(context.Background(), "a@b.com", "longenough")

	if resp := postJSON(t, r, "/auth/logout", map[string]string{}, token); resp.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.Code)
	}
}
