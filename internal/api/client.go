// Package api is the typed HTTP client for the chat gateway. Every
// remote interaction of the client core goes through it; callers treat
// any failure as a single "operation failed" outcome.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/elliehq/ellie/internal/model/auth"
	"github.com/elliehq/ellie/internal/model/chat"
)

// Error is a rejected request: the gateway answered with a non-2xx
// status. Transport failures and malformed bodies surface as ordinary
// wrapped errors instead.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// IsNotFound reports whether err is a gateway 404.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*Error)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Client talks to the gateway at a fixed base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a Client. The timeout bounds every request end to end.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SessionCreated is the response of POST /api/session/create.
type SessionCreated struct {
	SessionID   string       `json:"session_id"`
	SessionInfo chat.Session `json:"session_info"`
}

// CreateSession asks the gateway for a new session. With a token the
// session is created already owned; without one it is anonymous.
func (c *Client) CreateSession(ctx context.Context, token string) (SessionCreated, error) {
	var out SessionCreated
	err := c.do(ctx, http.MethodPost, "/api/session/create", token, "", nil, &out)
	if err != nil {
		return SessionCreated{}, err
	}
	if out.SessionID == "" {
		return SessionCreated{}, fmt.Errorf("create session: response missing session_id")
	}
	return out, nil
}

// GetSession fetches a session's status; a 404 means the gateway no
// longer knows the id.
func (c *Client) GetSession(ctx context.Context, id string) (chat.Session, error) {
	var out chat.Session
	if err := c.do(ctx, http.MethodGet, "/api/session/"+url.PathEscape(id), "", "", nil, &out); err != nil {
		return chat.Session{}, err
	}
	return out, nil
}

// History is the response of GET /api/session/{id}/history.
type History struct {
	Messages    []chat.Message `json:"messages"`
	SessionInfo chat.Session   `json:"session_info"`
}

// GetHistory fetches the ordered transcript for a session.
func (c *Client) GetHistory(ctx context.Context, id string) (History, error) {
	var out History
	if err := c.do(ctx, http.MethodGet, "/api/session/"+url.PathEscape(id)+"/history", "", "", nil, &out); err != nil {
		return History{}, err
	}
	return out, nil
}

// DeleteSession removes a session and its messages.
func (c *Client) DeleteSession(ctx context.Context, id, token string) error {
	return c.do(ctx, http.MethodDelete, "/api/session/"+url.PathEscape(id), token, "", nil, nil)
}

// ChatReply is the response of POST /api/chat.
type ChatReply struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id"`
}

// SendChat submits a user message for the given session and returns the
// assistant's reply.
func (c *Client) SendChat(ctx context.Context, sessionID, token, message string) (ChatReply, error) {
	body := map[string]string{
		"message":    message,
		"session_id": sessionID,
	}
	var out ChatReply
	if err := c.do(ctx, http.MethodPost, "/api/chat", token, sessionID, body, &out); err != nil {
		return ChatReply{}, err
	}
	if out.Response == "" {
		return ChatReply{}, fmt.Errorf("chat: response missing assistant reply")
	}
	return out, nil
}

// AuthResult is the response of the login and register endpoints.
type AuthResult struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	User        auth.User `json:"user"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", "", "", body, &out); err != nil {
		return AuthResult{}, err
	}
	if out.AccessToken == "" {
		return AuthResult{}, fmt.Errorf("login: response missing access_token")
	}
	return out, nil
}

// Register creates an account. A non-empty sessionID is forwarded so the
// gateway can link the anonymous conversation at account-creation time.
func (c *Client) Register(ctx context.Context, email, password, sessionID string) (AuthResult, error) {
	body := map[string]string{"email": email, "password": password}
	if sessionID != "" {
		body["session_id"] = sessionID
	}
	var out AuthResult
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", "", "", body, &out); err != nil {
		return AuthResult{}, err
	}
	if out.AccessToken == "" {
		return AuthResult{}, fmt.Errorf("register: response missing access_token")
	}
	return out, nil
}

// Me validates a bearer token and returns its user.
func (c *Client) Me(ctx context.Context, token string) (auth.User, error) {
	var out auth.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", token, "", nil, &out); err != nil {
		return auth.User{}, err
	}
	return out, nil
}

// LinkSession associates a session with the token's account. Relinking
// an already-linked session is harmless.
func (c *Client) LinkSession(ctx context.Context, sessionID, token string) error {
	body := map[string]string{"session_id": sessionID}
	return c.do(ctx, http.MethodPost, "/api/auth/link-session", token, "", body, nil)
}

// MyChats lists the account's sessions for the sidebar.
func (c *Client) MyChats(ctx context.Context, token string) ([]chat.SessionSummary, error) {
	var out struct {
		Sessions []chat.SessionSummary `json:"sessions"`
		Total    int                   `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/sessions/my-chats", token, "", nil, &out); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

func (c *Client) do(ctx context.Context, method, path, token, sessionID string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if sessionID != "" {
		req.Header.Set("X-Session-ID", sessionID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var payload struct {
			Detail string `json:"detail"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&payload)
		return &Error{StatusCode: resp.StatusCode, Message: payload.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}
