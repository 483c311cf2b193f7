package conversation_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/elliehq/ellie/internal/api"
	"github.com/elliehq/ellie/internal/handler"
	model "github.com/elliehq/ellie/internal/model/chat"
	"github.com/elliehq/ellie/internal/service/account"
	chatservice "github.com/elliehq/ellie/internal/service/chat"
	"github.com/elliehq/ellie/internal/service/conversation"
	"github.com/elliehq/ellie/internal/store"
)

// scriptedResponder stands in for the assistant model. When block is
// set, Reply waits until release is closed, which lets tests hold a send
// in flight.
type scriptedResponder struct {
	reply   string
	block   bool
	release chan struct{}
}

func (r *scriptedResponder) Reply(_ context.Context, _ string, _ []model.Message, _ string) (string, error) {
	if r.block {
		<-r.release
	}
	return r.reply, nil
}

// env runs the conversation core against the real gateway router, with
// per-path failure injection and request counting.
type env struct {
	t          *testing.T
	svc        *conversation.Service
	store      *store.Store
	chatSvc    *chatservice.Service
	accountSvc *account.Service
	responder  *scriptedResponder

	mu       sync.Mutex
	failing  map[string]bool
	requests map[string]int
}

func newEnv(t *testing.T) *env {
	t.Helper()

	e := &env{
		t:          t,
		chatSvc:    chatservice.NewService(),
		accountSvc: account.NewService(),
		responder:  &scriptedResponder{reply: "hello", release: make(chan struct{})},
		failing:    make(map[string]bool),
		requests:   make(map[string]int),
	}

	router := handler.NewRouter(e.chatSvc, e.accountSvc, e.responder)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.mu.Lock()
		e.requests[r.URL.Path]++
		fail := e.failing[r.URL.Path]
		e.mu.Unlock()
		if fail {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"detail":"injected failure"}`))
			return
		}
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(srv.Close)

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New err: %v", err)
	}
	e.store = st

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e.svc = conversation.New(api.New(srv.URL, 5*time.Second), st, logger)
	return e
}

func (e *env) failPath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failing[path] = true
}

func (e *env) restorePath(path string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.failing, path)
}

func (e *env) requestCount(path string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.requests[path]
}

func (e *env) mustInitialize() {
	e.t.Helper()
	if err := e.svc.Initialize(context.Background()); err != nil {
		e.t.Fatalf("Initialize err: %v", err)
	}
	if _, ok := e.svc.ActiveSession(); !ok {
		e.t.Fatal("no active session after initialization")
	}
}

// registerAccount creates an account directly on the gateway services,
// bypassing the client under test.
func (e *env) registerAccount(email string) {
	e.t.Helper()
	if _, _, err := e.accountSvc.Register(context.Background(), email, "longenough"); err != nil {
		e.t.Fatalf("account setup err: %v", err)
	}
}

func TestInitializeFreshVisitor(t *testing.T) {
	e := newEnv(t)
	e.mustInitialize()

	if !e.svc.Ready() {
		t.Fatal("service not ready after Initialize")
	}

	session, _ := e.svc.ActiveSession()
	if !session.IsAnonymous {
		t.Fatal("fresh visitor should get an anonymous session")
	}
	if !e.svc.ShowIntro() {
		t.Fatal("fresh empty session should show the introductory view")
	}

	saved, _ := e.store.SessionID()
	if saved != session.ID {
		t.Fatalf("session id not persisted: store=%q active=%q", saved, session.ID)
	}
}

func TestInitializeAdoptsPersistedSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	existing, _ := e.chatSvc.CreateSession(ctx, 0)
	_ = e.chatSvc.SaveMessage(ctx, existing.ID, model.RoleUser, "earlier question")
	_ = e.chatSvc.SaveMessage(ctx, existing.ID, model.RoleAssistant, "earlier answer")
	if err := e.store.SetSessionID(existing.ID); err != nil {
		t.Fatalf("SetSessionID err: %v", err)
	}

	e.mustInitialize()

	session, _ := e.svc.ActiveSession()
	if session.ID != existing.ID {
		t.Fatalf("expected to adopt %s, got %s", existing.ID, session.ID)
	}
	transcript := e.svc.Transcript()
	if len(transcript) != 2 {
		t.Fatalf("expected loaded history, got %d entries", len(transcript))
	}
	if e.svc.ShowIntro() {
		t.Fatal("introductory view shown despite non-empty transcript")
	}
}

func TestInitializeStaleSessionCreatesNew(t *testing.T) {
	e := newEnv(t)
	if err := e.store.SetSessionID("no-longer-known"); err != nil {
		t.Fatalf("SetSessionID err: %v", err)
	}

	e.mustInitialize()

	session, _ := e.svc.ActiveSession()
	if session.ID == "no-longer-known" {
		t.Fatal("stale session adopted")
	}
	if !e.svc.ShowIntro() {
		t.Fatal("brand-new session should show the introductory view")
	}
	saved, _ := e.store.SessionID()
	if saved != session.ID {
		t.Fatalf("new session id not persisted: %q", saved)
	}
}

func TestInitializeVerifiesStoredToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, token, err := e.accountSvc.Register(ctx, "back@example.com", "longenough")
	if err != nil {
		t.Fatalf("Register err: %v", err)
	}
	if err := e.store.SetToken(token); err != nil {
		t.Fatalf("SetToken err: %v", err)
	}

	e.mustInitialize()

	user, ok := e.svc.CurrentUser()
	if !ok {
		t.Fatal("stored valid token not adopted")
	}
	if user.Email != "back@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}

	// The session was created while authenticated, so it is born owned.
	session, _ := e.svc.ActiveSession()
	if session.IsAnonymous {
		t.Fatal("session created by an authenticated visitor should be owned")
	}
}

func TestInitializeDiscardsInvalidToken(t *testing.T) {
	e := newEnv(t)
	if err := e.store.SetToken("expired-or-bogus"); err != nil {
		t.Fatalf("SetToken err: %v", err)
	}

	e.mustInitialize()

	if _, ok := e.svc.CurrentUser(); ok {
		t.Fatal("invalid token adopted")
	}
	stored, _ := e.store.Token()
	if stored != "" {
		t.Fatalf("invalid token should be cleared from the store, got %q", stored)
	}
}

func TestInitializeSurvivesGatewayOutage(t *testing.T) {
	e := newEnv(t)
	e.failPath("/api/session/create")

	err := e.svc.Initialize(context.Background())
	if err == nil {
		t.Fatal("expected startup failure when session creation fails")
	}
	if !e.svc.Ready() {
		t.Fatal("service must still report ready so the UI can show the failure")
	}
	if _, ok := e.svc.ActiveSession(); ok {
		t.Fatal("no session should be active after a failed startup")
	}
}
