// Package conversation holds the client-side conversation state and the
// operations that may mutate it: startup sequencing, session management,
// authentication and the message exchange. All state lives in one
// Service so the invariants (exactly one active session after startup,
// transcript consistency under concurrent operations) have a single
// owner.
package conversation

import (
	"log/slog"
	"sync"

	"github.com/elliehq/ellie/internal/api"
	"github.com/elliehq/ellie/internal/model/auth"
	"github.com/elliehq/ellie/internal/model/chat"
	"github.com/elliehq/ellie/internal/store"
)

// Service is the coordinator for all conversation state.
type Service struct {
	api   *api.Client
	store *store.Store
	log   *slog.Logger

	mu         sync.Mutex
	transcript []chat.Message
	// generation increments whenever the transcript is replaced
	// wholesale; in-flight operations compare it before applying their
	// result so a stale response can never touch the wrong transcript.
	generation uint64
	session    *chat.Session
	user       *auth.User
	token      string
	showIntro  bool
	lastErr    string
	sending    bool
	ready      bool
}

// New wires the coordinator to its gateway client and durable store.
func New(client *api.Client, st *store.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{api: client, store: st, log: logger}
}

// State is a point-in-time copy of everything the presentation layer
// renders. Mutation happens only through the Service operations.
type State struct {
	Transcript []chat.Message
	Session    *chat.Session
	User       *auth.User
	ShowIntro  bool
	Err        string
	Sending    bool
	Ready      bool
}

// Snapshot returns a copy of the current state.
func (s *Service) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := State{
		Transcript: append([]chat.Message(nil), s.transcript...),
		ShowIntro:  s.showIntro,
		Err:        s.lastErr,
		Sending:    s.sending,
		Ready:      s.ready,
	}
	if s.session != nil {
		session := *s.session
		state.Session = &session
	}
	if s.user != nil {
		user := *s.user
		state.User = &user
	}
	return state
}

// ActiveSession returns the active session, if one has been resolved.
func (s *Service) ActiveSession() (chat.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return chat.Session{}, false
	}
	return *s.session, true
}

// CurrentUser returns the authenticated account, if any.
func (s *Service) CurrentUser() (auth.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return auth.User{}, false
	}
	return *s.user, true
}

// Transcript returns a copy of the in-memory transcript.
func (s *Service) Transcript() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.transcript...)
}

// ShowIntro reports whether the introductory view should be shown.
func (s *Service) ShowIntro() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.showIntro
}

// LastError returns the transient chat error slot.
func (s *Service) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Ready reports whether initialization has completed.
func (s *Service) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// bearer returns the current token, "" when anonymous.
func (s *Service) bearer() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}
