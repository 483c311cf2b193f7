package chat

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elliehq/ellie/internal/model/chat"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotOwner        = errors.New("session belongs to another account")
)

// record is the gateway-side session row. A zero OwnerID means the
// session is still anonymous.
type record struct {
	id           string
	ownerID      int64
	createdAt    time.Time
	lastActivity time.Time
}

// Service owns sessions and their transcripts in memory.
type Service struct {
	mu       sync.RWMutex
	sessions map[string]*record
	messages map[string][]chat.Message
}

// NewService bootstraps the in-memory session store.
func NewService() *Service {
	return &Service{
		sessions: make(map[string]*record),
		messages: make(map[string][]chat.Message),
	}
}

// CreateSession provisions a session. With a non-zero ownerID the
// session is born owned rather than anonymous-then-linked.
func (s *Service) CreateSession(_ context.Context, ownerID int64) (chat.Session, error) {
	now := time.Now().UTC()
	rec := &record{
		id:           uuid.NewString(),
		ownerID:      ownerID,
		createdAt:    now,
		lastActivity: now,
	}

	s.mu.Lock()
	s.sessions[rec.id] = rec
	s.messages[rec.id] = make([]chat.Message, 0, 16)
	s.mu.Unlock()

	return s.info(rec, 0), nil
}

// GetSession returns a session's public status.
func (s *Service) GetSession(_ context.Context, sessionID string) (chat.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return chat.Session{}, ErrSessionNotFound
	}
	return s.info(rec, len(s.messages[sessionID])), nil
}

// Owner returns the owning account id, zero for anonymous sessions.
func (s *Service) Owner(_ context.Context, sessionID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return 0, ErrSessionNotFound
	}
	return rec.ownerID, nil
}

// SaveMessage appends a turn to the session transcript and refreshes the
// activity timestamp.
func (s *Service) SaveMessage(_ context.Context, sessionID string, role chat.Role, content string) error {
	if !role.Valid() {
		return errors.New("invalid message role")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}

	now := time.Now().UTC()
	rec.lastActivity = now
	s.messages[sessionID] = append(s.messages[sessionID], chat.Message{
		Role:      role,
		Content:   content,
		Timestamp: now,
	})
	return nil
}

// Transcript returns the ordered messages for a session.
func (s *Service) Transcript(_ context.Context, sessionID string) ([]chat.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	messages, ok := s.messages[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}

	copied := make([]chat.Message, len(messages))
	copy(copied, messages)
	return copied, nil
}

// Touch refreshes the last-activity timestamp.
func (s *Service) Touch(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	rec.lastActivity = time.Now().UTC()
	return nil
}

// DeleteSession removes a session and its messages.
func (s *Service) DeleteSession(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return ErrSessionNotFound
	}
	delete(s.sessions, sessionID)
	delete(s.messages, sessionID)
	return nil
}

// Link associates an anonymous session with an account. Relinking a
// session the account already owns succeeds without change; a session
// owned by someone else is rejected.
func (s *Service) Link(_ context.Context, sessionID string, ownerID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	if rec.ownerID == ownerID {
		return nil
	}
	if rec.ownerID != 0 {
		return ErrNotOwner
	}
	rec.ownerID = ownerID
	return nil
}

// UserSessions lists an account's sessions newest-activity first, each
// with a preview taken from its first user message.
func (s *Service) UserSessions(_ context.Context, ownerID int64) ([]chat.SessionSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var summaries []chat.SessionSummary
	for id, rec := range s.sessions {
		if rec.ownerID != ownerID {
			continue
		}
		summaries = append(summaries, chat.SessionSummary{
			ID:           id,
			Preview:      preview(s.messages[id]),
			MessageCount: len(s.messages[id]),
			LastActivity: rec.lastActivity,
			CreatedAt:    rec.createdAt,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastActivity.After(summaries[j].LastActivity)
	})
	return summaries, nil
}

func (s *Service) info(rec *record, count int) chat.Session {
	return chat.Session{
		ID:           rec.id,
		IsAnonymous:  rec.ownerID == 0,
		CreatedAt:    rec.createdAt,
		LastActivity: rec.lastActivity,
		MessageCount: count,
	}
}

const previewLimit = 50

func preview(messages []chat.Message) string {
	for _, msg := range messages {
		if msg.Role != chat.RoleUser {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > previewLimit {
			return string(runes[:previewLimit]) + "..."
		}
		return msg.Content
	}
	return "New Chat"
}
