package conversation

import (
	"context"

	"github.com/elliehq/ellie/internal/model/chat"
)

// NewSession creates a fresh session and makes it active. When a user is
// authenticated the session is created owned, and linked once more as a
// safety net.
func (s *Service) NewSession(ctx context.Context) error {
	return s.createSession(ctx)
}

func (s *Service) createSession(ctx context.Context) error {
	token := s.bearer()

	created, err := s.api.CreateSession(ctx, token)
	if err != nil {
		// Leave whatever session we had (possibly none) untouched.
		return err
	}

	info := created.SessionInfo
	if info.ID == "" {
		info.ID = created.SessionID
	}

	s.mu.Lock()
	s.session = &info
	s.transcript = nil
	s.generation++
	s.showIntro = true
	s.lastErr = ""
	s.mu.Unlock()

	if err := s.store.SetSessionID(info.ID); err != nil {
		s.log.Warn("failed to persist session id", "error", err)
	}

	if token != "" {
		s.linkSession(ctx, info.ID, token)
	}
	return nil
}

// Switch makes another session active and loads its transcript. Asking
// for the already-active session is a no-op, and a failed status check
// leaves the current session in place.
func (s *Service) Switch(ctx context.Context, targetID string) error {
	s.mu.Lock()
	if s.session != nil && s.session.ID == targetID {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	info, err := s.api.GetSession(ctx, targetID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.session = &info
	s.lastErr = ""
	s.mu.Unlock()

	if err := s.store.SetSessionID(targetID); err != nil {
		s.log.Warn("failed to persist session id", "error", err)
	}
	if err := s.loadHistory(ctx, targetID); err != nil {
		s.log.Warn("failed to load history after switch", "session_id", targetID, "error", err)
	}
	return nil
}

// Delete removes a session on the gateway. Deleting the active session
// immediately creates a replacement: the client never sits without an
// active session once initialized.
func (s *Service) Delete(ctx context.Context, sessionID string) error {
	if err := s.api.DeleteSession(ctx, sessionID, s.bearer()); err != nil {
		return err
	}

	s.mu.Lock()
	wasActive := s.session != nil && s.session.ID == sessionID
	s.mu.Unlock()

	if wasActive {
		return s.createSession(ctx)
	}
	return nil
}

// Sessions lists the authenticated account's sessions for the sidebar.
// Anonymous visitors get an empty listing.
func (s *Service) Sessions(ctx context.Context) ([]chat.SessionSummary, error) {
	token := s.bearer()
	if token == "" {
		return nil, nil
	}
	return s.api.MyChats(ctx, token)
}

// loadHistory replaces the transcript wholesale with the session's
// server-side history and recomputes whether the introductory view
// shows. A result arriving after the active session changed is dropped.
func (s *Service) loadHistory(ctx context.Context, sessionID string) error {
	history, err := s.api.GetHistory(ctx, sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.session == nil || s.session.ID != sessionID {
		return nil
	}

	s.transcript = history.Messages
	s.generation++
	s.showIntro = len(history.Messages) == 0
	if history.SessionInfo.ID == sessionID {
		info := history.SessionInfo
		s.session = &info
	}
	return nil
}
