package conversation

import "context"

// Initialize runs the startup sequence: verify any stored token, then
// resolve the active session and load its history. The service is marked
// ready even when session resolution fails; the presentation layer is
// expected to show the failure instead of crashing.
func (s *Service) Initialize(ctx context.Context) error {
	defer func() {
		s.mu.Lock()
		s.ready = true
		s.mu.Unlock()
	}()

	s.verifyStoredToken(ctx)
	return s.resolveSession(ctx)
}

// verifyStoredToken adopts a persisted token when the gateway still
// accepts it and silently discards it otherwise. An expired token is not
// a startup error from the visitor's point of view.
func (s *Service) verifyStoredToken(ctx context.Context) {
	token, err := s.store.Token()
	if err != nil {
		s.log.Warn("failed to read stored token", "error", err)
		return
	}
	if token == "" {
		return
	}

	user, err := s.api.Me(ctx, token)
	if err != nil {
		s.log.Warn("stored token rejected, discarding", "error", err)
		if err := s.store.ClearToken(); err != nil {
			s.log.Warn("failed to clear stored token", "error", err)
		}
		return
	}

	s.mu.Lock()
	s.user = &user
	s.token = token
	s.mu.Unlock()
}

// resolveSession adopts the persisted session when the gateway still
// knows it, and otherwise falls through to creating a new one.
func (s *Service) resolveSession(ctx context.Context) error {
	saved, err := s.store.SessionID()
	if err != nil {
		s.log.Warn("failed to read stored session id", "error", err)
		saved = ""
	}

	if saved != "" {
		info, err := s.api.GetSession(ctx, saved)
		if err == nil {
			s.mu.Lock()
			s.session = &info
			s.mu.Unlock()
			if err := s.loadHistory(ctx, saved); err != nil {
				s.log.Warn("failed to load history for stored session", "session_id", saved, "error", err)
			}
			return nil
		}

		// The stored id is no longer valid; forget it and start fresh.
		s.log.Warn("stored session rejected, creating a new one", "session_id", saved, "error", err)
		if err := s.store.ClearSessionID(); err != nil {
			s.log.Warn("failed to clear stored session id", "error", err)
		}
	}

	return s.createSession(ctx)
}
