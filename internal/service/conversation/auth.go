package conversation

import "context"

// Login authenticates and adopts the returned identity. If the active
// session is anonymous it is linked to the account so the conversation
// so far is not orphaned; a failed link never fails the login.
func (s *Service) Login(ctx context.Context, email, password string) error {
	result, err := s.api.Login(ctx, email, password)
	if err != nil {
		// Existing auth state, if any, is left untouched.
		return err
	}

	s.mu.Lock()
	user := result.User
	s.user = &user
	s.token = result.AccessToken
	anonymousID := ""
	if s.session != nil && s.session.IsAnonymous {
		anonymousID = s.session.ID
	}
	s.mu.Unlock()

	if err := s.store.SetToken(result.AccessToken); err != nil {
		s.log.Warn("failed to persist token", "error", err)
	}

	if anonymousID != "" {
		s.linkSession(ctx, anonymousID, result.AccessToken)
	}
	return nil
}

// Register creates an account. The active anonymous session id is
// forwarded in the request so the gateway can link it at creation time;
// linking is idempotent, so the explicit link path stays safe too.
func (s *Service) Register(ctx context.Context, email, password string) error {
	s.mu.Lock()
	anonymousID := ""
	if s.session != nil && s.session.IsAnonymous {
		anonymousID = s.session.ID
	}
	s.mu.Unlock()

	result, err := s.api.Register(ctx, email, password, anonymousID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	user := result.User
	s.user = &user
	s.token = result.AccessToken
	if anonymousID != "" && s.session != nil && s.session.ID == anonymousID {
		s.session.IsAnonymous = false
	}
	s.mu.Unlock()

	if err := s.store.SetToken(result.AccessToken); err != nil {
		s.log.Warn("failed to persist token", "error", err)
	}
	return nil
}

// Logout drops the credentials and starts a fresh anonymous session. If
// the active session holds messages it is linked first, while the token
// still exists; the logout itself proceeds even when that attempt fails.
func (s *Service) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	sessionID := ""
	hasMessages := false
	if s.session != nil {
		sessionID = s.session.ID
		hasMessages = s.session.MessageCount > 0
	}
	s.mu.Unlock()

	if token != "" && sessionID != "" && hasMessages {
		s.linkSession(ctx, sessionID, token)
	}

	s.mu.Lock()
	s.user = nil
	s.token = ""
	s.mu.Unlock()

	if err := s.store.ClearToken(); err != nil {
		s.log.Warn("failed to clear stored token", "error", err)
	}

	return s.createSession(ctx)
}

// linkSession is best-effort: failures are logged and never propagated.
// On success the local session record is updated when it still matches.
func (s *Service) linkSession(ctx context.Context, sessionID, token string) bool {
	if err := s.api.LinkSession(ctx, sessionID, token); err != nil {
		s.log.Warn("failed to link session to account", "session_id", sessionID, "error", err)
		return false
	}

	s.mu.Lock()
	if s.session != nil && s.session.ID == sessionID {
		s.session.IsAnonymous = false
	}
	s.mu.Unlock()
	return true
}
