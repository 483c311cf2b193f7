package conversation

import (
	"context"
	"strings"

	"github.com/elliehq/ellie/internal/model/chat"
)

// fallbackErr is shown when a failure carries no message of its own.
const fallbackErr = "Something went wrong"

// Send submits a user message with an optimistic transcript entry.
// Whitespace-only input, an in-flight send and a missing session are all
// silent no-ops. The session id and token are bound at call time; if the
// active session or transcript changed while the request was in flight,
// the result is discarded rather than applied to the wrong conversation.
func (s *Service) Send(ctx context.Context, text string) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}

	s.mu.Lock()
	if s.sending || s.session == nil {
		s.mu.Unlock()
		return nil
	}
	s.sending = true
	s.lastErr = ""
	s.showIntro = false
	sessionID := s.session.ID
	token := s.token
	optimisticIdx := len(s.transcript)
	generation := s.generation
	s.transcript = append(s.transcript, chat.Message{Role: chat.RoleUser, Content: trimmed})
	s.mu.Unlock()

	reply, err := s.api.SendChat(ctx, sessionID, token, trimmed)

	s.mu.Lock()
	// The in-flight flag is lowered last, after the transcript has
	// reached its reconciled shape.
	defer func() {
		s.sending = false
		s.mu.Unlock()
	}()

	stale := s.generation != generation || s.session == nil || s.session.ID != sessionID

	if err != nil {
		if !stale {
			// Remove exactly the entry appended above; the draft is not
			// restored.
			s.transcript = append(s.transcript[:optimisticIdx], s.transcript[optimisticIdx+1:]...)
			if msg := err.Error(); msg != "" {
				s.lastErr = msg
			} else {
				s.lastErr = fallbackErr
			}
		}
		return err
	}

	if stale {
		return nil
	}

	// Reconcile: rewrite the optimistic entry and the assistant reply as
	// a pair so an interleaved tail mutation cannot split them.
	s.transcript = append(s.transcript[:optimisticIdx],
		chat.Message{Role: chat.RoleUser, Content: trimmed},
		chat.Message{Role: chat.RoleAssistant, Content: reply.Response},
	)
	s.session.MessageCount += 2
	return nil
}
