package chat

import "time"

// Session describes one conversation thread as the server reports it.
// Timestamps and the message count are server-authoritative.
type Session struct {
	ID           string    `json:"session_id"`
	IsAnonymous  bool      `json:"is_anonymous"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// SessionSummary is the sidebar listing entry for an account's session.
type SessionSummary struct {
	ID           string    `json:"session_id"`
	Preview      string    `json:"preview"`
	MessageCount int       `json:"message_count"`
	LastActivity time.Time `json:"last_activity"`
	CreatedAt    time.Time `json:"created_at"`
}
