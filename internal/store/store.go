// Package store persists the two pieces of client state that must
// survive restarts: the active session id and the auth token. Each key
// lives in its own file so the pair can be cleared independently.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	sessionFile = "session_id"
	tokenFile   = "auth_token"
)

// Store is a file-backed key store rooted at a state directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New creates the state directory if needed and returns a Store for it.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// SessionID returns the persisted session id, or "" when none is stored.
func (s *Store) SessionID() (string, error) {
	return s.read(sessionFile)
}

// SetSessionID persists the active session id.
func (s *Store) SetSessionID(id string) error {
	return s.write(sessionFile, id)
}

// ClearSessionID removes the persisted session id.
func (s *Store) ClearSessionID() error {
	return s.remove(sessionFile)
}

// Token returns the persisted auth token, or "" when none is stored.
func (s *Store) Token() (string, error) {
	return s.read(tokenFile)
}

// SetToken persists the bearer token.
func (s *Store) SetToken(token string) error {
	return s.write(tokenFile, token)
}

// ClearToken removes the persisted bearer token.
func (s *Store) ClearToken() error {
	return s.remove(tokenFile)
}

func (s *Store) read(name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (s *Store) write(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, []byte(value+"\n"), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (s *Store) remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(filepath.Join(s.dir, name))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}
