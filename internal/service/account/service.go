// Package account manages gateway user accounts and their bearer tokens.
package account

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/elliehq/ellie/internal/model/auth"
)

var (
	ErrInvalidCredentials = errors.New("Invalid email or password")
	ErrAccountDisabled    = errors.New("Account is disabled")
	ErrEmailTaken         = errors.New("User with this email already exists")
	ErrInvalidEmail       = errors.New("Invalid email format")
	ErrWeakPassword       = errors.New("Password must be at least 8 characters long")
	ErrInvalidToken       = errors.New("Invalid token")
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type user struct {
	id        int64
	email     string
	salt      []byte
	hash      []byte
	isActive  bool
	createdAt time.Time
}

// Service holds accounts and issued tokens in memory.
type Service struct {
	mu      sync.RWMutex
	nextID  int64
	byEmail map[string]*user
	byID    map[int64]*user
	tokens  map[string]int64
}

// NewService bootstraps the in-memory account store.
func NewService() *Service {
	return &Service{
		nextID:  1,
		byEmail: make(map[string]*user),
		byID:    make(map[int64]*user),
		tokens:  make(map[string]int64),
	}
}

// Register creates an account and returns it with a fresh bearer token.
func (s *Service) Register(_ context.Context, email, password string) (auth.User, string, error) {
	if !emailPattern.MatchString(email) {
		return auth.User{}, "", ErrInvalidEmail
	}
	if len(password) < 8 {
		return auth.User{}, "", ErrWeakPassword
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return auth.User{}, "", ErrEmailTaken
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return auth.User{}, "", err
	}

	u := &user{
		id:        s.nextID,
		email:     email,
		salt:      salt,
		hash:      hashPassword(salt, password),
		isActive:  true,
		createdAt: time.Now().UTC(),
	}
	s.nextID++
	s.byEmail[email] = u
	s.byID[u.id] = u

	token := s.issueToken(u.id)
	return publicUser(u), token, nil
}

// Authenticate checks credentials and issues a new bearer token. Unknown
// emails and wrong passwords produce the same error.
func (s *Service) Authenticate(_ context.Context, email, password string) (auth.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byEmail[email]
	if !ok {
		return auth.User{}, "", ErrInvalidCredentials
	}
	if !u.isActive {
		return auth.User{}, "", ErrAccountDisabled
	}
	if subtle.ConstantTimeCompare(u.hash, hashPassword(u.salt, password)) != 1 {
		return auth.User{}, "", ErrInvalidCredentials
	}

	token := s.issueToken(u.id)
	return publicUser(u), token, nil
}

// VerifyToken resolves a bearer token to its account.
func (s *Service) VerifyToken(_ context.Context, token string) (auth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.tokens[token]
	if !ok {
		return auth.User{}, ErrInvalidToken
	}
	u, ok := s.byID[userID]
	if !ok || !u.isActive {
		return auth.User{}, ErrInvalidToken
	}
	return publicUser(u), nil
}

// RevokeToken drops a bearer token. Revoking an unknown token is a no-op.
func (s *Service) RevokeToken(_ context.Context, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tokens, token)
}

// issueToken must be called with the lock held.
func (s *Service) issueToken(userID int64) string {
	token := uuid.NewString() + uuid.NewString()
	s.tokens[token] = userID
	return token
}

func hashPassword(salt []byte, password string) []byte {
	sum := sha256.Sum256(append(append([]byte{}, salt...), []byte(password)...))
	return []byte(hex.EncodeToString(sum[:]))
}

func publicUser(u *user) auth.User {
	return auth.User{
		ID:        u.id,
		Email:     u.email,
		IsActive:  u.isActive,
		CreatedAt: u.createdAt,
	}
}
