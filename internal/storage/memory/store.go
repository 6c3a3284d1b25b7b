// Package memory provides an in-memory UserStore used by tests and local
// experiments. It mirrors the Postgres store's semantics, including
// case-insensitive email uniqueness enforced atomically under a lock.
package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/avelldiaz/authbase/internal/models"
	"github.com/avelldiaz/authbase/internal/storage"
)

var _ storage.UserStore = (*Store)(nil)

// Store keeps users in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	byEmail map[string]models.User
	byID    map[string]models.User
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		byEmail: make(map[string]models.User),
		byID:    make(map[string]models.User),
	}
}

// Create inserts a user, failing with storage.ErrAlreadyExists if the email
// is taken (case-insensitive). The check and insert happen under one lock,
// so two concurrent creates for the same email yield exactly one success.
func (s *Store) Create(_ context.Context, user models.User) (models.SafeUser, error) {
	key := strings.ToLower(user.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[key]; exists {
		return models.SafeUser{}, storage.ErrAlreadyExists
	}
	s.byEmail[key] = user
	s.byID[user.ID] = user

	return user.Safe(), nil
}

// FindByEmail returns the safe projection for the given email.
func (s *Store) FindByEmail(_ context.Context, email string) (models.SafeUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return models.SafeUser{}, storage.ErrNotFound
	}
	return user.Safe(), nil
}

// FindByEmailWithHash returns the full record including the password hash.
func (s *Store) FindByEmailWithHash(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return models.User{}, storage.ErrNotFound
	}
	return user, nil
}

// FindByID returns the safe projection for the given user ID.
func (s *Store) FindByID(_ context.Context, id string) (models.SafeUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return models.SafeUser{}, storage.ErrNotFound
	}
	return user.Safe(), nil
}

// Delete removes a user by ID. Tests use it to simulate accounts removed
// after a token was issued.
func (s *Store) Delete(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return
	}
	delete(s.byID, id)
	delete(s.byEmail, strings.ToLower(user.Email))
}
