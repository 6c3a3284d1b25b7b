// Package auth implements credential verification and token issuance:
// bcrypt password hashing, JWT session tokens, and the sign-up/sign-in
// orchestration on top of a UserStore.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/avelldiaz/authbase/internal/models"
	"github.com/avelldiaz/authbase/internal/storage"
	"github.com/avelldiaz/authbase/internal/validate"
)

var (
	// ErrEmailTaken indicates sign-up hit an existing account. The message
	// shown to clients stays generic regardless of the conflict cause.
	ErrEmailTaken = errors.New("account already exists")

	// ErrInvalidCredentials is returned for both unknown email and wrong
	// password so responses cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Session is the uniform result of a successful sign-up or sign-in.
type Session struct {
	User      models.SafeUser `json:"user"`
	Token     string          `json:"token"`
	ExpiresIn int64           `json:"expiresIn"`
}

// Service orchestrates validation output, the credential store, and the
// token manager.
type Service struct {
	store  storage.UserStore
	tokens *TokenManager
}

// NewService constructs the auth service.
func NewService(store storage.UserStore, tokens *TokenManager) *Service {
	return &Service{store: store, tokens: tokens}
}

// SignUp hashes the validated password, creates the account, and issues a
// session token. The plaintext is not retained past the hash step.
func (s *Service) SignUp(ctx context.Context, in validate.SignUpInput) (Session, error) {
	hash, err := HashPassword(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user, err := s.store.Create(ctx, models.User{
		ID:           uuid.NewString(),
		Email:        in.Email,
		FullName:     in.FullName,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			return Session{}, ErrEmailTaken
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	return s.newSession(user)
}

// SignIn verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) SignIn(ctx context.Context, in validate.SignInInput) (Session, error) {
	user, err := s.store.FindByEmailWithHash(ctx, in.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("find user: %w", err)
	}

	if err := CheckPassword(user.PasswordHash, in.Password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return s.newSession(user.Safe())
}

// CurrentUser projects an already-authenticated user for the response body.
func (s *Service) CurrentUser(user models.SafeUser) models.SafeUser {
	return user
}

func (s *Service) newSession(user models.SafeUser) (Session, error) {
	token, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		if errors.Is(err, ErrNoSecret) {
			return Session{}, err
		}
		return Session{}, fmt.Errorf("issue token: %w", err)
	}

	return Session{
		User:      user,
		Token:     token,
		ExpiresIn: int64(s.tokens.TTL().Seconds()),
	}, nil
}
