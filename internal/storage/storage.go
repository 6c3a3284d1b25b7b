package storage

import (
	"context"
	"errors"

	"github.com/avelldiaz/authbase/internal/models"
)

// ErrNotFound indicates a record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrAlreadyExists indicates a uniqueness conflict.
var ErrAlreadyExists = errors.New("record already exists")

// UserStore captures the persistence operations the service layer needs.
//
// The safe reads (FindByEmail, FindByID) never load the password hash;
// FindByEmailWithHash is the single privileged read used to verify
// credentials, so the hash never travels anywhere else. FindByEmail is part
// of the store contract for callers that need a hash-free lookup by
// address; the current request paths resolve users by ID once a token is
// verified, so only the other three reads appear on hot paths.
type UserStore interface {
	Create(ctx context.Context, user models.User) (models.SafeUser, error)
	FindByEmail(ctx context.Context, email string) (models.SafeUser, error)
	FindByEmailWithHash(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.SafeUser, error)
}
