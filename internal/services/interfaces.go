package services

import (
	"context"
	"errors"

	"github.com/mrlokans/accounts/internal/entities"
)

// Errors every CredentialStore implementation must translate its driver
// errors into, so callers never inspect driver types.
var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// CredentialStore holds user records keyed by normalized email.
// Implementations rely on a unique index on email; a racing insert that loses
// must return ErrDuplicateEmail.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*entities.User, error)
	FindByID(ctx context.Context, id string) (*entities.User, error)
	Create(ctx context.Context, user *entities.User) (*entities.User, error)
	Ping(ctx context.Context) error
}
