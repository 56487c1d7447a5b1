package userrepo

import (
	"context"
	"time"

	"github.com/gather-events/events-api/internal/domain"
)

// User is the persistence shape used by the user repository.
// PasswordDigest is opaque to everything except the password hasher.
type User struct {
	ID             domain.UserID
	Email          string
	PasswordDigest string

	FirstName   string
	LastName    string
	DateOfBirth *string

	CreatedAt time.Time
}

// Repository provides access to persisted users.
// Email uniqueness is enforced by the store; violations surface as ErrEmailTaken.
type Repository interface {
	Create(ctx context.Context, u User) error
	GetByID(ctx context.Context, id domain.UserID) (User, error)
	// GetByEmail looks up a user by normalized (lowercase) email.
	GetByEmail(ctx context.Context, email string) (User, error)
}
