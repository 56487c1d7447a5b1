package users

import "github.com/gather-events/events-api/internal/domain"

// RegisterInput is the registration payload. Email is normalized before validation.
type RegisterInput struct {
	Email       string  `json:"email" validate:"required,email,max=254"`
	Password    string  `json:"password" validate:"required,min=8,max=72"`
	FirstName   string  `json:"firstName" validate:"max=100"`
	LastName    string  `json:"lastName" validate:"max=100"`
	DateOfBirth *string `json:"dateOfBirth" validate:"omitempty,datetime=2006-01-02"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Session is a user together with a freshly issued access token.
type Session struct {
	User        domain.User
	AccessToken string
}

// PasswordHasher produces and checks opaque password digests.
type PasswordHasher interface {
	Hash(raw string) (string, error)
	Verify(digest, raw string) bool
}

// TokenIssuer signs access tokens for a subject.
type TokenIssuer interface {
	Issue(subject domain.SubjectID, email string) (string, error)
}
