package users

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/gather-events/events-api/internal/domain"
	clockport "github.com/gather-events/events-api/internal/ports/out/clock"
	"github.com/gather-events/events-api/internal/ports/out/userrepo"
)

const maxPasswordBytes = 72

type Service struct {
	repo   userrepo.Repository
	hasher PasswordHasher
	tokens TokenIssuer
	clk    clockport.Clock

	validate  *validator.Validate
	newUserID func() domain.UserID
}

func NewService(repo userrepo.Repository, hasher PasswordHasher, tokens TokenIssuer, clk clockport.Clock) *Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report JSON field names so details match the request body.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Service{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		clk:      clk,
		validate: v,
		newUserID: func() domain.UserID {
			return domain.UserID(uuid.NewString())
		},
	}
}

// SetNewUserIDForTest overrides user ID generation for deterministic tests.
// It should not be used in production code.
func (s *Service) SetNewUserIDForTest(fn func() domain.UserID) {
	if fn != nil {
		s.newUserID = fn
	}
}

// Register creates an account and signs the new user in.
func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	in.FirstName = domain.NormalizeText(in.FirstName)
	in.LastName = domain.NormalizeText(in.LastName)
	if in.DateOfBirth != nil {
		dob := strings.TrimSpace(*in.DateOfBirth)
		in.DateOfBirth = &dob
		if dob == "" {
			in.DateOfBirth = nil
		}
	}
	if err := s.check(in); err != nil {
		return Session{}, err
	}
	// bcrypt reads at most 72 bytes; multi-byte runes can pass the rune count above.
	if len(in.Password) > maxPasswordBytes {
		return Session{}, &Error{
			Status:  400,
			Code:    CodeValidation,
			Message: "password must be at most 72 bytes",
			Details: map[string]any{"password": "must be at most 72 bytes"},
		}
	}

	digest, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	u := userrepo.User{
		ID:             s.newUserID(),
		Email:          in.Email,
		PasswordDigest: digest,
		FirstName:      in.FirstName,
		LastName:       in.LastName,
		DateOfBirth:    in.DateOfBirth,
		CreatedAt:      s.clk.Now(),
	}
	if err := s.repo.Create(ctx, u); err != nil {
		switch {
		case errors.Is(err, userrepo.ErrEmailTaken):
			return Session{}, &Error{Status: 409, Code: CodeEmailTaken, Message: "email already registered"}
		case errors.Is(err, userrepo.ErrAlreadyExists):
			return Session{}, &Error{Status: 409, Code: CodeUserIDConflict, Message: "user id conflict"}
		}
		return Session{}, err
	}

	return s.session(u)
}

// Login checks credentials. Unknown email and wrong password are indistinguishable.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = domain.NormalizeEmail(in.Email)
	if err := s.check(in); err != nil {
		return Session{}, err
	}

	u, err := s.repo.GetByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return Session{}, errInvalidCredentials()
		}
		return Session{}, err
	}
	if !s.hasher.Verify(u.PasswordDigest, in.Password) {
		return Session{}, errInvalidCredentials()
	}
	return s.session(u)
}

// Profile returns the public profile of the user identified by subject.
func (s *Service) Profile(ctx context.Context, subject domain.SubjectID) (domain.User, error) {
	u, err := s.repo.GetByID(ctx, domain.UserID(subject))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.User{}, &Error{Status: 404, Code: CodeUserNotFound, Message: "user not found"}
		}
		return domain.User{}, err
	}
	return toDomain(u), nil
}

func (s *Service) session(u userrepo.User) (Session, error) {
	token, err := s.tokens.Issue(u.ID.Subject(), u.Email)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: toDomain(u), AccessToken: token}, nil
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	details := make(map[string]any, len(verrs))
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := describe(fe)
		details[fe.Field()] = msg
		msgs = append(msgs, fe.Field()+" "+msg)
	}
	return &Error{Status: 400, Code: CodeValidation, Message: strings.Join(msgs, "; "), Details: details}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "datetime":
		return "must be an ISO date string (YYYY-MM-DD)"
	default:
		return "is invalid"
	}
}

func errInvalidCredentials() *Error {
	return &Error{Status: 401, Code: CodeInvalidCredentials, Message: "invalid email or password"}
}

func toDomain(u userrepo.User) domain.User {
	return domain.User{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DateOfBirth: u.DateOfBirth,
		CreatedAt:   u.CreatedAt,
	}
}
