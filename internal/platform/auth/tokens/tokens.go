package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/platform/config"
)

// KindAccess is the only token kind this service accepts.
const KindAccess = "access"

var (
	ErrExpiredToken   = errors.New("token expired")
	ErrMalformedToken = errors.New("malformed or forged token")
	ErrWrongTokenKind = errors.New("wrong token kind")
)

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Claims is the payload of an access token.
type Claims struct {
	Email string `json:"email"`
	Kind  string `json:"type"`
	jwt.RegisteredClaims
}

// SubjectID returns the identity carried by the token.
func (c Claims) SubjectID() domain.SubjectID { return domain.SubjectID(c.Subject) }

// Service issues and verifies HS256 access tokens.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	secret   []byte
	issuer   string
	lifetime time.Duration
	leeway   time.Duration
	clock    Clock
}

func New(cfg config.AuthConfig) *Service {
	return NewWithOptions(cfg, nil)
}

func NewWithOptions(cfg config.AuthConfig, clock Clock) *Service {
	if clock == nil {
		clock = realClock{}
	}
	return &Service{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.Issuer,
		lifetime: cfg.AccessLifetime,
		leeway:   cfg.Leeway,
		clock:    clock,
	}
}

// Lifetime is the validity window of issued tokens.
func (s *Service) Lifetime() time.Duration { return s.lifetime }

// Issue signs an access token for subject. The email is stored lowercased and is informational.
func (s *Service) Issue(subject domain.SubjectID, email string) (string, error) {
	if strings.TrimSpace(string(subject)) == "" {
		return "", fmt.Errorf("issue token: empty subject")
	}
	now := s.clock.Now().Truncate(time.Second)
	claims := Claims{
		Email: domain.NormalizeEmail(email),
		Kind:  KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(subject),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, structure, expiry (with leeway) and kind, and returns the claims.
//
// Failures map to exactly one of ErrExpiredToken, ErrMalformedToken, ErrWrongTokenKind.
// The signature is checked before any claim, so a forged token is never reported as expired.
func (s *Service) Verify(raw string) (Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return Claims{}, ErrMalformedToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrMalformedToken
	}
	if !parsed.Valid || claims.Subject == "" || claims.IssuedAt == nil {
		return Claims{}, ErrMalformedToken
	}
	if !claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return Claims{}, ErrMalformedToken
	}
	if claims.Kind != KindAccess {
		return Claims{}, ErrWrongTokenKind
	}
	return claims, nil
}
