package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/platform/auth/tokens"
)

// ErrUnauthorized is the only failure Required reports; the reason is logged, not returned.
var ErrUnauthorized = errors.New("unauthorized")

var errNoCredential = errors.New("no bearer credential")

// TokenVerifier checks an access token and returns its claims.
type TokenVerifier interface {
	Verify(raw string) (tokens.Claims, error)
}

// Authenticator resolves the caller of a request from its Authorization header.
// Handlers call Required or Optional explicitly; it never touches the store.
type Authenticator struct {
	tokens TokenVerifier
}

func NewAuthenticator(v TokenVerifier) *Authenticator {
	return &Authenticator{tokens: v}
}

// Required resolves the caller or fails with ErrUnauthorized.
func (a *Authenticator) Required(r *http.Request) (Identity, error) {
	id, err := a.resolve(r)
	if err != nil {
		zerolog.Ctx(r.Context()).Debug().Err(err).Msg("authentication failed")
		return Anonymous, ErrUnauthorized
	}
	return id, nil
}

// Optional resolves the caller, degrading to Anonymous on any failure.
func (a *Authenticator) Optional(r *http.Request) Identity {
	id, err := a.resolve(r)
	if err != nil {
		if !errors.Is(err, errNoCredential) {
			zerolog.Ctx(r.Context()).Debug().Err(err).Msg("ignoring invalid credential")
		}
		return Anonymous
	}
	return id
}

func (a *Authenticator) resolve(r *http.Request) (Identity, error) {
	raw, ok := bearerToken(r.Header.Get("Authorization"))
	if !ok {
		return Anonymous, errNoCredential
	}
	claims, err := a.tokens.Verify(raw)
	if err != nil {
		return Anonymous, err
	}
	return Identity{Subject: domain.SubjectID(claims.Subject), Email: claims.Email}, nil
}

// bearerToken extracts the token from "Bearer <token>". Any other scheme is no credential.
func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	// Exactly one space after the scheme and no whitespace inside the token.
	raw := header[len(prefix):]
	if raw == "" || strings.ContainsAny(raw, " \t\r\n") {
		return "", false
	}
	return raw, true
}
