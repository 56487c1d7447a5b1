package tokens_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memclock "github.com/gather-events/events-api/internal/adapters/memory/clock"
	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/platform/auth/tokens"
	"github.com/gather-events/events-api/internal/platform/config"
)

const secret = "test-secret-test-secret-test-secret!"

func newService(t *testing.T) (*tokens.Service, *memclock.ManualClock) {
	t.Helper()
	clk := memclock.NewManualClock(time.Unix(1700000000, 0).UTC())
	svc := tokens.NewWithOptions(config.AuthConfig{
		JWTSecret:      secret,
		Issuer:         "test-iss",
		AccessLifetime: 30 * time.Minute,
		Leeway:         10 * time.Second,
	}, clk)
	return svc, clk
}

func TestService_IssueThenVerify(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	for _, sub := range []string{"8c1f0d3e-8f5e-4c0a-9d7e-2b7a1c9e4f10", "user|42", "ü-ñ"} {
		raw, err := svc.Issue(domain.SubjectID(sub), "  Alice@Example.COM ")
		require.NoError(t, err)
		require.Len(t, strings.Split(raw, "."), 3)

		claims, err := svc.Verify(raw)
		require.NoError(t, err)
		assert.Equal(t, sub, claims.Subject)
		assert.Equal(t, domain.SubjectID(sub), claims.SubjectID())
		assert.Equal(t, "alice@example.com", claims.Email)
		assert.Equal(t, tokens.KindAccess, claims.Kind)
		assert.Equal(t, int64(30*60), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
	}
}

func TestService_Issue_EmptySubject(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	_, err := svc.Issue("", "a@example.com")
	require.Error(t, err)
}

func TestService_Verify_Expired(t *testing.T) {
	t.Parallel()

	svc, clk := newService(t)
	raw, err := svc.Issue("sub-1", "a@example.com")
	require.NoError(t, err)

	// Within leeway.
	clk.Advance(30*time.Minute + 5*time.Second)
	_, err = svc.Verify(raw)
	require.NoError(t, err)

	clk.Advance(10 * time.Second)
	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, tokens.ErrExpiredToken)
}

func TestService_Verify_Forged(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	other := tokens.New(config.AuthConfig{
		JWTSecret:      "another-secret-another-secret-1234",
		Issuer:         "test-iss",
		AccessLifetime: time.Hour,
	})
	raw, err := other.Issue("sub-1", "a@example.com")
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, tokens.ErrMalformedToken)
}

func TestService_Verify_Garbage(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	for _, raw := range []string{"", "abc", "a.b.c", "   "} {
		_, err := svc.Verify(raw)
		assert.ErrorIs(t, err, tokens.ErrMalformedToken, raw)
	}
}

func TestService_Verify_WrongKind(t *testing.T) {
	t.Parallel()

	svc, clk := newService(t)
	now := clk.Now()
	claims := tokens.Claims{
		Email: "a@example.com",
		Kind:  "refresh",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sub-1",
			Issuer:    "test-iss",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, tokens.ErrWrongTokenKind)
}

func TestService_Verify_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	svc, clk := newService(t)
	now := clk.Now()
	claims := tokens.Claims{
		Kind: tokens.KindAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "sub-1",
			Issuer:    "test-iss",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, tokens.ErrMalformedToken)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(unsigned)
	require.ErrorIs(t, err, tokens.ErrMalformedToken)
}

func TestService_Verify_WrongIssuer(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	other := tokens.New(config.AuthConfig{
		JWTSecret:      secret,
		Issuer:         "someone-else",
		AccessLifetime: time.Hour,
	})
	raw, err := other.Issue("sub-1", "a@example.com")
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	require.ErrorIs(t, err, tokens.ErrMalformedToken)
}
