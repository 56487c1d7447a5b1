package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gather-events/events-api/internal/platform/auth/tokens"
	"github.com/gather-events/events-api/internal/platform/config"
)

func TestTokenEndpoint(t *testing.T) {
	tok := tokens.New(config.AuthConfig{
		JWTSecret:      "0123456789abcdef0123456789abcdef",
		Issuer:         "events-api",
		AccessLifetime: 30 * time.Minute,
	})
	h := newHandler(tok)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token?sub=6A1D9A56-8A38-4B0F-9A0F-1DF0C8BB7A11&email=Dev@Example.com", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "6a1d9a56-8a38-4b0f-9a0f-1df0c8bb7a11", got.Subject)
	assert.Equal(t, 1800, got.ExpiresIn)

	claims, err := tok.Verify(got.Access)
	require.NoError(t, err)
	assert.Equal(t, got.Subject, claims.Subject)
	assert.Equal(t, "dev@example.com", claims.Email)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/token?sub=not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
