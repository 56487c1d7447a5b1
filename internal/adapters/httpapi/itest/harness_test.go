package itest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gather-events/events-api/internal/adapters/httpapi"
	memclock "github.com/gather-events/events-api/internal/adapters/memory/clock"
	memeventrepo "github.com/gather-events/events-api/internal/adapters/memory/eventrepo"
	memidempotency "github.com/gather-events/events-api/internal/adapters/memory/idempotency"
	memnotifier "github.com/gather-events/events-api/internal/adapters/memory/notifier"
	memuserrepo "github.com/gather-events/events-api/internal/adapters/memory/userrepo"
	pgeventrepo "github.com/gather-events/events-api/internal/adapters/postgres/eventrepo"
	pgidempotency "github.com/gather-events/events-api/internal/adapters/postgres/idempotency"
	postgres_testutil "github.com/gather-events/events-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/gather-events/events-api/internal/adapters/postgres/userrepo"
	"github.com/gather-events/events-api/internal/app/events"
	"github.com/gather-events/events-api/internal/app/users"
	"github.com/gather-events/events-api/internal/platform/auth/password"
	"github.com/gather-events/events-api/internal/platform/auth/tokens"
	"github.com/gather-events/events-api/internal/platform/config"
	"github.com/gather-events/events-api/internal/platform/metrics"
	eventrepoport "github.com/gather-events/events-api/internal/ports/out/eventrepo"
	idempotencyport "github.com/gather-events/events-api/internal/ports/out/idempotency"
	userrepoport "github.com/gather-events/events-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL string
	client  *http.Client
	notes   *memnotifier.Recorder
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	tok := tokens.NewWithOptions(config.AuthConfig{
		JWTSecret:      "itest-secret-that-is-long-enough!",
		Issuer:         "itest-issuer",
		AccessLifetime: time.Hour,
		Leeway:         time.Second,
	}, clk)

	var (
		eventRepo eventrepoport.Repository
		userRepo  userrepoport.Repository
		idemStore idempotencyport.Store
	)
	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		eventRepo = pgeventrepo.NewRepo(pool)
		userRepo = pguserrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool, idempotencyport.DefaultTTL)
	case backendMemory:
		eventRepo = memeventrepo.NewRepo()
		userRepo = memuserrepo.NewRepo()
		idemStore = memidempotency.NewStoreWithTTL(idempotencyport.DefaultTTL, clk)
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	notes := memnotifier.NewRecorder()
	m := metrics.New()
	eventsSvc := events.NewService(eventRepo, notes, clk)
	eventsSvc.SetChangeObserver(m.ObserveChange)
	usersSvc := users.NewService(userRepo, password.New(4), tok, clk)

	api := httpapi.NewServer(eventsSvc, usersSvc, httpapi.NewAuthenticator(tok), idemStore)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{Logger: zerolog.Nop(), Metrics: m})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL: srv.URL,
		client:  srv.Client(),
		notes:   notes,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, token string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

type session struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
	Access string `json:"access"`
}

// register signs up a fresh account and returns its session.
func (s *testServer) register(t *testing.T, email string) session {
	t.Helper()
	status, body, _ := s.doJSON(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":    email,
		"password": "itest-password",
	})
	require.Equal(t, http.StatusCreated, status, "body=%s", body)
	return mustUnmarshal[session](t, body)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"requestId"`
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(b, &out), "body=%s", string(b))
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	require.Equal(t, wantStatus, status, "body=%s", string(body))
	got := mustUnmarshal[errorResponse](t, body)
	require.Equal(t, wantCode, got.Code, "body=%s", string(body))
	require.NotEmpty(t, got.RequestID)
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	require.NotEmpty(t, strings.TrimSpace(h.Get(key)), "expected header %q to be present", key)
}
