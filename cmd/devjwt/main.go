package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gather-events/events-api/internal/domain"
	"github.com/gather-events/events-api/internal/platform/auth/tokens"
	"github.com/gather-events/events-api/internal/platform/config"
)

// Dev-only token minting server. It signs access tokens with the same JWT_SECRET as the
// API so local clients can call authenticated routes without registering.

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := config.NewLogger(cfg.Logging)

	addr := ":" + getenv("DEVJWT_PORT", "5556")
	srv := &http.Server{
		Addr:              addr,
		Handler:           newHandler(tokens.New(cfg.Auth)),
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", addr).Msg("devjwt listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("listen")
	}
}

type tokenResponse struct {
	Access    string `json:"access"`
	Subject   string `json:"sub"`
	ExpiresIn int    `json:"expiresIn"`
}

func newHandler(tok *tokens.Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Mint a token:
	//   GET /token?sub=<uuid>&email=alice@example.com
	// A missing sub gets a fresh random UUID.
	r.Get("/token", func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimSpace(r.URL.Query().Get("sub"))
		if sub == "" {
			sub = uuid.NewString()
		} else if parsed, err := uuid.Parse(sub); err == nil {
			sub = parsed.String()
		} else {
			http.Error(w, "sub must be a UUID", http.StatusBadRequest)
			return
		}
		email := strings.TrimSpace(r.URL.Query().Get("email"))
		if email == "" {
			email = "dev@example.com"
		}

		raw, err := tok.Issue(domain.SubjectID(sub), email)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("mint token")
			http.Error(w, "failed to mint token", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(tokenResponse{
			Access:    raw,
			Subject:   sub,
			ExpiresIn: int(tok.Lifetime().Seconds()),
		})
	})
	return r
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
