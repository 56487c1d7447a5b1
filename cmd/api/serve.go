package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gather-events/events-api/internal/adapters/httpapi"
	"github.com/gather-events/events-api/internal/adapters/natspub"
	"github.com/gather-events/events-api/internal/app/events"
	"github.com/gather-events/events-api/internal/app/users"
	"github.com/gather-events/events-api/internal/platform/auth/password"
	"github.com/gather-events/events-api/internal/platform/auth/tokens"
	platformclock "github.com/gather-events/events-api/internal/platform/clock"
	"github.com/gather-events/events-api/internal/platform/config"
	"github.com/gather-events/events-api/internal/platform/metrics"
	"github.com/gather-events/events-api/internal/ports/out/notifier"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server and handle graceful shutdown on SIGINT/SIGTERM.

Configuration comes from the environment; --port, --storage and --log-level override it.

Examples:
  events-api serve
  events-api serve --storage postgres --port 9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*f)
			if err != nil {
				return fmt.Errorf("config error: %w", err)
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, cfg)
		},
	}
}

func runServer(ctx context.Context, cfg config.Config) error {
	logger := config.NewLogger(cfg.Logging)
	logger.Info().
		Str("storage", string(cfg.Storage.Backend)).
		Str("environment", cfg.Environment).
		Msg("starting events api")

	clk := platformclock.NewSystemClock()

	initCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	backend, err := openStore(initCtx, cfg.Storage, clk)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := backend.shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("store shutdown")
		}
	}()

	if backend.maintain != nil {
		go backend.maintain(ctx, logger)
	}

	var pub notifier.Publisher = notifier.Discard{}
	if cfg.Notify.NATSURL != "" {
		np, err := natspub.NewPublisher(cfg.Notify.NATSURL, cfg.Notify.SubjectPrefix, logger)
		if err != nil {
			return err
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = np.Close(closeCtx)
		}()
		pub = np
		logger.Info().Str("prefix", cfg.Notify.SubjectPrefix).Msg("publishing event changes to nats")
	}

	m := metrics.New()
	tok := tokens.New(cfg.Auth)
	eventsSvc := events.NewService(backend.events, pub, clk)
	eventsSvc.SetChangeObserver(m.ObserveChange)
	usersSvc := users.NewService(backend.users, password.New(cfg.Auth.BcryptCost), tok, clk)

	api := httpapi.NewServer(eventsSvc, usersSvc, httpapi.NewAuthenticator(tok), backend.idem)
	handler := httpapi.NewRouter(api, httpapi.RouterOptions{
		Logger:         logger,
		Metrics:        m,
		LoginPerMinute: cfg.RateLimit.LoginPerMinute,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	return serve(ctx, srv, logger)
}

func serve(ctx context.Context, srv *http.Server, logger zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("api listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}
	return nil
}
