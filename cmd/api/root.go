package main

import (
	"github.com/spf13/cobra"

	"github.com/gather-events/events-api/internal/platform/config"
)

// flags override the environment when set.
type flags struct {
	port     int
	storage  string
	logLevel string
}

func (f flags) apply(cfg *config.Config) {
	if f.port != 0 {
		cfg.Server.Port = f.port
	}
	if f.storage != "" {
		cfg.Storage.Backend = config.StorageBackend(f.storage)
	}
	if f.logLevel != "" {
		cfg.Logging.Level = f.logLevel
	}
}

func newRootCmd() *cobra.Command {
	var f flags

	serve := newServeCmd(&f)
	root := &cobra.Command{
		Use:           "events-api",
		Short:         "Events API server",
		Long:          "JSON API for publishing, browsing and attending events.",
		SilenceUsage:  true,
		SilenceErrors: true,
		// serve is the default when no subcommand is given.
		RunE: serve.RunE,
	}
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error) (default: LOG_LEVEL or info)")
	root.PersistentFlags().IntVar(&f.port, "port", 0, "HTTP port (default: SERVER_PORT or 8080)")
	root.PersistentFlags().StringVar(&f.storage, "storage", "", "storage backend: memory, postgres or mongo (default: STORAGE_BACKEND or memory)")

	root.AddCommand(serve)
	root.AddCommand(newMigrateCmd())
	return root
}

func loadConfig(f flags) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	f.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
