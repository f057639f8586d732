// Package cmd implements the gamebot command-line front end. Every verb
// goes through the library service API; nothing here touches the store or
// the catalog directly.
package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"gamebot/internal/config"
	"gamebot/internal/domain"
	"gamebot/internal/enrich"
	"gamebot/internal/library"
	"gamebot/internal/logging"
	"gamebot/internal/ratelimit"
	"gamebot/internal/steam"
	"gamebot/internal/store"
)

// Version is set at build time via -ldflags
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "gamebot",
	Short:         "Cache and explore your Steam library",
	Long:          "gamebot keeps a durable local cache of your Steam library enriched with genres and descriptions, and answers fuzzy lookups against it.",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the CLI with the given context.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// app bundles the wired-up services for a command invocation.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *store.GameStore
	svc      *library.Service
	enricher *enrich.Client // nil without credentials
}

// newApp loads configuration and wires the store, catalog client, and
// reconciler service.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.Setup(&cfg.Logging)
	if err != nil {
		logger = logging.NullLogger()
	}
	slog.SetDefault(logger)

	if !cfg.IsConfigured() {
		return nil, fmt.Errorf("missing Steam credentials: set STEAM_API_KEY and STEAM_ID (or steam.api_key / steam.user_id in the config file)")
	}

	st, err := store.New(cfg.Cache.File, logging.Component(logger, "store"))
	if err != nil {
		return nil, fmt.Errorf("open cache store: %w", err)
	}

	gate := ratelimit.NewGate(cfg.Steam.RequestInterval)
	client := steam.NewClient(steam.Config{
		APIKey:     cfg.Steam.APIKey,
		UserID:     cfg.Steam.UserID,
		Timeout:    cfg.Steam.Timeout,
		MaxRetries: cfg.Steam.MaxRetries,
		RetryDelay: cfg.Steam.RetryDelay,
	}, gate, logging.Component(logger, "steam"))

	var describer domain.Describer
	var enricher *enrich.Client
	if cfg.Enrich.APIKey != "" {
		enricher = enrich.NewClient(cfg.Enrich.APIKey, cfg.Enrich.BaseURL, cfg.Enrich.Model, logging.Component(logger, "enrich"))
		describer = enricher
	}

	svc := library.NewService(client, st, describer, library.Options{
		ChunkSize:  cfg.Cache.ChunkSize,
		Workers:    cfg.Cache.Workers,
		Expiration: cfg.Cache.Expiration,
		LockPath:   cfg.Cache.File + ".lock",
	}, logging.Component(logger, "library"))

	return &app{cfg: cfg, logger: logger, store: st, svc: svc, enricher: enricher}, nil
}

// Close releases the app's resources.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close store", "error", err)
	}
}
