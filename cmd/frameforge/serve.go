package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxbowmantella/frameforge/internal/build"
	"github.com/oxbowmantella/frameforge/internal/catalog"
	"github.com/oxbowmantella/frameforge/internal/config"
	"github.com/oxbowmantella/frameforge/internal/event"
	"github.com/oxbowmantella/frameforge/internal/metrics"
	"github.com/oxbowmantella/frameforge/internal/registry"
	"github.com/oxbowmantella/frameforge/internal/server"
	"github.com/oxbowmantella/frameforge/internal/store"
	"github.com/oxbowmantella/frameforge/internal/version"
	"github.com/oxbowmantella/frameforge/pkg/plugin"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "port to listen on (overrides server.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("FrameForge server starting", zap.String("version", version.Short()))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort > 0 {
		cfg.Viper().Set("server.port", servePort)
	}

	db, err := store.New(cfg.GetString("database.path"))
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := newSearcher(cfg, logger.Named("search"))
	if err != nil {
		return err
	}
	ec, err := engineConfig(cfg)
	if err != nil {
		return err
	}

	m := metrics.New()
	bus := event.NewBus(logger.Named("event"))

	reg := registry.New(logger)
	builds := build.New(m)
	for _, p := range []plugin.Plugin{builds, catalog.New(searcher, ec, builds, m)} {
		if err := reg.Register(p); err != nil {
			return err
		}
	}
	if err := reg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	depsFor := func(name string) plugin.Dependencies {
		return plugin.Dependencies{
			Config: cfg.Sub("plugins." + name),
			Logger: logger.Named(name),
			Store:  db,
			Bus:    bus,
			Now:    time.Now,
		}
	}
	if err := reg.InitAll(ctx, depsFor); err != nil {
		return err
	}
	if err := reg.StartAll(ctx); err != nil {
		return err
	}

	var rl server.RateLimitConfig
	if err := cfg.UnmarshalKey("server.rate_limit", &rl); err != nil {
		return fmt.Errorf("decode server.rate_limit: %w", err)
	}
	srv := server.New(server.Options{
		Addr:         cfg.Addr(),
		ReadTimeout:  cfg.GetDuration("server.read_timeout"),
		WriteTimeout: cfg.GetDuration("server.write_timeout"),
		RateLimit:    rl,
	}, reg, m, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	logger.Info("FrameForge server ready", zap.String("addr", cfg.Addr()))

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("server error", zap.Error(serveErr))
		}
	}

	timeout := cfg.GetDuration("server.shutdown_timeout")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var shutdownErr error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("server shutdown: %w", err)
	}
	reg.StopAll(shutdownCtx)
	bus.Wait()

	logger.Info("FrameForge server stopped")
	return errors.Join(serveErr, shutdownErr)
}
