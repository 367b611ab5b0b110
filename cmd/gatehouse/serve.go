// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/auth/memory"
	"github.com/gatehouse/gatehouse/internal/auth/postgres"
	"github.com/gatehouse/gatehouse/internal/config"
	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/store"
	"github.com/gatehouse/gatehouse/internal/web"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth service",
		Long: `Start the HTTP auth service and its observability endpoints.
Configuration comes from defaults, the --config file, GATEHOUSE_*
environment variables, and flags, in that order.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	// Flag names mirror config keys so they feed straight into the loader.
	cmd.Flags().String("server.addr", "", "HTTP listen address")
	cmd.Flags().String("server.metrics_addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().Bool("database.memory", false, "use the in-memory store (development only)")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logging.SetDefault("gatehouse", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))

	slog.Info("starting gatehouse",
		"addr", cfg.Server.Addr,
		"memory_store", cfg.Database.Memory,
	)

	var users auth.UserRepository
	if cfg.Database.Memory {
		slog.Warn("using in-memory store, state is lost on restart")
		users = memory.NewUserRepository()
	} else {
		pool, err := store.Connect(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = postgres.NewUserRepository(pool)
	}

	svc, err := auth.NewService(users, auth.NewArgon2idHasher())
	if err != nil {
		return err
	}
	strategy, err := auth.NewBasicStrategy(svc)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.Server.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.Server.MetricsAddr, func() bool { return true })
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		metrics = obsServer.Metrics()
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	webServer, err := web.NewServer(cfg.Server.Addr, svc, strategy, web.Options{
		Metrics:       metrics,
		ExcludedPaths: cfg.Auth.ExcludedPaths,
	})
	if err != nil {
		return err
	}
	webErrCh, err := webServer.Start()
	if err != nil {
		return oops.With("operation", "start web server").Wrap(err)
	}
	go monitorServerErrors(ctx, cancel, webErrCh, "web")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	slog.Info("gatehouse ready", "addr", webServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

// monitorServerErrors cancels the run context when a server fails, so one
// broken listener takes the whole process down cleanly.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
