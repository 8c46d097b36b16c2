package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/racingnotes/racingnotes-server/internal/config"
	"github.com/racingnotes/racingnotes-server/internal/di"
	"github.com/racingnotes/racingnotes-server/internal/di/providers"
	"github.com/racingnotes/racingnotes-server/internal/logger"
	"github.com/racingnotes/racingnotes-server/internal/service"
)

// rootCommand creates the CLI. Running it without a subcommand serves the API.
func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "racingnotes",
		Short:         "Racing Notes server",
		Long:          "Serves the Racing Notes API and runs its maintenance tasks.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}

	config.RegisterFlags(root.PersistentFlags())

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Serve the HTTP API",
			RunE:  runServe,
		},
		&cobra.Command{
			Use:   "refresh",
			Short: "Rebuild the note read model",
			RunE:  runRefresh,
		},
		&cobra.Command{
			Use:   "sweep",
			Short: "Retry pending blob deletions and remove orphaned objects",
			RunE:  runSweep,
		},
		&cobra.Command{
			Use:   "reindex",
			Short: "Rebuild the search index from the database",
			RunE:  runReindex,
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version)
			},
		},
	)

	return root
}

// newContainer resolves configuration from the command's flags.
func newContainer(cmd *cobra.Command) (*config.Loader, *do.RootScope, error) {
	loader, err := config.NewLoader(cmd.Flags())
	if err != nil {
		return nil, nil, err
	}
	return loader, di.NewContainer(loader, providers.BuildInfo{Version: version}), nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	loader, injector, err := newContainer(cmd)
	if err != nil {
		return err
	}

	if err := di.Bootstrap(injector); err != nil {
		_ = injector.Shutdown()
		return fmt.Errorf("bootstrap server: %w", err)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	// Log level edits in the config file apply without a restart.
	loader.Watch(func(cfg *config.Config) {
		level := logger.ParseLevel(cfg.Logger.Level)
		if level != log.Level() {
			log.SetLevel(level)
			log.Info("Log level changed", "level", cfg.Logger.Level)
		}
	}, func(err error) {
		log.Warn("Ignoring invalid config change", "error", err)
	})

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	// The container shuts services down in reverse dependency order.
	if err := injector.Shutdown(); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
	return nil
}

// runTask invokes a service from a fresh container, runs fn and closes everything.
func runTask[T any](cmd *cobra.Command, fn func(ctx context.Context, svc T, log *logger.Logger) error) error {
	_, injector, err := newContainer(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = injector.Shutdown() }()

	svc, err := do.Invoke[T](injector)
	if err != nil {
		return err
	}
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return fn(ctx, svc, log)
}

func runRefresh(cmd *cobra.Command, _ []string) error {
	return runTask(cmd, func(ctx context.Context, svc *service.ReadModelService, log *logger.Logger) error {
		rows, err := svc.Refresh(ctx)
		if err != nil {
			return err
		}
		log.Info("Read model refreshed", "rows", rows)
		return nil
	})
}

func runSweep(cmd *cobra.Command, _ []string) error {
	return runTask(cmd, func(ctx context.Context, svc *service.Sweeper, log *logger.Logger) error {
		res, err := svc.Sweep(ctx)
		if err != nil {
			return err
		}
		log.Info("Blob sweep finished",
			"retried", res.Retried,
			"deleted", res.Deleted,
			"failed", res.Failed,
			"orphans_deleted", res.OrphansDeleted,
			"pending", res.Pending,
		)
		return nil
	})
}

func runReindex(cmd *cobra.Command, _ []string) error {
	return runTask(cmd, func(ctx context.Context, svc *service.SearchService, log *logger.Logger) error {
		n, err := svc.Reindex(ctx)
		if err != nil {
			return err
		}
		log.Info("Search index rebuilt", "documents", n)
		return nil
	})
}
