package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"volumetracker/config"
	"volumetracker/internal/app"
	"volumetracker/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRootCmd() *cobra.Command {
	var configDir string

	rootCmd := &cobra.Command{
		Use:   "tracker",
		Short: "Shanghai/Shenzhen turnover tracker",
		Long: `tracker polls the Shanghai composite and Shenzhen component indices, keeps an
hourly turnover series per day plus one closing record per day, and serves both over HTTP.`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configDir, "config", "", "directory containing config.yaml")

	rootCmd.AddCommand(
		newServeCmd(&configDir),
		newRunCmd(&configDir),
		newOnceCmd(&configDir),
	)
	return rootCmd
}

func newServeCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the update loop and the HTTP read API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *configDir, func(ctx context.Context, a *app.App) error {
				return a.Serve(ctx)
			})
		},
	}
}

func newRunCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the update loop only",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *configDir, func(ctx context.Context, a *app.App) error {
				return a.RunScheduler(ctx)
			})
		},
	}
}

func newOnceCmd(configDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run a single update cycle and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), *configDir, func(ctx context.Context, a *app.App) error {
				return a.RunOnce(ctx)
			})
		},
	}
}

// withApp loads config, builds the logger and app, and runs fn with a context
// cancelled on SIGINT/SIGTERM.
func withApp(parent context.Context, configDir string, fn func(context.Context, *app.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", zap.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("close", zap.Error(err))
		}
	}()

	if err := fn(ctx, a); err != nil {
		log.Error("tracker failed", zap.Error(err))
		return err
	}
	return nil
}
