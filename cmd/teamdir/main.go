package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"teamdir.dev/internal/config"
	"teamdir.dev/internal/handlers"
	"teamdir.dev/internal/loader"
	"teamdir.dev/internal/logging"
	"teamdir.dev/internal/services"
	"teamdir.dev/internal/view"
)

type app struct {
	configFile string
	verbose    bool

	v      *viper.Viper
	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "teamdir",
		Short: "Team directory server",
		Long: `teamdir renders a project's collaborators as cards and lets
visitors filter them by role.

The dataset is a JSON document fetched over HTTP:
  {"project": {...}, "collaborators": [...]}`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&a.configFile, "config", "", "config file (default ./teamdir.yaml)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("data-url", "", "dataset URL, relative URLs resolve against --base-url")
	root.PersistentFlags().String("base-url", "", "base URL for relative dataset URLs")

	root.AddCommand(a.serveCmd(), a.renderCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	v, err := config.New(a.configFile)
	if err != nil {
		return err
	}
	for key, flag := range map[string]string{
		"data_url":    "data-url",
		"base_url":    "base-url",
		"server_addr": "addr",
		"data_dir":    "data-dir",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}

	cfg, err := config.Load(v)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File, Verbose: a.verbose})
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	a.v, a.cfg, a.logger = v, cfg, logger
	return nil
}

func (a *app) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the team directory over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().String("data-dir", "", "directory holding data.json (default data)")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	directory := services.NewDirectoryService(services.DirectoryConfig{
		Source:    loader.New(loader.WithBaseURL(a.cfg.BaseURL)),
		DataURL:   a.cfg.DataURL,
		Options:   a.cfg.View,
		Scheduler: view.TimerScheduler,
		TTL:       a.cfg.SessionTTL,
		Logger:    a.logger,
	})
	defer directory.Close()

	srv := &http.Server{
		Addr:              a.cfg.ServerAddr,
		Handler:           handlers.SetupRoutes(handlers.Deps{Directory: directory, DataPath: a.cfg.DataPath, Logger: a.logger}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		ticker := time.NewTicker(a.cfg.SessionTTL)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				directory.Sweep()
			}
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("Server starting", zap.String("addr", srv.Addr), zap.String("data_url", a.cfg.DataURL))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func (a *app) renderCmd() *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "render <output-dir>",
		Short: "Render the directory to a static index.html",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd.Context(), args[0], filter)
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "filter to apply before rendering")
	return cmd
}

func (a *app) render(ctx context.Context, outputDir, filter string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	sched := view.NewManualScheduler()
	controller := view.NewController(a.cfg.View, sched, a.logger)
	defer controller.Close()

	// A failed load still renders the page with its error message
	loadErr := controller.Start(ctx, loader.New(loader.WithBaseURL(a.cfg.BaseURL)), a.cfg.DataURL)

	if filter != "" && loadErr == nil {
		if err := controller.Activate(filter); err != nil {
			return err
		}
		// Let every transition settle so the page shows the resting state
		sched.Advance(a.cfg.View.HideDelay + a.cfg.View.RevealDelay)
	}

	f, err := os.Create(filepath.Join(outputDir, "index.html"))
	if err != nil {
		return fmt.Errorf("failed to create index.html: %w", err)
	}
	defer f.Close()

	snapshot := controller.Snapshot()
	if err := view.RenderPage(f, snapshot); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}

	a.logger.Info("Rendered page",
		zap.String("path", f.Name()),
		zap.Int("cards", len(snapshot.Cards)),
		zap.Int("visible", snapshot.VisibleCount()))
	return loadErr
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
