package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"raisebar/internal/app"
	"raisebar/internal/match"
	httpTransport "raisebar/internal/transport/http"
)

const shutdownTimeout = 30 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the match server (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), ctx)
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "Listen port (overrides PORT)")
	return cmd
}

func runServe(runCtx context.Context, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Logging, os.Stdout)

	logger.Info("starting raisebar server",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
	)

	panel, err := newPanel(cfg, logger)
	if err != nil {
		return err
	}

	archive, err := openArchive(runCtx, cfg)
	if err != nil {
		return err
	}
	var sessions httpTransport.SessionHistory
	var sink match.Archive
	if archive != nil {
		defer archive.Close()
		sessions = archive
		sink = archive
		logger.Info("session archive open", "path", archive.Path())
	} else {
		logger.Warn("session archive disabled")
	}

	refiner := newRefiner(cfg)
	if refiner == nil {
		logger.Warn("speech-to-text refinement disabled, live transcripts only")
	}

	// Create match hub
	hub := app.NewMatchHub(app.HubConfig{
		Refiner:      refiner,
		Judges:       panel,
		Archive:      sink,
		Timings:      matchTimings(cfg.Match),
		MaxClipBytes: cfg.Capture.MaxClipBytes,
		Logger:       logger,
	})
	defer hub.Close()

	// Create HTTP server
	server := httpTransport.NewServer(cfg, hub, sessions, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for interrupt signal
	select {
	case err, ok := <-errCh:
		if ok {
			logger.Error("server error", "error", err)
			return err
		}
	case <-runCtx.Done():
	}

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server stopped")
	return nil
}
