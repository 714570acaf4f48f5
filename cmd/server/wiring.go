package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"raisebar/internal/config"
	"raisebar/internal/judge"
	"raisebar/internal/match"
	"raisebar/internal/services/llm"
	"raisebar/internal/services/stt"
	"raisebar/internal/store"
)

func newLogger(cfg config.LoggingConfig, out io.Writer) *slog.Logger {
	logOpts := &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Level),
	}

	if resolveLogFormat(cfg.Format, out) == "json" {
		return slog.New(slog.NewJSONHandler(out, logOpts))
	}
	return slog.New(slog.NewTextHandler(out, logOpts))
}

// resolveLogFormat turns "auto" into text on a terminal and json elsewhere
func resolveLogFormat(format string, out io.Writer) string {
	if format != "auto" {
		return format
	}
	if isTerminal(out) {
		return "text"
	}
	return "json"
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newBackends(cfg *config.Config) map[string]judge.Backend {
	b := cfg.Backends
	return map[string]judge.Backend{
		judge.BackendFeatherless: llm.NewClient(llm.Config{
			Name:           judge.BackendFeatherless,
			APIKey:         b.Featherless.APIKey,
			BaseURL:        b.Featherless.BaseURL,
			Model:          b.Featherless.Model,
			Referer:        b.Referer,
			Title:          b.Title,
			TimeoutSeconds: b.TimeoutSeconds,
		}),
		judge.BackendK2: llm.NewClient(llm.Config{
			Name:           judge.BackendK2,
			APIKey:         b.K2.APIKey,
			BaseURL:        b.K2.BaseURL,
			Model:          b.K2.Model,
			Referer:        b.Referer,
			Title:          b.Title,
			TimeoutSeconds: b.TimeoutSeconds,
			RequireBaseURL: true,
		}),
	}
}

func newPanel(cfg *config.Config, logger *slog.Logger) (*judge.Panel, error) {
	defs := judge.DefaultDefinitions()
	if path := strings.TrimSpace(cfg.Judges.PanelFile); path != "" {
		loaded, err := judge.LoadDefinitions(path)
		if err != nil {
			return nil, err
		}
		defs = loaded
		logger.Info("judge panel loaded", "path", path, "judges", len(defs))
	}
	return judge.NewPanel(defs, newBackends(cfg),
		judge.WithPacing(cfg.Judges.Pacing),
		judge.WithLogger(logger),
	)
}

// newRefiner returns nil when no speech-to-text key is configured
func newRefiner(cfg *config.Config) match.Refiner {
	client := stt.NewClient(stt.Config{
		APIKey:         cfg.STT.APIKey,
		Endpoint:       cfg.STT.Endpoint,
		Model:          cfg.STT.Model,
		Language:       cfg.STT.Language,
		TimeoutSeconds: cfg.STT.TimeoutSeconds,
	}, nil)
	if !client.Configured() {
		return nil
	}
	return client
}

// openArchive returns nil when DB_PATH is empty
func openArchive(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if strings.TrimSpace(cfg.Store.Path) == "" {
		return nil, nil
	}
	return store.Open(ctx, cfg.Store.Path)
}

func matchTimings(cfg config.MatchConfig) match.Timings {
	return match.Timings{
		IntroDelay:     cfg.IntroDelay,
		CountdownTicks: cfg.CountdownTicks,
		TickInterval:   cfg.TickInterval,
		RecordDuration: cfg.RecordDuration,
		TurnGap:        cfg.TurnGap,
		JudgingDelay:   cfg.JudgingDelay,
	}
}
