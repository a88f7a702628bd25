package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/abhisek/quizforge/internal/cache"
	"github.com/abhisek/quizforge/internal/config"
	"github.com/abhisek/quizforge/internal/llm"
	"github.com/abhisek/quizforge/internal/quizgen"
	"github.com/abhisek/quizforge/internal/server"
	"github.com/abhisek/quizforge/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		logger := newLogger(cfg.Server.LogLevel)
		slog.SetDefault(logger)

		repo, closeStore, err := openEventRepo(cmd, cfg.Store)
		if err != nil {
			return err
		}
		defer closeStore()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		llmCfg := llm.ConfigFromEnv()
		provider, err := llm.NewProvider(ctx, llmCfg, repo)
		if err != nil {
			return fmt.Errorf("create LLM provider: %w", err)
		}

		svc := quizgen.New(provider, cache.New(cache.WithCapacity(cfg.Generation.CacheCapacity)), quizgen.Config{
			BatchSize:       cfg.Generation.BatchSize,
			InterBatchDelay: cfg.Generation.InterBatchDelay,
			MaxTokens:       cfg.Generation.MaxTokens,
			Temperature:     cfg.Generation.Temperature,
		}, logger)

		srv := server.New(svc, cfg.Server, logger)
		logger.Info("configuration loaded",
			"port", cfg.Server.Port,
			"log_level", cfg.Server.LogLevel,
			"models", llmCfg.Models,
			"batch_size", cfg.Generation.BatchSize)
		return srv.Run(ctx)
	},
}

// newLogger builds the process-wide JSON logger.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}

// openEventRepo resolves the event log destination. "disabled" turns
// logging off entirely.
func openEventRepo(cmd *cobra.Command, cfg config.StoreConfig) (store.EventRepo, func(), error) {
	if cfg.Path == "disabled" {
		return store.NopEventRepo{}, func() {}, nil
	}
	path := cfg.Path
	if path == "" {
		var err error
		path, err = resolveDBPath(cmd)
		if err != nil {
			return nil, nil, fmt.Errorf("resolve database path: %w", err)
		}
	} else if err := store.EnsureDir(path); err != nil {
		return nil, nil, fmt.Errorf("create database directory: %w", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return s.EventRepo(), func() { s.Close() }, nil
}
