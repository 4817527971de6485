package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/molchalih/inst2txt/internal/app"
	"github.com/molchalih/inst2txt/internal/platform/config"
	db "github.com/molchalih/inst2txt/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (analyze, worker, embed, migrate, report)")
	creator := flag.Int64("creator", 0, "Creator id for similarity lookup (report mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.New(ctx, cfg.PostgresDSN, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	// Start health server in background
	go func() {
		if err := application.StartHealthServer(ctx); err != nil {
			logger.Error().Err(err).Msg("health check server error")
		}
	}()

	if err := runMode(ctx, application, *mode, *creator); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	if cfg.IsLocal() {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
}

func runMode(ctx context.Context, application *app.App, mode string, creator int64) error {
	switch mode {
	case "analyze":
		return application.RunAnalyze(ctx)
	case "worker":
		return application.RunWorker(ctx)
	case "embed":
		return application.RunEmbed(ctx)
	case "migrate":
		// Migrations already ran during startup.
		return nil
	case "report":
		return application.RunReport(ctx, creator)
	default:
		log.Fatalf("Usage: %s --mode=[analyze|worker|embed|migrate|report]", os.Args[0])

		return nil
	}
}
