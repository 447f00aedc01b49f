package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/lueurxax/feed-digest/internal/app"
	"github.com/lueurxax/feed-digest/internal/platform/config"
	db "github.com/lueurxax/feed-digest/internal/storage"
)

func main() {
	mode := flag.String("mode", "", "Service mode (serve, ingest, build, migrate)")
	channel := flag.String("channel", "", "Channel to build a digest for (build mode)")
	window := flag.Duration("window", 0, "Digest window ending now, defaults to DIGEST_WINDOW (build mode)")
	tenant := flag.String("tenant", "", "Tenant charged for LLM calls (build mode)")

	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := newLogger(cfg.AppEnv)
	setLogLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	database, err := db.NewWithOptions(ctx, cfg.PostgresDSN, db.PoolOptionsFromConfig(&cfg.DatabaseConfig), &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	if err := database.Migrate(ctx); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	application := app.New(cfg, database, &logger)

	if *mode == "serve" || *mode == "ingest" {
		go func() {
			if err := application.StartHealthServer(ctx); err != nil {
				logger.Error().Err(err).Msg("health check server error")
			}
		}()
	}

	buildOpts := app.BuildOptions{ChannelID: *channel, Window: *window, TenantID: *tenant}

	if err := runMode(ctx, application, *mode, buildOpts); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info().Msg("application stopped")
			return
		}

		logger.Fatal().Err(err).Msg("application error")
	}
}

func newLogger(appEnv string) zerolog.Logger {
	if appEnv == "local" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}

	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func setLogLevel(level string) {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(parsed)
}

func runMode(ctx context.Context, application *app.App, mode string, buildOpts app.BuildOptions) error {
	switch mode {
	case "serve":
		return application.RunServe(ctx)
	case "ingest":
		return application.RunIngest(ctx)
	case "build":
		result, err := application.RunBuild(ctx, buildOpts)
		if err != nil {
			return err
		}

		fmt.Println(result.Overview)

		return nil
	case "migrate":
		return nil
	default:
		log.Fatalf("Usage: %s --mode=[serve|ingest|build|migrate] [--channel=ID --window=24h --tenant=T]", os.Args[0])

		return nil
	}
}
