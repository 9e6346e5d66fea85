package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"opsboard/internal/client/api"
	"opsboard/internal/client/cli"
	"opsboard/internal/client/config"
	"opsboard/internal/client/creds"
	"opsboard/internal/logging"
)

func main() {
	cfg := config.New()

	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	})))

	store := creds.NewFileStore(cfg.CredentialsFile, logger)
	gateway := api.NewGateway(cfg.ServerBaseURL, cfg.RequestTimeout, store, logger)
	app := cli.NewApp(gateway, store, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("cli error: %v", err)
	}
}
