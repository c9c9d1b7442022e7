package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/exp/slog"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		AddSource: false,
		Level:     cfg.Level(),
	}))

	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := NewSQLDatabase(ctx, cfg.DB.Driver, cfg.DB.URL)
	if err != nil {
		slog.Error("Failed to init the database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	server := NewAPIServer(db, NewTokenIssuer(cfg.JWT.Secret, cfg.JWT.TTL), cfg)
	if err := server.Run(ctx); err != nil {
		slog.Error("Server run error", "error", err)
		os.Exit(1)
	}
}
