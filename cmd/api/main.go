package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/poll-extractor/internal/app"
	"github.com/user/poll-extractor/pkg/config"
	"github.com/user/poll-extractor/pkg/logger"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Could not load config", "error", err)
		os.Exit(2)
	}

	// --- Logger ---
	logLevel := logger.ParseLevel(cfg.LogLevel)
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	// --- Pipeline ---
	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer application.Close()

	// --- HTTP Server ---
	server := application.Server(nil)

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exited")
}
