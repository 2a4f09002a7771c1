package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"qpinta/internal/config"
	"qpinta/internal/logger"
	"qpinta/internal/server"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func gracefulShutdown(webServer *server.Server, logger *zap.Logger, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	logger.Info("Shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// In-flight page renders get 30 seconds to finish
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := webServer.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	if err := webServer.Close(); err != nil {
		logger.Error("Error closing server resources", zap.Error(err))
	}

	logger.Info("Server exiting")

	done <- true
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, "web")
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.Session.Secret == "" {
		if !cfg.IsDevelopment() {
			log.Fatal("SESSION_SECRET must be set in production")
		}
		cfg.Session.Secret = uuid.NewString()
		log.Warn("SESSION_SECRET not set, client cookies will not survive a restart")
	}

	log.Info("Starting Q'Pinta web",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("backend", cfg.Backend.URL),
		zap.String("session_store", cfg.Session.Store),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := server.Open(ctx, cfg, log)
	cancel()
	if err != nil {
		log.Fatal("Failed to open dependencies", zap.Error(err))
	}

	srv, err := server.NewServer(cfg, log, deps)
	if err != nil {
		deps.Close()
		log.Fatal("Failed to create server", zap.Error(err))
	}

	done := make(chan bool, 1)

	go gracefulShutdown(srv, log, done)

	log.Info("Server listening", zap.String("addr", srv.Addr))

	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		log.Fatal("HTTP server error", zap.Error(err))
	}

	<-done
	log.Info("Graceful shutdown complete")
}
