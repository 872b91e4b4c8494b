package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"fitpower-web/internal/app"
	"fitpower-web/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[MAIN] No .env file found, relying on system env vars")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := app.NewServer()

	// Run server in a separate goroutine so we can listen for shutdown signals
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	failed := false
	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("[MAIN] server failed: %v", err)
			failed = true
		}
	case <-ctx.Done():
		log.Println("[MAIN] shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Load().ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[MAIN] shutdown: %v", err)
	}
	log.Println("[MAIN] server stopped")
	if failed {
		os.Exit(1)
	}
}
