package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/iaboy/backend/internal/config"
	"github.com/iaboy/backend/internal/logging"
	"github.com/iaboy/backend/internal/server"
)

func main() {
	settings := config.LoadOrDefault()

	log, err := logging.New(logging.Config{
		Level:       settings.Logging.Level,
		Development: settings.Logging.Development,
	})
	if err != nil {
		log = logging.NewDefault()
	}
	defer log.Sync()

	srv, err := server.New(settings, log, nil)
	if err != nil {
		log.Fatal("failed to create server", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			log.Fatal("server error", zap.Error(err))
		}
	}
}
