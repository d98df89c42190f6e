package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hongminglow/gstore/internal/config"
	"github.com/hongminglow/gstore/internal/logger"
	"github.com/hongminglow/gstore/internal/server"
	postgres "github.com/hongminglow/gstore/internal/storage/postgres"
)

func main() {
	envLoaded := loadLocalEnv()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zl, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	if !envLoaded {
		zl.Info("no .env file found; relying on existing environment")
	}

	ctx := context.Background()
	userStore, err := postgres.NewUserStore(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("init database", zap.Error(err))
	}
	defer userStore.Close()

	srv, err := server.New(ctx, cfg, userStore, zl)
	if err != nil {
		zl.Fatal("init server", zap.Error(err))
	}

	go func() {
		zl.Info("GStore listening",
			zap.String("addr", cfg.HTTPAddress()),
			zap.String("locale", cfg.Locale),
			zap.String("photo_storage", cfg.PhotoStorage),
		)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("http server error", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutdown); err != nil {
		zl.Error("graceful shutdown error", zap.Error(err))
	}
}

func loadLocalEnv() bool {
	return godotenv.Load() == nil
}
