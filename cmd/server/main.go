package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/klya-ai/klya-api/internal/config"
	"github.com/klya-ai/klya-api/internal/logger"
	"github.com/klya-ai/klya-api/internal/server"
	"github.com/klya-ai/klya-api/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the config file (JSON or YAML)")
	flag.Parse()

	// Load env if it exists
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(false).Error("failed to load config", "error", err.Error())
		os.Exit(1)
	}

	log := logger.New(cfg.Debug)

	db, err := storage.NewDatabase(cfg.Database, cfg.Debug)
	if err != nil {
		log.Error("failed to connect to database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Error("failed to migrate database", "error", err.Error())
		os.Exit(1)
	}

	var redis *storage.RedisClient
	if cfg.Redis.Enabled {
		redis, err = storage.NewRedis(cfg.Redis.GetRedisAddr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Error("failed to connect to redis", "error", err.Error())
			os.Exit(1)
		}
		defer redis.Close()
		log.Info("connected to redis", "addr", cfg.Redis.GetRedisAddr())
	}

	srv, err := server.New(cfg, db, redis, log)
	if err != nil {
		log.Error("failed to build server", "error", err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Run(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Error("server failed", "error", err.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err.Error())
	}

	log.Info("server exited")
}
