package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"koop-backend/internal/cache"
	"koop-backend/internal/config"
	"koop-backend/internal/cycle"
	"koop-backend/internal/database"
	"koop-backend/internal/logger"
	"koop-backend/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	cfg.Warn(log)

	if err := database.Init(cfg, log); err != nil {
		log.Fatal("database init failed", zap.Error(err))
	}

	settings, err := cycle.SettingsFromConfig(cfg)
	if err != nil {
		log.Fatal("invalid koop cycle settings", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	catalogCache := cache.Open(ctx, cfg.Redis, log)
	cancel()

	app := server.New(server.Deps{
		DB:          database.DB,
		Cycle:       cycle.New(settings, nil),
		Cache:       catalogCache,
		Log:         log,
		Secret:      cfg.SecretKey,
		CORSOrigins: cfg.CORSOrigins,
		DefaultFund: cfg.DefaultUserFund,
	})

	log.Info("server listening", zap.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}
