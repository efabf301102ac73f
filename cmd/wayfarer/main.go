package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"wayfarer/internal/config"
	applog "wayfarer/internal/log"
	"wayfarer/internal/metrics"
	"wayfarer/internal/repos"
	"wayfarer/internal/server"
	"wayfarer/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := applog.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	applog.SetLogger(logger)
	defer applog.Sync()

	logger.Info("config loaded",
		zap.String("port", cfg.Port),
		zap.String("db_driver", cfg.DBDriver),
		zap.String("session_store", cfg.SessionStore),
		zap.String("auth_path", cfg.AuthPath),
	)

	db, err := repos.OpenDB(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		logger.Fatal("open db", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := repos.SeedAdmin(context.Background(), repos.NewUserRepo(db),
		cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
		logger.Fatal("seed admin", zap.Error(err))
	}

	store, err := storage.New(cfg.SessionStore, db, cfg.RedisURL)
	if err != nil {
		logger.Fatal("session store", zap.Error(err))
	}
	if store != nil {
		defer func() { _ = store.Close() }()
	}

	app := server.New(cfg, server.Deps{
		DB:        db,
		Storage:   store,
		Metrics:   metrics.New(),
		AccessLog: true,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", ":"+cfg.Port))
		errCh <- app.Listen(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
	case <-quit:
		logger.Info("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), server.ShutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Error("server forced to shutdown", zap.Error(err))
		}
	}
}
