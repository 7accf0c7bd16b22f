// main is the entry point for the TalentBridge API server.
//
// It reads configuration from the environment (and an optional .env file),
// opens the SQLite database, picks the cache backend for evaluator
// preferences, registers all HTTP routes, and starts listening.
//
// ────────────────────────────────────────────────────────────────────
// LEARNING NOTE: how this file fits into the project
// ────────────────────────────────────────────────────────────────────
// This file is the "composition root": the single place where all the
// independent packages (config, db, store, handlers, middleware) are wired
// together. Keeping this wiring in main.go means every other package stays
// easy to test in isolation.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Elizabethomito/talentbridge/backend/internal/config"
	"github.com/Elizabethomito/talentbridge/backend/internal/db"
	"github.com/Elizabethomito/talentbridge/backend/internal/handlers"
	"github.com/Elizabethomito/talentbridge/backend/internal/localcache"
	"github.com/Elizabethomito/talentbridge/backend/internal/logging"
	"github.com/Elizabethomito/talentbridge/backend/internal/middleware"
	"github.com/Elizabethomito/talentbridge/backend/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Configuration ────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := logging.Setup(os.Stderr, cfg.LogLevel)
	if cfg.InsecureSecret() {
		logger.Warn("JWT_SECRET is the development default; set a real secret before deploying")
	}

	// ── Database ─────────────────────────────────────────────────────
	// db.Open creates the file if it doesn't exist and runs all CREATE
	// TABLE IF NOT EXISTS migrations automatically.
	database, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer database.Close()

	// ── Cache ────────────────────────────────────────────────────────
	cache, closeCache, err := openCache(cfg, database)
	if err != nil {
		return err
	}
	defer closeCache()
	logger.Info("cache ready", "backend", cfg.CacheBackend)

	// ── Handlers ─────────────────────────────────────────────────────
	srv := handlers.NewServer(store.New(database), cfg.JWTSecret, cache)
	handler := srv.Routes(handlers.RouteOptions{
		Limiter:    middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Logger:     logger,
		EnableSeed: cfg.EnableSeed,
	})
	if cfg.EnableSeed {
		logger.Warn("demo seed endpoint enabled", "path", "/api/admin/seed")
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.Info("TalentBridge API listening", "addr", cfg.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// openCache returns the storage behind the hidden-submission sets and a
// function releasing it.
func openCache(cfg config.Config, database *sql.DB) (localcache.Storage, func(), error) {
	noop := func() {}
	switch cfg.CacheBackend {
	case config.CacheSQLite:
		return localcache.NewSQLiteStorage(database), noop, nil
	case config.CacheMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		m, err := localcache.NewMongoStorage(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("connect mongo cache: %w", err)
		}
		return m, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := m.Close(ctx); err != nil {
				slog.Warn("close mongo cache", "err", err)
			}
		}, nil
	default:
		return localcache.NewMemoryStorage(), noop, nil
	}
}
