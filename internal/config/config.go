// Package config reads server settings from the environment.
//
// An optional .env file in the working directory is loaded first; variables
// already set in the real environment win over it.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Cache backends accepted by CACHE_BACKEND.
const (
	CacheMemory = "memory"
	CacheSQLite = "sqlite"
	CacheMongo  = "mongo"
)

// DefaultDSN enables foreign keys, WAL and a busy timeout on every connection.
const DefaultDSN = "talentbridge.db?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

const devSecret = "changeme-use-a-real-secret-in-production"

// Config holds every setting the server reads at startup.
type Config struct {
	Addr        string
	DatabaseURL string
	JWTSecret   string
	LogLevel    string
	EnableSeed  bool

	CacheBackend string
	MongoURI     string
	MongoDB      string

	// RateLimitRPS and RateLimitBurst bound mutating requests per user.
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads .env (if present) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, used by tests.
func FromEnv(get func(string) string) (Config, error) {
	env := func(key, fallback string) string {
		if v := strings.TrimSpace(get(key)); v != "" {
			return v
		}
		return fallback
	}

	cfg := Config{
		Addr:         env("ADDR", ":8080"),
		DatabaseURL:  env("DATABASE_URL", DefaultDSN),
		JWTSecret:    env("JWT_SECRET", devSecret),
		LogLevel:     strings.ToLower(env("LOG_LEVEL", "info")),
		CacheBackend: strings.ToLower(env("CACHE_BACKEND", CacheSQLite)),
		MongoURI:     env("MONGO_URI", ""),
		MongoDB:      env("MONGO_DB", "talentbridge"),
	}

	var err error
	if cfg.EnableSeed, err = strconv.ParseBool(env("ENABLE_SEED", "false")); err != nil {
		return Config{}, fmt.Errorf("ENABLE_SEED: %w", err)
	}
	if cfg.RateLimitRPS, err = strconv.ParseFloat(env("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return Config{}, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if cfg.RateLimitBurst, err = strconv.Atoi(env("RATE_LIMIT_BURST", "10")); err != nil {
		return Config{}, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}

	switch cfg.CacheBackend {
	case CacheMemory, CacheSQLite:
	case CacheMongo:
		if cfg.MongoURI == "" {
			return Config{}, errors.New("CACHE_BACKEND=mongo requires MONGO_URI")
		}
	default:
		return Config{}, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst < 1 {
		return Config{}, errors.New("rate limit must be positive")
	}
	return cfg, nil
}

// InsecureSecret reports whether the built-in development secret is in use.
func (c Config) InsecureSecret() bool {
	return c.JWTSecret == devSecret
}
