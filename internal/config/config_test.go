package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv(lookup(nil))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Addr)
	assert.Equal(t, DefaultDSN, cfg.DatabaseURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, CacheSQLite, cfg.CacheBackend)
	assert.False(t, cfg.EnableSeed)
	assert.Equal(t, 5.0, cfg.RateLimitRPS)
	assert.Equal(t, 10, cfg.RateLimitBurst)
	assert.True(t, cfg.InsecureSecret())
}

func TestFromEnv_Overrides(t *testing.T) {
	cfg, err := FromEnv(lookup(map[string]string{
		"ADDR":             ":9000",
		"JWT_SECRET":       "s3cret",
		"LOG_LEVEL":        "DEBUG",
		"ENABLE_SEED":      "true",
		"CACHE_BACKEND":    "mongo",
		"MONGO_URI":        "mongodb://localhost:27017",
		"RATE_LIMIT_RPS":   "0.5",
		"RATE_LIMIT_BURST": "3",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Addr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.EnableSeed)
	assert.Equal(t, CacheMongo, cfg.CacheBackend)
	assert.Equal(t, "talentbridge", cfg.MongoDB)
	assert.Equal(t, 0.5, cfg.RateLimitRPS)
	assert.False(t, cfg.InsecureSecret())
}

func TestFromEnv_Invalid(t *testing.T) {
	cases := map[string]map[string]string{
		"bad bool":          {"ENABLE_SEED": "sometimes"},
		"bad rps":           {"RATE_LIMIT_RPS": "fast"},
		"zero burst":        {"RATE_LIMIT_BURST": "0"},
		"unknown backend":   {"CACHE_BACKEND": "redis"},
		"mongo without uri": {"CACHE_BACKEND": "mongo"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := FromEnv(lookup(env))
			assert.Error(t, err)
		})
	}
}
