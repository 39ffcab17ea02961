package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	HTTPAddr string
	WSAddr   string

	RedisURL    string
	DatabaseURL string

	CacheMaxSize    int
	CacheTTL        time.Duration
	PreloadWindow   int
	AutoplaySpeedMs int
	SessionTTL      time.Duration

	MaxConcurrentSessions int
	KeymapDir             string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:              ":8380",
		WSAddr:                ":8381",
		CacheMaxSize:          100,
		CacheTTL:              5 * time.Minute,
		PreloadWindow:         5,
		AutoplaySpeedMs:       1000,
		SessionTTL:            time.Hour,
		MaxConcurrentSessions: 500,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("WS_ADDR")); v != "" {
		cfg.WSAddr = v
	}

	// Both stores are optional: without Redis there is no resume across
	// restarts, without Postgres the in-memory game store is used.
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.KeymapDir = strings.TrimSpace(os.Getenv("KEYMAP_DIR"))

	if v := strings.TrimSpace(os.Getenv("CACHE_MAX_SIZE")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxSize = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("CACHE_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("PRELOAD_WINDOW")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.PreloadWindow = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("AUTOPLAY_SPEED_MS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AutoplaySpeedMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.SessionTTL = d
		}
	}
	if v := strings.TrimSpace(os.Getenv("MAX_CONCURRENT_SESSIONS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxConcurrentSessions = n
		}
	}

	return cfg, nil
}
