package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	appcfg "github.com/daehyun-kim/chess-review/internal/config"
	"github.com/daehyun-kim/chess-review/internal/gamestore"
	"github.com/daehyun-kim/chess-review/internal/httpapi"
	"github.com/daehyun-kim/chess-review/internal/keymap"
	"github.com/daehyun-kim/chess-review/internal/obslog"
	"github.com/daehyun-kim/chess-review/internal/session"
	"github.com/daehyun-kim/chess-review/internal/wsgate"
)

func main() {
	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	// Game store: Postgres when configured, in-memory otherwise.
	var games gamestore.Repository
	if cfg.DatabaseURL != "" {
		games, err = gamestore.NewPostgresRepository(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("game store init failed", zap.Error(err))
		}
		logger.Info("game store ready", zap.String("backend", "postgres"))
	} else {
		games = gamestore.NewMemoryRepository()
		logger.Warn("DATABASE_URL not set, using in-memory game store")
	}
	defer func() { _ = games.Close() }()

	// Snapshot store: optional, enables resume across restarts.
	var store *session.StateStore
	if cfg.RedisURL != "" {
		store, err = session.NewStateStore(cfg.RedisURL)
		if err != nil {
			logger.Fatal("state store init failed", zap.Error(err))
		}
		defer func() { _ = store.Close() }()
		logger.Info("session snapshot store ready")
	} else {
		logger.Warn("REDIS_URL not set, sessions will not survive restarts")
	}

	sessions := session.NewManager(games, store, session.Config{
		CacheMaxSize:  cfg.CacheMaxSize,
		CacheTTL:      cfg.CacheTTL,
		PreloadWindow: cfg.PreloadWindow,
		SpeedMs:       cfg.AutoplaySpeedMs,
		SessionTTL:    cfg.SessionTTL,
	}, logger)
	defer sessions.Close()

	keys, err := keymap.Load(cfg.KeymapDir)
	if err != nil {
		logger.Fatal("keymap load failed", zap.Error(err))
	}

	api := httpapi.NewServer(sessions, games, keys, cfg.MaxConcurrentSessions, logger)
	gw := wsgate.New(sessions, logger)

	go func() {
		logger.Info("http api listening", zap.String("addr", cfg.HTTPAddr))
		if err := api.ListenAndServe(cfg.HTTPAddr); err != nil {
			logger.Fatal("http server error", zap.Error(err))
		}
	}()
	go func() {
		logger.Info("ws gateway listening", zap.String("addr", cfg.WSAddr))
		if err := gw.ListenAndServe(cfg.WSAddr); err != nil {
			logger.Error("ws server stopped", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := gw.Shutdown(ctx); err != nil {
		logger.Warn("ws shutdown error", zap.Error(err))
	}
}
