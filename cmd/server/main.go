package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dom/quiz-engine/internal/api"
	"github.com/dom/quiz-engine/internal/broadcast"
	"github.com/dom/quiz-engine/internal/config"
	"github.com/dom/quiz-engine/internal/engine"
	"github.com/dom/quiz-engine/internal/gameplay"
	"github.com/dom/quiz-engine/internal/logger"
	"github.com/dom/quiz-engine/internal/repository/postgres"
	"github.com/dom/quiz-engine/internal/service"
	"github.com/dom/quiz-engine/internal/store"
	"github.com/dom/quiz-engine/internal/timer"
	"github.com/dom/quiz-engine/internal/transition"
	"github.com/dom/quiz-engine/internal/transport"
	"github.com/dom/quiz-engine/internal/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// Shared store
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.L().Fatal("invalid redis url", zap.Error(err))
	}
	rdb := redis.NewClient(redisOpts)
	defer rdb.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.L().Fatal("failed to connect to redis", zap.Error(err))
	}

	// Package library and archive
	db, err := postgres.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		logger.L().Fatal("failed to connect to database", zap.Error(err))
	}
	repos := postgres.NewRepositories(db)

	games := store.NewGameRepository(rdb, cfg.GameTTL)
	sessions := store.NewSessionStore(rdb, cfg.GameTTL)
	timers := store.NewTimerStore(rdb, cfg.TimerSafetyMargin, cfg.SavedTimerTTL)

	// Connections of this process; the executor is bound below
	hub := websocket.NewHub(nil, sessions)
	relay := transport.NewRedisTransport(rdb, hub, cfg.GameTTL)
	fanout := broadcast.NewFanout(relay, sessions)

	services := service.NewServices(repos, games, fanout, cfg)

	registry := engine.NewRegistry()
	gameplay.NewService(transition.NewDefaultRouter()).Register(registry)

	exec := engine.NewExecutor(engine.Deps{
		Locks:    store.NewLockManager(rdb),
		Games:    games,
		Timers:   timers,
		Archive:  services.Games,
		Rooms:    relay,
		Fanout:   fanout,
		Handlers: registry,
	}, engine.Options{
		LockTTL: cfg.LockTTL,
		GameTTL: cfg.GameTTL,
	})
	hub.SetSubmitter(exec)
	go hub.Run()

	go func() {
		if err := relay.Run(ctx); err != nil {
			logger.L().Fatal("transport relay stopped", zap.Error(err))
		}
	}()

	expiries := timer.NewExpiryListener(rdb, games, exec)
	go func() {
		if err := expiries.Run(ctx); err != nil {
			logger.L().Fatal("timer expiry listener stopped", zap.Error(err))
		}
	}()

	router := api.NewRouter(services, hub)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L().Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Closing connections submits their DISCONNECT actions before the
	// subscriptions go away.
	hub.Stop()
	cancel()

	logger.Info("Server stopped")
}
