package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"questhub/internal/cache"
	"questhub/internal/config"
	"questhub/internal/database"
	"questhub/internal/events"
	"questhub/internal/repositories"
	"questhub/internal/response"
	"questhub/internal/router"
	"questhub/internal/services"

	"go.uber.org/zap"
)

func main() {
	// Initialize logger
	logger, err := initLogger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	logger.Info("Starting QuestHub achievement engine")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}
	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
	)

	// Initialize database
	dbManager, err := database.NewManager(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(cfg.Database.MigrationsPath); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Database initialized successfully")

	// Create cache
	cacheInstance, err := cache.New(&cache.Config{
		Provider:      cfg.Cache.Provider,
		TTL:           cfg.Cache.CatalogTTL,
		MaxKeys:       10000,
		RedisURL:      cfg.Cache.RedisURL,
		RedisDB:       cfg.Cache.RedisDB,
		RedisPassword: cfg.Cache.RedisPassword,
		PoolSize:      cfg.Cache.PoolSize,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create cache", zap.Error(err))
	}
	defer cacheInstance.Close()

	// Start event bus
	eventBus := events.NewInMemoryEventBus(events.DefaultEventBusConfig(), logger)
	busCtx, busCancel := context.WithCancel(context.Background())
	defer busCancel()
	if err := eventBus.Start(busCtx); err != nil {
		logger.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Wire repositories and services
	repos, err := repositories.NewCollection(dbManager, logger)
	if err != nil {
		logger.Fatal("Failed to initialize repositories", zap.Error(err))
	}
	serviceCollection := services.NewServiceCollection(repos, cacheInstance, eventBus, cfg, logger)

	// Unlock events feed the structured log until downstream consumers exist.
	unlockLogger := events.EventHandlerFunc{
		ID: "unlock-logger",
		Func: func(ctx context.Context, event events.Event) error {
			logger.Info("Achievement unlocked",
				zap.String("event_id", event.GetEventID()),
				zap.Any("payload", event),
			)
			return nil
		},
	}
	if err := eventBus.Subscribe(events.EventTypeAchievementUnlocked, unlockLogger); err != nil {
		logger.Fatal("Failed to subscribe unlock handler", zap.Error(err))
	}

	// Scheduled rarity recompute
	rarityCtx, rarityCancel := context.WithCancel(context.Background())
	defer rarityCancel()
	go runRarityJob(rarityCtx, serviceCollection.Rarity, cfg.Achievements.RarityInterval, logger)

	// HTTP server
	responseBuilder := response.NewBuilder(logger)
	handler := router.SetupRouter(serviceCollection, dbManager, responseBuilder, logger)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	logger.Info("Shutting down", zap.String("signal", sig.String()))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()

	rarityCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		logger.Error("Event bus shutdown failed", zap.Error(err))
	}
	logger.Info("Shutdown complete")
}

// runRarityJob recomputes rarity immediately at startup and then on every
// tick until the context is cancelled.
func runRarityJob(ctx context.Context, rarity services.RarityService, interval time.Duration, logger *zap.Logger) {
	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
		defer cancel()
		if err := rarity.RecomputeRarity(runCtx); err != nil {
			logger.Error("Scheduled rarity recompute failed", zap.Error(err))
		}
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// initLogger builds the zap logger for the current environment
func initLogger() (*zap.Logger, error) {
	if os.Getenv("GO_ENV") == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
