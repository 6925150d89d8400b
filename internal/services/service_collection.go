// file: internal/services/service_collection.go
package services

import (
	"questhub/internal/cache"
	"questhub/internal/config"
	"questhub/internal/events"
	"questhub/internal/repositories"

	"go.uber.org/zap"
)

// ServiceCollection wires every service with its dependencies. Built once at
// startup and handed to the transport layer.
type ServiceCollection struct {
	Achievement AchievementService
	Evaluation  EvaluationService
	RetroSync   RetroSyncService
	Rarity      RarityService
}

// NewServiceCollection constructs the full service graph over the repository
// collection, cache and event bus.
func NewServiceCollection(
	repos *repositories.Collection,
	cacheInstance cache.Cache,
	eventBus events.EventBus,
	cfg *config.Config,
	logger *zap.Logger,
) *ServiceCollection {
	achievementService := NewAchievementService(
		repos.Achievement,
		repos.UserAchievement,
		repos.User,
		cacheInstance,
		cfg.Cache.CatalogTTL,
		logger,
	)

	engine := newProgressEngine(repos.UserAchievement, repos.User, logger)

	evaluationService := NewEvaluationService(
		achievementService,
		repos.UserAchievement,
		engine,
		eventBus,
		cfg.Achievements.EvaluateMaxRetries,
		cfg.Achievements.EvaluateRetryInterval,
		logger,
	)

	retroService := NewRetroSyncService(repos.Achievement, repos.User, engine, logger)
	for _, source := range DefaultProgressSources(repos.History, nil) {
		retroService.RegisterSource(source)
	}

	rarityService := NewRarityService(
		repos.Achievement,
		repos.UserAchievement,
		achievementService,
		logger,
	)

	return &ServiceCollection{
		Achievement: achievementService,
		Evaluation:  evaluationService,
		RetroSync:   retroService,
		Rarity:      rarityService,
	}
}
