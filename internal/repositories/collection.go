// file: internal/repositories/collection.go
package repositories

import (
	"fmt"
	"questhub/internal/database"

	"go.uber.org/zap"
)

// Collection holds all repository instances for dependency injection
type Collection struct {
	Achievement     AchievementRepository
	UserAchievement UserAchievementRepository
	User            UserRepository
	History         HistoryRepository

	db     *database.Manager
	logger *zap.Logger
}

// NewCollection creates a new repository collection with all dependencies
func NewCollection(db *database.Manager, logger *zap.Logger) (*Collection, error) {
	if db == nil {
		return nil, fmt.Errorf("database manager is required")
	}
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	collection := &Collection{
		db:     db,
		logger: logger,
	}

	collection.Achievement = NewAchievementRepository(db, logger)
	collection.UserAchievement = NewUserAchievementRepository(db, logger)
	collection.User = NewUserRepository(db, logger)
	collection.History = NewHistoryRepository(db, logger)

	logger.Info("Repository collection initialized")

	return collection, nil
}
