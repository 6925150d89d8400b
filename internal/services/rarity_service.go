// file: internal/services/rarity_service.go
package services

import (
	"context"
	"database/sql"
	"questhub/internal/repositories"

	"go.uber.org/zap"
)

// rarityService recomputes per-achievement unlock percentages from the
// ledger. Runs on a schedule; each run rewrites rarity for every achievement
// with at least one unlock, in a single transaction.
type rarityService struct {
	achievementRepo repositories.AchievementRepository
	ledgerRepo      repositories.UserAchievementRepository
	catalog         AchievementService
	logger          *zap.Logger
}

// NewRarityService creates a new rarity calculator.
func NewRarityService(
	achievementRepo repositories.AchievementRepository,
	ledgerRepo repositories.UserAchievementRepository,
	catalog AchievementService,
	logger *zap.Logger,
) RarityService {
	return &rarityService{
		achievementRepo: achievementRepo,
		ledgerRepo:      ledgerRepo,
		catalog:         catalog,
		logger:          logger,
	}
}

// RecomputeRarity recalculates rarity as the percentage of unlocking users
// over all users with at least one unlock. An empty ledger leaves the stored
// values untouched so the previous snapshot survives until real data exists.
func (s *rarityService) RecomputeRarity(ctx context.Context) error {
	totalUsers, err := s.ledgerRepo.CountUsersWithUnlocks(ctx)
	if err != nil {
		s.logger.Error("Failed to count unlocking users", zap.Error(err))
		return NewInternalError("failed to count unlocking users")
	}
	if totalUsers == 0 {
		s.logger.Info("Rarity recompute skipped, no users with unlocks")
		return nil
	}

	counts, err := s.ledgerRepo.CountUnlocksByAchievement(ctx)
	if err != nil {
		s.logger.Error("Failed to count unlocks per achievement", zap.Error(err))
		return NewInternalError("failed to count unlocks per achievement")
	}

	err = s.achievementRepo.WithTransaction(ctx, func(tx *sql.Tx) error {
		for achievementID, unlockCount := range counts {
			rarity := 100 * float64(unlockCount) / float64(totalUsers)
			if err := s.achievementRepo.UpdateRarityTx(ctx, tx, achievementID, rarity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to write rarity values", zap.Error(err))
		return NewInternalError("failed to write rarity values")
	}

	s.catalog.InvalidateCatalog(ctx)
	s.logger.Info("Rarity recompute complete",
		zap.Int64("total_users", totalUsers),
		zap.Int("achievements_updated", len(counts)),
	)
	return nil
}
