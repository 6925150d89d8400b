// file: internal/services/progress.go
package services

import (
	"context"
	"database/sql"
	"questhub/internal/repositories"
	"time"

	"go.uber.org/zap"
)

// progressEngine is the unlock-transition primitive: the single authoritative
// mutation path for the progress ledger. No other code writes progress or
// unlocked_at.
type progressEngine struct {
	ledgerRepo repositories.UserAchievementRepository
	userRepo   repositories.UserRepository
	logger     *zap.Logger
	now        func() time.Time
}

// newProgressEngine creates the unlock-transition primitive
func newProgressEngine(
	ledgerRepo repositories.UserAchievementRepository,
	userRepo repositories.UserRepository,
	logger *zap.Logger,
) *progressEngine {
	return &progressEngine{
		ledgerRepo: ledgerRepo,
		userRepo:   userRepo,
		logger:     logger,
		now:        time.Now,
	}
}

// Apply advances one (user, achievement) ledger row to newProgress and
// returns true when this call performed the unlock transition.
//
// When tx is nil the engine opens its own transaction; otherwise it joins the
// caller's transaction and never nests. Semantics:
//
//   - The row is created lazily with progress 0 on first touch.
//   - An already-unlocked row is a no-op returning false, so replays never
//     re-fire side effects.
//   - newProgress >= targetCount unlocks: progress, unlocked_at and the
//     tracked-pointer clear commit atomically.
//   - Otherwise progress is restated to newProgress. Values lower than the
//     current progress are written as-is: callers computing deltas must
//     read-then-add before calling.
func (e *progressEngine) Apply(ctx context.Context, tx *sql.Tx, userID, achievementID int64, newProgress, targetCount int) (bool, error) {
	if tx != nil {
		return e.applyTx(ctx, tx, userID, achievementID, newProgress, targetCount)
	}

	var unlocked bool
	err := e.ledgerRepo.WithTransaction(ctx, func(tx *sql.Tx) error {
		var applyErr error
		unlocked, applyErr = e.applyTx(ctx, tx, userID, achievementID, newProgress, targetCount)
		return applyErr
	})
	if err != nil {
		return false, err
	}
	return unlocked, nil
}

func (e *progressEngine) applyTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64, newProgress, targetCount int) (bool, error) {
	if targetCount <= 0 {
		targetCount = 1
	}

	row, err := e.ledgerRepo.GetForUpdateTx(ctx, tx, userID, achievementID)
	if err != nil {
		return false, err
	}
	if row == nil {
		row, err = e.ledgerRepo.CreateTx(ctx, tx, userID, achievementID)
		if err != nil {
			return false, err
		}
	}

	// Unlock is a one-way transition: terminal rows are never touched again.
	if row.Unlocked() {
		return false, nil
	}

	if newProgress >= targetCount {
		unlockedAt := e.now()
		if err := e.ledgerRepo.UnlockTx(ctx, tx, userID, achievementID, newProgress, unlockedAt); err != nil {
			return false, err
		}
		// Same transaction: no window where an unlocked achievement is
		// still the user's tracked achievement.
		if err := e.userRepo.ClearTrackedAchievementTx(ctx, tx, userID, achievementID); err != nil {
			return false, err
		}
		return true, nil
	}

	if err := e.ledgerRepo.SetProgressTx(ctx, tx, userID, achievementID, newProgress); err != nil {
		return false, err
	}

	e.logger.Debug("Achievement progress updated",
		zap.Int64("user_id", userID),
		zap.Int64("achievement_id", achievementID),
		zap.Int("progress", newProgress),
		zap.Int("target", targetCount),
	)
	return false, nil
}
