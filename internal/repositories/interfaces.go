// file: internal/repositories/interfaces.go
package repositories

import (
	"context"
	"database/sql"
	"questhub/internal/models"
	"time"
)

// ===============================
// CORE REPOSITORY INTERFACES
// ===============================

// AchievementRepository defines the contract for achievement catalog access.
// The catalog is read-only to the engine except for the rarity column, which
// only the rarity job writes.
type AchievementRepository interface {
	Create(ctx context.Context, achievement *models.Achievement) error
	GetByID(ctx context.Context, id int64) (*models.Achievement, error)
	ListAll(ctx context.Context) ([]*models.Achievement, error)
	// ListByEventType returns matching achievements ordered by ascending
	// target count, so smaller milestones are evaluated first.
	ListByEventType(ctx context.Context, eventType models.EventType) ([]*models.Achievement, error)
	UpdateRarityTx(ctx context.Context, tx *sql.Tx, achievementID int64, rarity float64) error
	WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error
}

// UserAchievementRepository defines the contract for progress ledger access.
// All mutations are transaction-scoped; the unlock transition in the services
// layer is the only caller of the *Tx writers.
type UserAchievementRepository interface {
	Get(ctx context.Context, userID, achievementID int64) (*models.UserAchievement, error)
	// GetForUpdateTx selects the row with a row-level lock, serializing
	// concurrent progress updates for the same (user, achievement) pair.
	GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) (*models.UserAchievement, error)
	CreateTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) (*models.UserAchievement, error)
	SetProgressTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64, progress int) error
	UnlockTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64, progress int, unlockedAt time.Time) error

	ListByUser(ctx context.Context, userID int64) ([]*models.UserProgress, error)
	CountUsersWithUnlocks(ctx context.Context) (int64, error)
	CountUnlocksByAchievement(ctx context.Context) (map[int64]int64, error)
	WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error
}

// UserRepository defines the slice of user data this subsystem touches.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
	// ListIDs pages through all user IDs for batch drivers.
	ListIDs(ctx context.Context, params models.PaginationParams) ([]int64, error)
	// ClearTrackedAchievementTx clears the tracked-achievement pointer only
	// when it currently references the given achievement.
	ClearTrackedAchievementTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) error
}

// HistoryRepository exposes one batched read-only query per event type
// against authoritative historical records. Each query covers the whole
// input user set in a single round trip and has no side effects.
type HistoryRepository interface {
	CountPostsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error)
	CountCommentsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error)
	CountVotesCastByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error)
	CountBookmarksByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error)
	CountCommunityMembershipsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error)
	CountReferralsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error)
	GetReputationByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error)
	GetStreakLengthsByUsers(ctx context.Context, userIDs []int64) (map[int64]int, error)
	GetSignupDatesByUsers(ctx context.Context, userIDs []int64) (map[int64]time.Time, error)
}
