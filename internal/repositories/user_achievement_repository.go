// file: internal/repositories/user_achievement_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"questhub/internal/database"
	"questhub/internal/models"
	"time"

	"go.uber.org/zap"
)

// userAchievementRepository implements UserAchievementRepository over Postgres
type userAchievementRepository struct {
	*BaseRepository
}

// NewUserAchievementRepository creates a new progress ledger repository
func NewUserAchievementRepository(db *database.Manager, logger *zap.Logger) UserAchievementRepository {
	return &userAchievementRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Get retrieves one ledger row outside any transaction.
func (r *userAchievementRepository) Get(ctx context.Context, userID, achievementID int64) (*models.UserAchievement, error) {
	query := `
		SELECT user_id, achievement_id, progress, unlocked_at, created_at, updated_at
		FROM user_achievements
		WHERE user_id = $1 AND achievement_id = $2`

	var ua models.UserAchievement
	err := r.QueryRowContext(ctx, query, userID, achievementID).Scan(
		&ua.UserID, &ua.AchievementID, &ua.Progress,
		&ua.UnlockedAt, &ua.CreatedAt, &ua.UpdatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user achievement: %w", err)
	}
	return &ua, nil
}

// GetForUpdateTx selects the row FOR UPDATE so concurrent transitions for the
// same (user, achievement) pair serialize on the row lock.
func (r *userAchievementRepository) GetForUpdateTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) (*models.UserAchievement, error) {
	query := `
		SELECT user_id, achievement_id, progress, unlocked_at, created_at, updated_at
		FROM user_achievements
		WHERE user_id = $1 AND achievement_id = $2
		FOR UPDATE`

	var ua models.UserAchievement
	err := tx.QueryRowContext(ctx, query, userID, achievementID).Scan(
		&ua.UserID, &ua.AchievementID, &ua.Progress,
		&ua.UnlockedAt, &ua.CreatedAt, &ua.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock user achievement: %w", err)
	}
	return &ua, nil
}

// CreateTx inserts the lazily-created ledger row with zero progress.
// A concurrent insert of the same pair loses to the unique constraint and
// falls back to reading the winner's row.
func (r *userAchievementRepository) CreateTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) (*models.UserAchievement, error) {
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, progress)
		VALUES ($1, $2, 0)
		ON CONFLICT (user_id, achievement_id) DO NOTHING
		RETURNING user_id, achievement_id, progress, unlocked_at, created_at, updated_at`

	var ua models.UserAchievement
	err := tx.QueryRowContext(ctx, query, userID, achievementID).Scan(
		&ua.UserID, &ua.AchievementID, &ua.Progress,
		&ua.UnlockedAt, &ua.CreatedAt, &ua.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		// Lost the insert race; take the lock on the existing row instead.
		return r.GetForUpdateTx(ctx, tx, userID, achievementID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user achievement: %w", err)
	}
	return &ua, nil
}

// SetProgressTx restates the progress counter for a still-locked row.
func (r *userAchievementRepository) SetProgressTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64, progress int) error {
	query := `
		UPDATE user_achievements
		SET progress = $3, updated_at = NOW()
		WHERE user_id = $1 AND achievement_id = $2 AND unlocked_at IS NULL`

	result, err := tx.ExecContext(ctx, query, userID, achievementID, progress)
	if err != nil {
		return fmt.Errorf("failed to set user achievement progress: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("progress update touched no row for user %d achievement %d", userID, achievementID)
	}
	return nil
}

// UnlockTx performs the one-way unlock transition. The unlocked_at IS NULL
// guard makes the write a no-op if another transaction unlocked first.
func (r *userAchievementRepository) UnlockTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64, progress int, unlockedAt time.Time) error {
	query := `
		UPDATE user_achievements
		SET progress = $3, unlocked_at = $4, updated_at = NOW()
		WHERE user_id = $1 AND achievement_id = $2 AND unlocked_at IS NULL`

	result, err := tx.ExecContext(ctx, query, userID, achievementID, progress, unlockedAt)
	if err != nil {
		return fmt.Errorf("failed to unlock user achievement: %w", err)
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		return fmt.Errorf("unlock touched no row for user %d achievement %d", userID, achievementID)
	}

	r.GetLogger().Info("Achievement unlocked",
		zap.Int64("user_id", userID),
		zap.Int64("achievement_id", achievementID),
		zap.Int("progress", progress),
	)
	return nil
}

// ListByUser returns the joined catalog+ledger view for one user.
func (r *userAchievementRepository) ListByUser(ctx context.Context, userID int64) ([]*models.UserProgress, error) {
	query := `
		SELECT
			a.id, a.name, a.description, a.image_url, a.type, a.event_type,
			a.target_count, a.rarity, a.created_at, a.updated_at,
			COALESCE(ua.progress, 0), ua.unlocked_at
		FROM achievements a
		LEFT JOIN user_achievements ua
			ON ua.achievement_id = a.id AND ua.user_id = $1
		ORDER BY a.event_type, a.target_count ASC, a.id`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user progress: %w", err)
	}
	defer rows.Close()

	var progress []*models.UserProgress
	for rows.Next() {
		var p models.UserProgress
		err := rows.Scan(
			&p.Achievement.ID, &p.Achievement.Name, &p.Achievement.Description,
			&p.Achievement.ImageURL, &p.Achievement.Type, &p.Achievement.EventType,
			&p.Achievement.TargetCount, &p.Achievement.Rarity,
			&p.Achievement.CreatedAt, &p.Achievement.UpdatedAt,
			&p.Progress, &p.UnlockedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user progress row: %w", err)
		}
		progress = append(progress, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user progress rows: %w", err)
	}
	return progress, nil
}

// CountUsersWithUnlocks counts distinct users holding at least one unlock.
func (r *userAchievementRepository) CountUsersWithUnlocks(ctx context.Context) (int64, error) {
	query := `
		SELECT COUNT(DISTINCT user_id)
		FROM user_achievements
		WHERE unlocked_at IS NOT NULL`

	var total int64
	if err := r.QueryRowContext(ctx, query).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count users with unlocks: %w", err)
	}
	return total, nil
}

// CountUnlocksByAchievement returns distinct unlock counts per achievement.
// Achievements with zero unlocks are absent from the result.
func (r *userAchievementRepository) CountUnlocksByAchievement(ctx context.Context) (map[int64]int64, error) {
	query := `
		SELECT achievement_id, COUNT(DISTINCT user_id)
		FROM user_achievements
		WHERE unlocked_at IS NOT NULL
		GROUP BY achievement_id`

	rows, err := r.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count unlocks by achievement: %w", err)
	}
	defer rows.Close()

	counts := make(map[int64]int64)
	for rows.Next() {
		var achievementID, count int64
		if err := rows.Scan(&achievementID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan unlock count row: %w", err)
		}
		counts[achievementID] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate unlock count rows: %w", err)
	}
	return counts, nil
}
