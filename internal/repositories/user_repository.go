// file: internal/repositories/user_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"questhub/internal/database"
	"questhub/internal/models"

	"go.uber.org/zap"
)

// userRepository implements UserRepository for the slice of the user record
// this subsystem touches.
type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// GetByID retrieves a user by ID.
func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, tracked_achievement_id, created_at
		FROM users
		WHERE id = $1`

	var user models.User
	err := r.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.TrackedAchievementID, &user.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return &user, nil
}

// ListIDs pages through all user IDs in a stable order for batch drivers.
func (r *userRepository) ListIDs(ctx context.Context, params models.PaginationParams) ([]int64, error) {
	params.Normalize()

	query := `
		SELECT id
		FROM users
		ORDER BY id
		LIMIT $1 OFFSET $2`

	rows, err := r.QueryContext(ctx, query, params.Limit, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list user IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user IDs: %w", err)
	}
	return ids, nil
}

// ClearTrackedAchievementTx clears the tracked-achievement pointer inside the
// caller's transaction, but only when it references the given achievement.
// Runs in the same transaction as the unlock so there is no window where an
// unlocked achievement is still tracked.
func (r *userRepository) ClearTrackedAchievementTx(ctx context.Context, tx *sql.Tx, userID, achievementID int64) error {
	query := `
		UPDATE users
		SET tracked_achievement_id = NULL
		WHERE id = $1 AND tracked_achievement_id = $2`

	result, err := tx.ExecContext(ctx, query, userID, achievementID)
	if err != nil {
		return fmt.Errorf("failed to clear tracked achievement: %w", err)
	}

	if affected, _ := result.RowsAffected(); affected > 0 {
		r.GetLogger().Debug("Tracked achievement pointer cleared",
			zap.Int64("user_id", userID),
			zap.Int64("achievement_id", achievementID),
		)
	}
	return nil
}
