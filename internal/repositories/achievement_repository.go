// file: internal/repositories/achievement_repository.go
package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"questhub/internal/database"
	"questhub/internal/models"

	"go.uber.org/zap"
)

// achievementRepository implements AchievementRepository over Postgres
type achievementRepository struct {
	*BaseRepository
}

// NewAchievementRepository creates a new achievement repository
func NewAchievementRepository(db *database.Manager, logger *zap.Logger) AchievementRepository {
	return &achievementRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

const achievementColumns = `
	id, name, description, image_url, type, event_type,
	target_count, rarity, created_at, updated_at`

// The column const carries no trailing whitespace, so every query built from
// it must open its next literal with whitespace before FROM.
const (
	achievementByIDQuery = `SELECT` + achievementColumns + `
		FROM achievements WHERE id = $1`

	achievementListAllQuery = `SELECT` + achievementColumns + `
		FROM achievements
		ORDER BY event_type, target_count ASC, id`

	achievementListByEventQuery = `SELECT` + achievementColumns + `
		FROM achievements
		WHERE event_type = $1
		ORDER BY target_count ASC, id`
)

// Create inserts a new catalog entry (operator path).
func (r *achievementRepository) Create(ctx context.Context, achievement *models.Achievement) error {
	if achievement.TargetCount <= 0 {
		achievement.TargetCount = 1
	}

	query := `
		INSERT INTO achievements (name, description, image_url, type, event_type, target_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.QueryRowContext(
		ctx, query,
		achievement.Name, achievement.Description, achievement.ImageURL,
		achievement.Type, achievement.EventType, achievement.TargetCount,
	).Scan(&achievement.ID, &achievement.CreatedAt, &achievement.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create achievement: %w", err)
	}

	r.GetLogger().Info("Achievement created",
		zap.Int64("achievement_id", achievement.ID),
		zap.String("name", achievement.Name),
		zap.String("event_type", string(achievement.EventType)),
	)

	return nil
}

// GetByID retrieves one catalog entry.
func (r *achievementRepository) GetByID(ctx context.Context, id int64) (*models.Achievement, error) {
	achievement, err := r.scanOne(r.QueryRowContext(ctx, achievementByIDQuery, id))
	if err != nil {
		if r.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get achievement by ID: %w", err)
	}
	return achievement, nil
}

// ListAll returns the full catalog ordered by event type then target count.
func (r *achievementRepository) ListAll(ctx context.Context) ([]*models.Achievement, error) {
	rows, err := r.QueryContext(ctx, achievementListAllQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return r.scanMany(rows)
}

// ListByEventType returns achievements for one trigger, smallest target first.
func (r *achievementRepository) ListByEventType(ctx context.Context, eventType models.EventType) ([]*models.Achievement, error) {
	rows, err := r.QueryContext(ctx, achievementListByEventQuery, eventType)
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements by event type: %w", err)
	}
	return r.scanMany(rows)
}

// UpdateRarityTx writes the rarity percentage inside the caller's transaction.
func (r *achievementRepository) UpdateRarityTx(ctx context.Context, tx *sql.Tx, achievementID int64, rarity float64) error {
	query := `UPDATE achievements SET rarity = $2, updated_at = NOW() WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, achievementID, rarity)
	if err != nil {
		return fmt.Errorf("failed to update achievement rarity: %w", err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("achievement %d not found for rarity update", achievementID)
	}
	return nil
}

func (r *achievementRepository) scanOne(row *sql.Row) (*models.Achievement, error) {
	var a models.Achievement
	err := row.Scan(
		&a.ID, &a.Name, &a.Description, &a.ImageURL,
		&a.Type, &a.EventType, &a.TargetCount, &a.Rarity,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *achievementRepository) scanMany(rows *sql.Rows) ([]*models.Achievement, error) {
	defer rows.Close()

	var achievements []*models.Achievement
	for rows.Next() {
		var a models.Achievement
		err := rows.Scan(
			&a.ID, &a.Name, &a.Description, &a.ImageURL,
			&a.Type, &a.EventType, &a.TargetCount, &a.Rarity,
			&a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan achievement row: %w", err)
		}
		achievements = append(achievements, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate achievement rows: %w", err)
	}
	return achievements, nil
}
