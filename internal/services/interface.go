// file: internal/services/interface.go
package services

import (
	"context"
	"questhub/internal/models"
)

// AchievementService exposes catalog and progress reads plus the operator
// authoring path.
type AchievementService interface {
	CreateAchievement(ctx context.Context, req *CreateAchievementRequest) (*models.Achievement, error)
	GetAchievement(ctx context.Context, id int64) (*models.Achievement, error)
	GetCatalog(ctx context.Context) ([]*models.Achievement, error)
	GetByEventType(ctx context.Context, eventType models.EventType) ([]*models.Achievement, error)
	GetUserProgress(ctx context.Context, userID int64) ([]*models.UserProgress, error)
	InvalidateCatalog(ctx context.Context)
}

// EvaluationService is the live evaluation engine. Evaluate runs inline with
// the primary user action and must never fail it: internal errors are logged
// and swallowed.
type EvaluationService interface {
	Evaluate(ctx context.Context, userID int64, eventType models.EventType, value *int)
}

// ProgressSource computes the current absolute standing for one event type
// across a batch of users, from authoritative historical records. Sources are
// pure, read-only, batched (one query per call) and independent of each other.
type ProgressSource interface {
	EventType() models.EventType
	Compute(ctx context.Context, userIDs []int64) (map[int64]int, error)
}

// RetroSyncService recomputes achievement state for batches of users from
// historical data, funneling results through the same unlock transition as
// the live engine.
type RetroSyncService interface {
	RegisterSource(source ProgressSource)
	SyncUsers(ctx context.Context, userIDs []int64) (*SyncResult, error)
	// SyncWindow drives SyncUsers over one offset/limit window of user IDs.
	SyncWindow(ctx context.Context, params models.PaginationParams) (*SyncResult, error)
}

// RarityService derives per-achievement unlock percentages on a schedule.
type RarityService interface {
	RecomputeRarity(ctx context.Context) error
}
