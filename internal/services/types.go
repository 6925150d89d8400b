// file: internal/services/types.go
package services

import (
	"questhub/internal/models"
)

// ===============================
// REQUEST TYPES
// ===============================

// CreateAchievementRequest is the operator authoring payload.
type CreateAchievementRequest struct {
	Name        string                 `json:"name" validate:"required,max=150"`
	Description string                 `json:"description" validate:"max=1000"`
	ImageURL    *string                `json:"image_url,omitempty" validate:"omitempty,url"`
	Type        models.AchievementType `json:"type" validate:"required,oneof=instant milestone streak multipart"`
	EventType   models.EventType       `json:"event_type" validate:"required"`
	TargetCount int                    `json:"target_count" validate:"min=0"`
}

// EvaluateRequest carries one completed user action into the live engine.
type EvaluateRequest struct {
	UserID    int64            `json:"user_id" validate:"required,min=1"`
	EventType models.EventType `json:"event_type" validate:"required"`
	// Value is the increment for incremental event types (default 1) and the
	// current cumulative state for absolute event types (required there).
	Value *int `json:"value,omitempty"`
}

// SyncRequest selects one user-ID window for a retroactive sync run.
type SyncRequest struct {
	Offset int `json:"offset" validate:"min=0"`
	Limit  int `json:"limit" validate:"min=1,max=1000"`
}

// ===============================
// RESULT TYPES
// ===============================

// SyncResult summarizes one retroactive sync batch.
type SyncResult struct {
	UsersProcessed int               `json:"users_processed"`
	TotalUnlocked  int               `json:"total_unlocked"`
	UnlockedByUser map[int64][]int64 `json:"unlocked_by_user"`
	// SkippedEventTypes lists event types dropped this run, either because no
	// source is registered or because the source query failed.
	SkippedEventTypes []models.EventType `json:"skipped_event_types,omitempty"`
}

func newSyncResult() *SyncResult {
	return &SyncResult{
		UnlockedByUser: make(map[int64][]int64),
	}
}

func (r *SyncResult) recordUnlock(userID, achievementID int64) {
	r.TotalUnlocked++
	r.UnlockedByUser[userID] = append(r.UnlockedByUser[userID], achievementID)
}
