// file: internal/models/models.go
package models

import (
	"time"
)

// ===============================
// ACHIEVEMENT CATALOG
// ===============================

// AchievementType classifies how progress toward an achievement accumulates.
type AchievementType string

const (
	// AchievementTypeInstant unlocks on the first qualifying occurrence.
	AchievementTypeInstant AchievementType = "instant"
	// AchievementTypeMilestone unlocks when a cumulative count reaches the target.
	AchievementTypeMilestone AchievementType = "milestone"
	// AchievementTypeStreak is reserved for consecutive-activity achievements.
	AchievementTypeStreak AchievementType = "streak"
	// AchievementTypeMultipart is reserved for multi-criteria achievements.
	AchievementTypeMultipart AchievementType = "multipart"
)

// Valid reports whether the type is one the evaluator knows how to handle.
func (t AchievementType) Valid() bool {
	switch t {
	case AchievementTypeInstant, AchievementTypeMilestone, AchievementTypeStreak, AchievementTypeMultipart:
		return true
	}
	return false
}

// EventType identifies the domain trigger an achievement listens for.
type EventType string

const (
	// Incremental events: each occurrence advances a counter.
	EventTypePostCreated       EventType = "post_created"
	EventTypeCommentCreated    EventType = "comment_created"
	EventTypeVoteCast          EventType = "vote_cast"
	EventTypeBookmarkAdded     EventType = "bookmark_added"
	EventTypeCommunityJoined   EventType = "community_joined"
	EventTypeReferralCompleted EventType = "referral_completed"

	// Absolute events: the carried value is already cumulative state.
	EventTypeReputationEarned   EventType = "reputation_earned"
	EventTypeStreakUpdated      EventType = "streak_updated"
	EventTypeAccountAnniversary EventType = "account_anniversary"
)

// IsAbsolute reports whether values for this event type restate cumulative
// state (reputation totals, streak length) rather than single occurrences.
// The classification lives in code for now; move it into the achievements
// schema if the absolute list keeps growing.
func (e EventType) IsAbsolute() bool {
	switch e {
	case EventTypeReputationEarned, EventTypeStreakUpdated, EventTypeAccountAnniversary:
		return true
	}
	return false
}

// Achievement is a catalog-defined gamification goal tied to one trigger
// event type and an unlock threshold. Catalog rows are operator-authored and
// read-only to the engine except for Rarity, which the rarity job maintains.
type Achievement struct {
	ID          int64           `json:"id" db:"id"`
	Name        string          `json:"name" db:"name" validate:"required,max=150"`
	Description string          `json:"description" db:"description" validate:"max=1000"`
	ImageURL    *string         `json:"image_url,omitempty" db:"image_url"`
	Type        AchievementType `json:"type" db:"type" validate:"required"`
	EventType   EventType       `json:"event_type" db:"event_type" validate:"required"`
	TargetCount int             `json:"target_count" db:"target_count" validate:"min=1"`
	Rarity      *float64        `json:"rarity,omitempty" db:"rarity"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// ===============================
// PROGRESS LEDGER
// ===============================

// UserAchievement is one progress ledger row: at most one per
// (user, achievement) pair, created lazily on first evaluation.
// Once UnlockedAt is set the row is terminal and never mutated again.
type UserAchievement struct {
	UserID        int64      `json:"user_id" db:"user_id"`
	AchievementID int64      `json:"achievement_id" db:"achievement_id"`
	Progress      int        `json:"progress" db:"progress"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Unlocked reports whether the row has reached its terminal state.
func (ua *UserAchievement) Unlocked() bool {
	return ua != nil && ua.UnlockedAt != nil
}

// UserProgress is the joined catalog+ledger view returned by progress queries.
type UserProgress struct {
	Achievement Achievement `json:"achievement"`
	Progress    int         `json:"progress"`
	UnlockedAt  *time.Time  `json:"unlocked_at,omitempty"`
}

// ===============================
// USERS
// ===============================

// User carries the subset of the user record this subsystem touches.
// TrackedAchievementID is the one achievement the user is watching; the
// unlock transition clears it when that achievement unlocks.
type User struct {
	ID                   int64     `json:"id" db:"id"`
	Username             string    `json:"username" db:"username"`
	TrackedAchievementID *int64    `json:"tracked_achievement_id,omitempty" db:"tracked_achievement_id"`
	CreatedAt            time.Time `json:"created_at" db:"created_at"`
}

// ===============================
// PAGINATION
// ===============================

// PaginationParams holds offset/limit paging for batch drivers and listings.
type PaginationParams struct {
	Offset int `json:"offset" validate:"min=0"`
	Limit  int `json:"limit" validate:"min=0,max=1000"`
}

// Normalize applies the default window size and caps oversized requests.
func (p *PaginationParams) Normalize() {
	if p.Limit <= 0 {
		p.Limit = 100
	}
	if p.Limit > 1000 {
		p.Limit = 1000
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
}
