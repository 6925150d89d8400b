package events

import "time"

// EventTypeAchievementUnlocked is the bus topic for unlock notifications.
const EventTypeAchievementUnlocked = "achievement.unlocked"

// AchievementUnlockedEvent is emitted when a user unlocks an achievement.
//
// Emission is best-effort: the ledger mutation is already committed by the
// time this event is published, and a delivery failure is never rolled back.
type AchievementUnlockedEvent struct {
	BaseEvent
	UserID        int64 `json:"user_id"`
	AchievementID int64 `json:"achievement_id"`
	Progress      int   `json:"progress"`
}

// NewAchievementUnlockedEvent creates a new AchievementUnlockedEvent
func NewAchievementUnlockedEvent(userID, achievementID int64, progress int) *AchievementUnlockedEvent {
	return &AchievementUnlockedEvent{
		BaseEvent: BaseEvent{
			EventID:   GenerateEventID(),
			EventType: EventTypeAchievementUnlocked,
			Timestamp: time.Now(),
			UserID:    &userID,
		},
		UserID:        userID,
		AchievementID: achievementID,
		Progress:      progress,
	}
}
