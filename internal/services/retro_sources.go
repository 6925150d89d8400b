// file: internal/services/retro_sources.go
package services

import (
	"context"
	"questhub/internal/models"
	"questhub/internal/repositories"
	"time"
)

// sourceFunc adapts a batched query function to the ProgressSource interface.
type sourceFunc struct {
	eventType models.EventType
	compute   func(ctx context.Context, userIDs []int64) (map[int64]int, error)
}

// NewProgressSource wraps a batched query function as a ProgressSource.
func NewProgressSource(eventType models.EventType, compute func(ctx context.Context, userIDs []int64) (map[int64]int, error)) ProgressSource {
	return &sourceFunc{eventType: eventType, compute: compute}
}

func (s *sourceFunc) EventType() models.EventType {
	return s.eventType
}

func (s *sourceFunc) Compute(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	return s.compute(ctx, userIDs)
}

// DefaultProgressSources builds the standard source set over the historical
// query catalog. Adding an event type means registering a new source here,
// never branching in the orchestrator.
func DefaultProgressSources(history repositories.HistoryRepository, now func() time.Time) []ProgressSource {
	if now == nil {
		now = time.Now
	}
	return []ProgressSource{
		NewProgressSource(models.EventTypePostCreated, history.CountPostsByUsers),
		NewProgressSource(models.EventTypeCommentCreated, history.CountCommentsByUsers),
		NewProgressSource(models.EventTypeVoteCast, history.CountVotesCastByUsers),
		NewProgressSource(models.EventTypeBookmarkAdded, history.CountBookmarksByUsers),
		NewProgressSource(models.EventTypeCommunityJoined, history.CountCommunityMembershipsByUsers),
		NewProgressSource(models.EventTypeReferralCompleted, history.CountReferralsByUsers),
		NewProgressSource(models.EventTypeReputationEarned, history.GetReputationByUsers),
		NewProgressSource(models.EventTypeStreakUpdated, history.GetStreakLengthsByUsers),
		newAnniversarySource(history, now),
	}
}

// anniversarySource converts signup timestamps to whole elapsed months.
type anniversarySource struct {
	history repositories.HistoryRepository
	now     func() time.Time
}

func newAnniversarySource(history repositories.HistoryRepository, now func() time.Time) ProgressSource {
	return &anniversarySource{history: history, now: now}
}

func (s *anniversarySource) EventType() models.EventType {
	return models.EventTypeAccountAnniversary
}

func (s *anniversarySource) Compute(ctx context.Context, userIDs []int64) (map[int64]int, error) {
	signupDates, err := s.history.GetSignupDatesByUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	now := s.now()
	months := make(map[int64]int, len(signupDates))
	for userID, signedUp := range signupDates {
		if m := monthsBetween(signedUp, now); m > 0 {
			months[userID] = m
		}
	}
	return months, nil
}

// monthsBetween returns the calendar-month difference from from to to,
// truncated down: 2024-01-15 to 2024-03-14 is one month, to 2024-03-15 two.
func monthsBetween(from, to time.Time) int {
	if to.Before(from) {
		return 0
	}

	months := (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month())
	if to.Day() < from.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
