// file: internal/services/retro_service.go
package services

import (
	"context"
	"questhub/internal/models"
	"questhub/internal/repositories"

	"go.uber.org/zap"
)

// retroSyncService implements RetroSyncService. It recomputes absolute
// standings from historical records and restates them through the same
// unlock transition the live engine uses, so a sync run over already
// current users is a no-op.
type retroSyncService struct {
	achievementRepo repositories.AchievementRepository
	userRepo        repositories.UserRepository
	engine          *progressEngine
	logger          *zap.Logger
	sources         map[models.EventType]ProgressSource
}

// NewRetroSyncService creates the retroactive sync orchestrator. Sources are
// registered afterwards via RegisterSource.
func NewRetroSyncService(
	achievementRepo repositories.AchievementRepository,
	userRepo repositories.UserRepository,
	engine *progressEngine,
	logger *zap.Logger,
) RetroSyncService {
	return &retroSyncService{
		achievementRepo: achievementRepo,
		userRepo:        userRepo,
		engine:          engine,
		logger:          logger,
		sources:         make(map[models.EventType]ProgressSource),
	}
}

// RegisterSource installs the progress source for its event type, replacing
// any previous registration.
func (s *retroSyncService) RegisterSource(source ProgressSource) {
	s.sources[source.EventType()] = source
}

// SyncWindow loads one offset/limit window of user IDs and syncs it.
func (s *retroSyncService) SyncWindow(ctx context.Context, params models.PaginationParams) (*SyncResult, error) {
	params.Normalize()

	userIDs, err := s.userRepo.ListIDs(ctx, params)
	if err != nil {
		s.logger.Error("Failed to list users for retro sync", zap.Error(err))
		return nil, NewInternalError("failed to list users for retro sync")
	}
	return s.SyncUsers(ctx, userIDs)
}

// SyncUsers recomputes achievement progress for the given users. Event types
// with no registered source, and sources whose query fails, are skipped and
// reported rather than aborting the batch. Per-user transition failures are
// logged and skipped so one bad row cannot sink the run.
func (s *retroSyncService) SyncUsers(ctx context.Context, userIDs []int64) (*SyncResult, error) {
	result := newSyncResult()
	if len(userIDs) == 0 {
		return result, nil
	}
	result.UsersProcessed = len(userIDs)

	catalog, err := s.achievementRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error("Failed to load achievement catalog for retro sync", zap.Error(err))
		return nil, NewInternalError("failed to load achievement catalog")
	}

	byEventType := make(map[models.EventType][]*models.Achievement)
	for _, achievement := range catalog {
		byEventType[achievement.EventType] = append(byEventType[achievement.EventType], achievement)
	}

	for eventType, achievements := range byEventType {
		source, ok := s.sources[eventType]
		if !ok {
			s.logger.Warn("No progress source registered for event type, skipping",
				zap.String("event_type", string(eventType)),
			)
			result.SkippedEventTypes = append(result.SkippedEventTypes, eventType)
			continue
		}

		standings, err := source.Compute(ctx, userIDs)
		if err != nil {
			s.logger.Error("Progress source failed, skipping event type",
				zap.Error(err),
				zap.String("event_type", string(eventType)),
				zap.Int("users", len(userIDs)),
			)
			result.SkippedEventTypes = append(result.SkippedEventTypes, eventType)
			continue
		}

		s.applyStandings(ctx, standings, achievements, result)
	}

	s.logger.Info("Retro sync batch complete",
		zap.Int("users_processed", result.UsersProcessed),
		zap.Int("total_unlocked", result.TotalUnlocked),
		zap.Int("skipped_event_types", len(result.SkippedEventTypes)),
	)
	return result, nil
}

// applyStandings restates one event type's computed standings against each of
// its achievements. Zero standings are not written: a user with no history for
// an event type keeps no ledger row at all.
func (s *retroSyncService) applyStandings(ctx context.Context, standings map[int64]int, achievements []*models.Achievement, result *SyncResult) {
	eligible := achievements[:0:0]
	for _, achievement := range achievements {
		// Streak and multipart evaluators have not shipped; counting standings
		// against them would silently misstate progress.
		if achievement.Type != models.AchievementTypeInstant && achievement.Type != models.AchievementTypeMilestone {
			s.logger.Warn("No retro evaluator for achievement type, skipping",
				zap.Int64("achievement_id", achievement.ID),
				zap.String("type", string(achievement.Type)),
			)
			continue
		}
		eligible = append(eligible, achievement)
	}

	for userID, value := range standings {
		if value <= 0 {
			continue
		}
		for _, achievement := range eligible {
			unlocked, err := s.engine.Apply(ctx, nil, userID, achievement.ID, value, achievement.TargetCount)
			if err != nil {
				s.logger.Error("Retro transition failed, skipping",
					zap.Error(err),
					zap.Int64("user_id", userID),
					zap.Int64("achievement_id", achievement.ID),
				)
				continue
			}
			if unlocked {
				result.recordUnlock(userID, achievement.ID)
			}
		}
	}
}
