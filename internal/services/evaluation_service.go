// file: internal/services/evaluation_service.go
package services

import (
	"context"
	"questhub/internal/events"
	"questhub/internal/models"
	"questhub/internal/repositories"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// evaluationService implements the live evaluation engine. One invocation per
// live domain event, inline with whatever concurrency model the caller uses.
type evaluationService struct {
	catalog       AchievementService
	ledgerRepo    repositories.UserAchievementRepository
	engine        *progressEngine
	events        events.EventBus
	logger        *zap.Logger
	maxRetries    uint64
	retryInterval time.Duration
}

// NewEvaluationService creates a new live evaluation engine
func NewEvaluationService(
	catalog AchievementService,
	ledgerRepo repositories.UserAchievementRepository,
	engine *progressEngine,
	eventBus events.EventBus,
	maxRetries uint64,
	retryInterval time.Duration,
	logger *zap.Logger,
) EvaluationService {
	if retryInterval <= 0 {
		retryInterval = 100 * time.Millisecond
	}
	return &evaluationService{
		catalog:       catalog,
		ledgerRepo:    ledgerRepo,
		engine:        engine,
		events:        eventBus,
		logger:        logger,
		maxRetries:    maxRetries,
		retryInterval: retryInterval,
	}
}

// Evaluate advances every achievement listening on eventType for this user.
// It never propagates an error: achievement tracking is best-effort relative
// to the primary user action it is attached to, so internal failures are
// logged and swallowed.
func (s *evaluationService) Evaluate(ctx context.Context, userID int64, eventType models.EventType, value *int) {
	if userID <= 0 {
		s.logger.Warn("Evaluation skipped for invalid user ID",
			zap.Int64("user_id", userID),
			zap.String("event_type", string(eventType)),
		)
		return
	}

	matching, err := s.catalog.GetByEventType(ctx, eventType)
	if err != nil {
		s.logger.Error("Evaluation aborted, catalog lookup failed",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.String("event_type", string(eventType)),
		)
		return
	}
	if len(matching) == 0 {
		return
	}

	// Catalog order is ascending target count, so when several achievements
	// share an event type the smaller milestones notify first.
	for _, achievement := range matching {
		unlocked, err := s.evaluateOne(ctx, userID, eventType, value, achievement)
		if err != nil {
			s.logger.Error("Achievement evaluation failed",
				zap.Error(err),
				zap.Int64("user_id", userID),
				zap.Int64("achievement_id", achievement.ID),
				zap.String("event_type", string(eventType)),
			)
			continue
		}
		if unlocked {
			s.notifyUnlock(userID, achievement)
		}
	}
}

// evaluateOne computes the new progress value for a single achievement and
// drives it through the unlock transition with retry on transient failures.
func (s *evaluationService) evaluateOne(ctx context.Context, userID int64, eventType models.EventType, value *int, achievement *models.Achievement) (bool, error) {
	var newProgress int

	switch {
	case eventType.IsAbsolute():
		// The carried value is already cumulative state; restate it as-is.
		if value == nil {
			s.logger.Warn("Absolute event without a value, skipping",
				zap.Int64("user_id", userID),
				zap.String("event_type", string(eventType)),
			)
			return false, nil
		}
		newProgress = *value

	case achievement.Type == models.AchievementTypeInstant:
		// A single occurrence always satisfies an instant achievement.
		newProgress = 1

	case achievement.Type == models.AchievementTypeMilestone:
		row, err := s.ledgerRepo.Get(ctx, userID, achievement.ID)
		if err != nil {
			return false, err
		}
		if row.Unlocked() {
			return false, nil
		}
		increment := 1
		if value != nil {
			increment = *value
		}
		current := 0
		if row != nil {
			current = row.Progress
		}
		newProgress = current + increment

	default:
		// Streak and multipart evaluators have not shipped; an unknown type
		// must not silently fall back to milestone counting.
		s.logger.Warn("No evaluator for achievement type, skipping",
			zap.Int64("achievement_id", achievement.ID),
			zap.String("type", string(achievement.Type)),
		)
		return false, nil
	}

	return s.applyWithRetry(ctx, userID, achievement.ID, newProgress, achievement.TargetCount)
}

// applyWithRetry drives the unlock transition, retrying transient store
// errors with capped exponential backoff. The transition is idempotent, so a
// retry after an ambiguous failure can never double-unlock.
func (s *evaluationService) applyWithRetry(ctx context.Context, userID, achievementID int64, newProgress, targetCount int) (bool, error) {
	var unlocked bool

	operation := func() error {
		var err error
		unlocked, err = s.engine.Apply(ctx, nil, userID, achievementID, newProgress, targetCount)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.retryInterval
	policy.MaxElapsedTime = 5 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, s.maxRetries), ctx))
	if err != nil {
		return false, err
	}
	return unlocked, nil
}

// notifyUnlock publishes the unlock event asynchronously. The ledger mutation
// is already committed; a publish failure is logged, never rolled back. The
// bus worker may dequeue after the triggering request is done, so delivery
// runs on a detached context rather than the request's.
func (s *evaluationService) notifyUnlock(userID int64, achievement *models.Achievement) {
	event := events.NewAchievementUnlockedEvent(userID, achievement.ID, achievement.TargetCount)
	if err := s.events.PublishAsync(context.Background(), event); err != nil {
		s.logger.Warn("Failed to publish achievement unlocked event",
			zap.Error(err),
			zap.Int64("user_id", userID),
			zap.Int64("achievement_id", achievement.ID),
		)
	}
}
