// file: internal/services/achievement_service.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"questhub/internal/cache"
	"questhub/internal/models"
	"questhub/internal/repositories"
	"questhub/internal/validation"
	"time"

	"go.uber.org/zap"
)

const (
	catalogCacheKey       = "achievements:catalog"
	catalogEventKeyPrefix = "achievements:event_type:"
)

// achievementService implements AchievementService with catalog caching
type achievementService struct {
	achievementRepo repositories.AchievementRepository
	ledgerRepo      repositories.UserAchievementRepository
	userRepo        repositories.UserRepository
	cache           cache.Cache
	logger          *zap.Logger
	catalogTTL      time.Duration
}

// NewAchievementService creates a new achievement service
func NewAchievementService(
	achievementRepo repositories.AchievementRepository,
	ledgerRepo repositories.UserAchievementRepository,
	userRepo repositories.UserRepository,
	cacheInstance cache.Cache,
	catalogTTL time.Duration,
	logger *zap.Logger,
) AchievementService {
	if catalogTTL <= 0 {
		catalogTTL = 10 * time.Minute
	}
	return &achievementService{
		achievementRepo: achievementRepo,
		ledgerRepo:      ledgerRepo,
		userRepo:        userRepo,
		cache:           cacheInstance,
		logger:          logger,
		catalogTTL:      catalogTTL,
	}
}

// CreateAchievement adds a catalog entry (operator path).
func (s *achievementService) CreateAchievement(ctx context.Context, req *CreateAchievementRequest) (*models.Achievement, error) {
	if err := validation.ValidateStruct(req); err != nil {
		return nil, NewValidationError("invalid create achievement request", err)
	}
	if !req.Type.Valid() {
		return nil, NewValidationError(fmt.Sprintf("unknown achievement type %q", req.Type), nil)
	}

	targetCount := req.TargetCount
	if req.Type == models.AchievementTypeInstant || targetCount <= 0 {
		// Instant achievements always unlock on the first occurrence.
		targetCount = 1
	}

	achievement := &models.Achievement{
		Name:        req.Name,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Type:        req.Type,
		EventType:   req.EventType,
		TargetCount: targetCount,
	}

	if err := s.achievementRepo.Create(ctx, achievement); err != nil {
		s.logger.Error("Failed to create achievement", zap.Error(err), zap.String("name", req.Name))
		return nil, NewInternalError("failed to create achievement")
	}

	s.InvalidateCatalog(ctx)
	return achievement, nil
}

// GetAchievement returns one catalog entry.
func (s *achievementService) GetAchievement(ctx context.Context, id int64) (*models.Achievement, error) {
	if id <= 0 {
		return nil, NewValidationError("invalid achievement ID", nil)
	}

	achievement, err := s.achievementRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error("Failed to load achievement", zap.Error(err), zap.Int64("achievement_id", id))
		return nil, NewInternalError("failed to load achievement")
	}
	if achievement == nil {
		return nil, NewNotFoundError("achievement not found")
	}
	return achievement, nil
}

// GetCatalog returns the full catalog, cache-backed.
func (s *achievementService) GetCatalog(ctx context.Context) ([]*models.Achievement, error) {
	if achievements, ok := s.cachedCatalog(ctx, catalogCacheKey); ok {
		return achievements, nil
	}

	achievements, err := s.achievementRepo.ListAll(ctx)
	if err != nil {
		s.logger.Error("Failed to load achievement catalog", zap.Error(err))
		return nil, NewInternalError("failed to load achievement catalog")
	}

	if err := s.cache.Set(ctx, catalogCacheKey, achievements, s.catalogTTL); err != nil {
		s.logger.Warn("Failed to cache achievement catalog", zap.Error(err))
	}
	return achievements, nil
}

// GetByEventType returns matching achievements ordered by ascending target,
// cache-backed per event type.
func (s *achievementService) GetByEventType(ctx context.Context, eventType models.EventType) ([]*models.Achievement, error) {
	key := catalogEventKeyPrefix + string(eventType)
	if achievements, ok := s.cachedCatalog(ctx, key); ok {
		return achievements, nil
	}

	achievements, err := s.achievementRepo.ListByEventType(ctx, eventType)
	if err != nil {
		s.logger.Error("Failed to load achievements for event type",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
		return nil, NewInternalError("failed to load achievements for event type")
	}

	if err := s.cache.Set(ctx, key, achievements, s.catalogTTL); err != nil {
		s.logger.Warn("Failed to cache achievements for event type", zap.Error(err))
	}
	return achievements, nil
}

// GetUserProgress returns the joined catalog+ledger view for one user.
func (s *achievementService) GetUserProgress(ctx context.Context, userID int64) ([]*models.UserProgress, error) {
	if userID <= 0 {
		return nil, NewValidationError("invalid user ID", nil)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load user", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to load user")
	}
	if user == nil {
		return nil, NewNotFoundError("user not found")
	}

	progress, err := s.ledgerRepo.ListByUser(ctx, userID)
	if err != nil {
		s.logger.Error("Failed to load user progress", zap.Error(err), zap.Int64("user_id", userID))
		return nil, NewInternalError("failed to load user progress")
	}
	return progress, nil
}

// InvalidateCatalog drops cached catalog entries after a catalog mutation.
func (s *achievementService) InvalidateCatalog(ctx context.Context) {
	if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate catalog cache", zap.Error(err))
	}
	for _, eventType := range allEventTypes {
		if err := s.cache.Delete(ctx, catalogEventKeyPrefix+string(eventType)); err != nil {
			s.logger.Warn("Failed to invalidate event type cache",
				zap.Error(err),
				zap.String("event_type", string(eventType)),
			)
		}
	}
}

var allEventTypes = []models.EventType{
	models.EventTypePostCreated,
	models.EventTypeCommentCreated,
	models.EventTypeVoteCast,
	models.EventTypeBookmarkAdded,
	models.EventTypeCommunityJoined,
	models.EventTypeReferralCompleted,
	models.EventTypeReputationEarned,
	models.EventTypeStreakUpdated,
	models.EventTypeAccountAnniversary,
}

// cachedCatalog reads a catalog entry from the cache. The memory provider
// returns the typed slice directly; the redis provider returns raw JSON.
func (s *achievementService) cachedCatalog(ctx context.Context, key string) ([]*models.Achievement, bool) {
	value, ok := s.cache.Get(ctx, key)
	if !ok {
		return nil, false
	}

	switch v := value.(type) {
	case []*models.Achievement:
		return v, true
	case []byte:
		var achievements []*models.Achievement
		if err := json.Unmarshal(v, &achievements); err != nil {
			s.logger.Warn("Failed to decode cached catalog", zap.Error(err), zap.String("key", key))
			return nil, false
		}
		return achievements, true
	default:
		return nil, false
	}
}
