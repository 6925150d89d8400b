// ===============================
// FILE: internal/handlers/api/v1/achievements/achievements_controller.go
// ===============================

package achievements

import (
	"encoding/json"
	"net/http"
	"strconv"

	"questhub/internal/models"
	"questhub/internal/response"
	"questhub/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Controller handles achievement API endpoints
type Controller struct {
	services        *services.ServiceCollection
	logger          *zap.Logger
	responseBuilder *response.Builder
}

// NewController creates a new achievement controller
func NewController(
	serviceCollection *services.ServiceCollection,
	logger *zap.Logger,
	responseBuilder *response.Builder,
) *Controller {
	return &Controller{
		services:        serviceCollection,
		logger:          logger,
		responseBuilder: responseBuilder,
	}
}

// ===============================
// CATALOG OPERATIONS
// ===============================

// CreateAchievement handles POST /api/v1/achievements
func (c *Controller) CreateAchievement(w http.ResponseWriter, r *http.Request) {
	var req services.CreateAchievementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Warn("Failed to decode create achievement request", zap.Error(err))
		c.responseBuilder.WriteBadRequest(w, r, "Invalid request body format")
		return
	}

	achievement, err := c.services.Achievement.CreateAchievement(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("Achievement created via API",
		zap.Int64("achievement_id", achievement.ID),
		zap.String("name", achievement.Name),
	)
	c.responseBuilder.WriteCreated(w, r, achievement)
}

// GetCatalog handles GET /api/v1/achievements
func (c *Controller) GetCatalog(w http.ResponseWriter, r *http.Request) {
	catalog, err := c.services.Achievement.GetCatalog(r.Context())
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, catalog)
}

// GetAchievement handles GET /api/v1/achievements/{id}
func (c *Controller) GetAchievement(w http.ResponseWriter, r *http.Request) {
	achievementID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || achievementID <= 0 {
		c.responseBuilder.WriteBadRequest(w, r, "Invalid achievement ID")
		return
	}

	achievement, err := c.services.Achievement.GetAchievement(r.Context(), achievementID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, achievement)
}

// GetUserProgress handles GET /api/v1/users/{id}/progress
func (c *Controller) GetUserProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || userID <= 0 {
		c.responseBuilder.WriteBadRequest(w, r, "Invalid user ID")
		return
	}

	progress, err := c.services.Achievement.GetUserProgress(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, progress)
}

// ===============================
// ENGINE OPERATIONS
// ===============================

// RecordEvent handles POST /api/v1/achievements/events. The evaluation itself
// never fails the request: a malformed payload is rejected, everything past
// that point is best-effort.
func (c *Controller) RecordEvent(w http.ResponseWriter, r *http.Request) {
	var req services.EvaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Warn("Failed to decode evaluate request", zap.Error(err))
		c.responseBuilder.WriteBadRequest(w, r, "Invalid request body format")
		return
	}
	if req.UserID <= 0 {
		c.responseBuilder.WriteBadRequest(w, r, "user_id must be positive")
		return
	}
	if req.EventType == "" {
		c.responseBuilder.WriteBadRequest(w, r, "event_type is required")
		return
	}

	c.services.Evaluation.Evaluate(r.Context(), req.UserID, req.EventType, req.Value)
	c.responseBuilder.WriteAccepted(w, r, map[string]interface{}{
		"user_id":    req.UserID,
		"event_type": req.EventType,
	})
}

// SyncUsers handles POST /api/v1/achievements/sync
func (c *Controller) SyncUsers(w http.ResponseWriter, r *http.Request) {
	var req services.SyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		c.logger.Warn("Failed to decode sync request", zap.Error(err))
		c.responseBuilder.WriteBadRequest(w, r, "Invalid request body format")
		return
	}

	params := models.PaginationParams{Offset: req.Offset, Limit: req.Limit}
	result, err := c.services.RetroSync.SyncWindow(r.Context(), params)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}

// RecomputeRarity handles POST /api/v1/achievements/rarity/recompute. The
// scheduled job is the normal path; this endpoint exists for operators.
func (c *Controller) RecomputeRarity(w http.ResponseWriter, r *http.Request) {
	if err := c.services.Rarity.RecomputeRarity(r.Context()); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]string{"status": "recomputed"})
}
