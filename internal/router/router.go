package router

import (
	"net/http"
	"time"

	"questhub/internal/database"
	"questhub/internal/handlers/api/v1/achievements"
	"questhub/internal/response"
	"questhub/internal/services"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(
	serviceCollection *services.ServiceCollection,
	db *database.Manager,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) http.Handler {
	r := mux.NewRouter()
	r.Use(recoveryMiddleware(logger))
	r.Use(loggingMiddleware(logger))

	r.HandleFunc("/health", healthHandler(db, responseBuilder)).Methods(http.MethodGet)

	controller := achievements.NewController(serviceCollection, logger, responseBuilder)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/achievements", controller.GetCatalog).Methods(http.MethodGet)
	api.HandleFunc("/achievements", controller.CreateAchievement).Methods(http.MethodPost)
	api.HandleFunc("/achievements/{id:[0-9]+}", controller.GetAchievement).Methods(http.MethodGet)
	api.HandleFunc("/achievements/events", controller.RecordEvent).Methods(http.MethodPost)
	api.HandleFunc("/achievements/sync", controller.SyncUsers).Methods(http.MethodPost)
	api.HandleFunc("/achievements/rarity/recompute", controller.RecomputeRarity).Methods(http.MethodPost)
	api.HandleFunc("/users/{id:[0-9]+}/progress", controller.GetUserProgress).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		responseBuilder.WriteNotFound(w, req, "Resource not found")
	})

	return r
}

// healthHandler reports process and database health
func healthHandler(db *database.Manager, responseBuilder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			responseBuilder.WriteError(w, r, services.NewInternalError("database unreachable"))
			return
		}
		responseBuilder.WriteSuccess(w, r, map[string]string{"status": "ok"})
	}
}

// loggingMiddleware logs each request with latency and status
func loggingMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info("Request handled",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", rec.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// recoveryMiddleware converts panics into 500 responses
func recoveryMiddleware(logger *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("Panic in handler",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_, _ = w.Write([]byte(`{"success":false,"error":{"type":"INTERNAL_ERROR","message":"An internal error occurred"}}`))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
