package response

import (
	"encoding/json"
	"net/http"
	"time"

	"questhub/internal/services"

	"go.uber.org/zap"
)

// ===============================
// RESPONSE TYPES
// ===============================

// APIResponse represents a standardized API response
type APIResponse struct {
	Success   bool         `json:"success"`
	Data      interface{}  `json:"data,omitempty"`
	Error     *ErrorDetail `json:"error,omitempty"`
	Timestamp int64        `json:"timestamp,omitempty"`
}

// ErrorDetail represents error information in API responses
type ErrorDetail struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Code    string                 `json:"code,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// ===============================
// RESPONSE BUILDER
// ===============================

// Builder helps construct standardized responses
type Builder struct {
	logger *zap.Logger
}

// NewBuilder creates a new response builder
func NewBuilder(logger *zap.Logger) *Builder {
	return &Builder{logger: logger}
}

// WriteSuccess writes a 200 response with the given payload
func (b *Builder) WriteSuccess(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.write(w, r, http.StatusOK, &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// WriteCreated writes a 201 response with the given payload
func (b *Builder) WriteCreated(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.write(w, r, http.StatusCreated, &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// WriteAccepted writes a 202 response for work handed off asynchronously
func (b *Builder) WriteAccepted(w http.ResponseWriter, r *http.Request, data interface{}) {
	b.write(w, r, http.StatusAccepted, &APIResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// WriteError maps a service error onto the response envelope. Internal error
// details are masked; the structured log carries the cause.
func (b *Builder) WriteError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := services.GetServiceError(err)
	status := serviceErr.GetStatusCode()

	message := serviceErr.Message
	if status >= http.StatusInternalServerError {
		b.logger.Error("Request failed",
			zap.Error(err),
			zap.String("path", r.URL.Path),
			zap.String("method", r.Method),
		)
		message = "An internal error occurred"
	}

	b.write(w, r, status, &APIResponse{
		Success: false,
		Error: &ErrorDetail{
			Type:    serviceErr.Type,
			Message: message,
			Code:    serviceErr.Code,
			Details: serviceErr.Details,
		},
		Timestamp: time.Now().Unix(),
	})
}

// WriteBadRequest writes a 400 validation failure
func (b *Builder) WriteBadRequest(w http.ResponseWriter, r *http.Request, message string) {
	b.WriteError(w, r, services.NewValidationError(message, nil))
}

// WriteNotFound writes a 404 response
func (b *Builder) WriteNotFound(w http.ResponseWriter, r *http.Request, message string) {
	b.WriteError(w, r, services.NewNotFoundError(message))
}

func (b *Builder) write(w http.ResponseWriter, r *http.Request, status int, payload *APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		b.logger.Error("Failed to encode response",
			zap.Error(err),
			zap.String("path", r.URL.Path),
		)
	}
}
