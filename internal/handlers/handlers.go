// Package handlers contains the HTTP surface of the report lifecycle service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"flagpost/internal/access"
	"flagpost/internal/middleware"
	"flagpost/internal/report"

	"github.com/rs/zerolog/log"
)

// Config holds handler configuration options
type Config struct {
	// PublicURL is the public-facing URL for the server. Used for
	// constructing absolute URLs in responses.
	PublicURL string
}

// Handler contains all HTTP handler methods and their dependencies.
// Dependencies are injected via the constructor for better testability.
type Handler struct {
	service *report.Service
	access  *access.Service
	config  Config
}

// NewHandler creates a new Handler with all required dependencies.
func NewHandler(service *report.Service, accessService *access.Service, config Config) *Handler {
	return &Handler{
		service: service,
		access:  accessService,
		config:  config,
	}
}

// errorResponse is the JSON shape of every error reply.
type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("handlers: failed to encode response")
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var validationErr *report.ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, validationErr.Error(), http.StatusBadRequest)
	case errors.Is(err, report.ErrDuplicateReport):
		writeError(w, "You have already reported this content", http.StatusConflict)
	case errors.Is(err, report.ErrReportNotFound):
		writeError(w, "Report not found", http.StatusNotFound)
	case errors.Is(err, report.ErrStoreUnavailable):
		writeError(w, "Service temporarily unavailable", http.StatusServiceUnavailable)
	default:
		log.Error().Err(err).Msg("handlers: internal error")
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// isJSONRequest checks whether the request carries a JSON body.
func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}

// requirePermission resolves the calling moderator and checks the permission.
// It writes the error response itself and returns ok=false on failure.
func (h *Handler) requirePermission(w http.ResponseWriter, r *http.Request, perm access.Permission) (string, bool) {
	userID := middleware.UserID(r)
	if userID == "" {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return "", false
	}

	if !h.access.HasPermission(userID, perm) {
		log.Warn().
			Str("user_id", userID).
			Str("permission", string(perm)).
			Str("path", r.URL.Path).
			Msg("handlers: permission denied")
		writeError(w, "Permission denied", http.StatusForbidden)
		return "", false
	}

	return userID, true
}

// HandleHealthz reports process liveness.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
