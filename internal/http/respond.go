package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/repository"
	"github.com/titanite07/TechVault/internal/service/auth"
	"github.com/titanite07/TechVault/internal/service/export"
)

// errorBody is the JSON shape of every failed response. Detail is only
// populated in development.
type errorBody struct {
	Message string   `json:"message"`
	Error   string   `json:"error,omitempty"`
	Reasons []string `json:"reasons,omitempty"`
}

// writeJSON writes JSON response with status code.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError sends an error message, exposing detail only in development.
func (r *Router) writeError(w http.ResponseWriter, status int, msg string, detail error) {
	body := errorBody{Message: msg}
	if detail != nil && r.cfg.Development() {
		body.Error = detail.Error()
	}
	writeJSON(w, status, body)
}

// writeServiceError maps service outcomes onto status codes.
func (r *Router) writeServiceError(w http.ResponseWriter, req *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Message: verr.Error(), Reasons: verr.Reasons})
	case errors.Is(err, repository.ErrNotFound):
		r.writeError(w, http.StatusNotFound, "Asset not found", err)
	case errors.Is(err, auth.ErrMissingCredentials), errors.Is(err, auth.ErrInvalidCredentials):
		r.writeError(w, http.StatusUnauthorized, auth.ErrInvalidCredentials.Error(), nil)
	case errors.Is(err, auth.ErrUnauthenticated):
		r.writeError(w, http.StatusUnauthorized, "authentication required", err)
	case errors.Is(err, auth.ErrForbidden):
		r.writeError(w, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, export.ErrNotConfigured):
		r.writeError(w, http.StatusServiceUnavailable, "export storage is not configured", err)
	default:
		r.logger.Error("request failed", "error", err, "path", req.URL.Path, "request_id", requestIDFromContext(req.Context()))
		r.writeError(w, http.StatusInternalServerError, "Internal server error", err)
	}
}
