package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/service/asset"
	"github.com/titanite07/TechVault/internal/service/auth"
)

type loginResponse struct {
	Message   string      `json:"message"`
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type deleteResponse struct {
	Message string       `json:"message"`
	Asset   domain.Asset `json:"asset"`
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !r.decodeJSON(w, req, &payload) {
		return
	}
	ctx, cancel := r.storeContext(req)
	defer cancel()

	session, err := r.auth.Login(ctx, payload.Username, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			r.metrics.recordLogin("rejected")
		case errors.Is(err, auth.ErrMissingCredentials):
			r.metrics.recordLogin("invalid")
		default:
			r.metrics.recordLogin("error")
		}
		r.writeServiceError(w, req, err)
		return
	}
	r.metrics.recordLogin("success")
	writeJSON(w, http.StatusOK, loginResponse{
		Message:   "Login successful",
		ID:        session.Identity.UserID,
		Username:  session.Identity.Username,
		Role:      session.Identity.Role,
		Token:     session.Token,
		ExpiresAt: session.ExpiresAt,
	})
}

func (r *Router) handleListAssets(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.storeContext(req)
	defer cancel()
	assets, err := r.assets.List(ctx)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, assets)
}

func (r *Router) handleGetAsset(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.storeContext(req)
	defer cancel()
	a, err := r.assets.Get(ctx, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (r *Router) handleCreateAsset(w http.ResponseWriter, req *http.Request) {
	var payload asset.CreateInput
	if !r.decodeJSON(w, req, &payload) {
		return
	}
	ctx, cancel := r.storeContext(req)
	defer cancel()
	created, err := r.assets.Create(ctx, payload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	w.Header().Set("Location", "/api/assets/"+created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// handleUpdateAsset applies a partial update. Body fields id and createdAt
// have no counterpart in the patch and are dropped during decoding.
func (r *Router) handleUpdateAsset(w http.ResponseWriter, req *http.Request) {
	var patch domain.AssetPatch
	if !r.decodeJSON(w, req, &patch) {
		return
	}
	ctx, cancel := r.storeContext(req)
	defer cancel()
	updated, err := r.assets.Update(ctx, req.PathValue("id"), patch)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (r *Router) handleDeleteAsset(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.storeContext(req)
	defer cancel()
	deleted, err := r.assets.Delete(ctx, req.PathValue("id"))
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, deleteResponse{Message: "Asset deleted successfully", Asset: *deleted})
}

func (r *Router) handleAnalytics(w http.ResponseWriter, req *http.Request) {
	ctx, cancel := r.storeContext(req)
	defer cancel()
	analytics, err := r.assets.Analytics(ctx)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, analytics)
}

func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) {
	if r.exporter == nil {
		r.writeError(w, http.StatusServiceUnavailable, "export storage is not configured", nil)
		return
	}
	result, err := r.exporter.Export(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// decodeJSON reports false after writing a 400 when the body is unusable.
func (r *Router) decodeJSON(w http.ResponseWriter, req *http.Request, dst any) bool {
	if err := json.NewDecoder(req.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			r.writeError(w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		r.writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return false
	}
	return true
}
