package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/service/auth"
)

type authContextKey string

const contextKeyAuth authContextKey = "techvault-identity"

type contextSetter interface {
	SetContext(context.Context)
}

// requireRole authenticates the caller and, when role is non-empty, checks
// it. With enforcement disabled every request passes through.
func (r *Router) requireRole(role domain.Role, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if !r.cfg.AuthEnforce {
			next(w, req)
			return
		}
		token, err := bearerToken(req.Header.Get("Authorization"))
		if err != nil {
			r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
			r.writeError(w, http.StatusUnauthorized, "authentication required", err)
			return
		}
		ctx, ok := r.authenticate(w, req, token)
		if !ok {
			return
		}
		req = req.WithContext(ctx)
		if role != "" {
			id, _ := identityFromContext(ctx)
			if err := auth.RequireRole(id, role); err != nil {
				r.logger.Warn("role check failed", "path", req.URL.Path, "user_id", id.UserID, "role", id.Role, "required", role)
				r.writeError(w, http.StatusForbidden, "forbidden", err)
				return
			}
		}
		next(w, req)
	}
}

// requireAuth admits any authenticated identity.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return r.requireRole("", next)
}

// authenticate validates token and enriches the request context.
func (r *Router) authenticate(w http.ResponseWriter, req *http.Request, token string) (context.Context, bool) {
	id, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			r.writeServiceError(w, req, err)
			return req.Context(), false
		}
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		r.writeError(w, http.StatusUnauthorized, "authentication failed", err)
		return req.Context(), false
	}
	ctx := context.WithValue(req.Context(), contextKeyAuth, id)
	if setter, ok := w.(contextSetter); ok {
		setter.SetContext(ctx)
	}
	return ctx, true
}

// identityFromContext extracts the authenticated identity.
func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(contextKeyAuth).(domain.Identity)
	return id, ok
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
