package httpx

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/service/asset"
	"github.com/titanite07/TechVault/internal/service/auth"
	"github.com/titanite07/TechVault/internal/service/export"
	"github.com/titanite07/TechVault/internal/ws"
	"github.com/titanite07/TechVault/pkg/config"
)

// AssetService is the inventory API consumed by the handlers.
type AssetService interface {
	List(ctx context.Context) ([]domain.Asset, error)
	Get(ctx context.Context, id string) (*domain.Asset, error)
	Create(ctx context.Context, input asset.CreateInput) (*domain.Asset, error)
	Update(ctx context.Context, id string, patch domain.AssetPatch) (*domain.Asset, error)
	Delete(ctx context.Context, id string) (*domain.Asset, error)
	Analytics(ctx context.Context) (domain.Analytics, error)
}

// AuthService verifies credentials and session tokens.
type AuthService interface {
	Login(ctx context.Context, username, password string) (auth.Session, error)
	Authorize(ctx context.Context, token string) (domain.Identity, error)
}

// Exporter uploads inventory snapshots.
type Exporter interface {
	Export(ctx context.Context) (export.Result, error)
}

// EventHub fans asset events out to stream subscribers.
type EventHub interface {
	Register(ws.Subscriber)
	Unregister(ws.Subscriber)
}

// Deps collects the collaborators of a Router. Exporter, Hub, Limiter,
// DBHealth and Registry are optional.
type Deps struct {
	Logger   *slog.Logger
	Config   config.APIConfig
	Assets   AssetService
	Auth     AuthService
	Exporter Exporter
	Hub      EventHub
	Limiter  RateLimiter
	DBHealth func(context.Context) error
	Registry *prometheus.Registry
}

// Router wires HTTP endpoints to services.
type Router struct {
	mux      *http.ServeMux
	handler  http.Handler
	logger   *slog.Logger
	cfg      config.APIConfig
	assets   AssetService
	auth     AuthService
	exporter Exporter
	hub      EventHub
	upgrader websocket.Upgrader
	limiter  RateLimiter
	dbHealth func(context.Context) error
	metrics  *metrics
}

const (
	rateWindowDefault  = time.Minute
	rateWindowRealtime = 30 * time.Second
	rateLimitLogin     = 12
	rateLimitUserWrite = 60
	rateLimitUserRead  = 120
	rateLimitExport    = 6
	rateLimitRealtime  = 30
	healthCheckTimeout = 2 * time.Second
	sseHeartbeat       = 15 * time.Second
)

// NewRouter assembles routes with dependencies.
func NewRouter(deps Deps) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Router{
		mux:      http.NewServeMux(),
		logger:   logger,
		cfg:      deps.Config,
		assets:   deps.Assets,
		auth:     deps.Auth,
		exporter: deps.Exporter,
		hub:      deps.Hub,
		limiter:  deps.Limiter,
		dbHealth: deps.DBHealth,
		metrics:  newMetrics(reg),
	}
	r.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			origin := req.Header.Get("Origin")
			return origin == "" || r.originAllowed(origin)
		},
	}
	if r.limiter == nil {
		r.limiter = NewMemoryRateLimiter()
	}
	r.register()
	r.handler = r.withRecover(withRequestID(r.withCORS(r.withBodyLimit(r.mux))))
	return r
}

// ServeHTTP delegates to the middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.handler.ServeHTTP(w, req)
}

// Close releases background resources.
func (r *Router) Close() {
	if r.limiter != nil {
		r.limiter.Close()
	}
}

func (r *Router) register() {
	read := func(h http.HandlerFunc) http.HandlerFunc {
		return r.audit(r.requireAuth(r.withRateLimit(rateLimitUserRead, rateWindowDefault, h)))
	}
	write := func(h http.HandlerFunc) http.HandlerFunc {
		return r.audit(r.requireRole(domain.RoleAdmin, r.withRateLimit(rateLimitUserWrite, rateWindowDefault, h)))
	}

	r.mux.HandleFunc("GET /api/health", r.audit(r.handleHealth))
	r.mux.HandleFunc("GET /api/ready", r.audit(r.handleReady))
	r.mux.Handle("GET /metrics", r.metrics.handler)
	r.mux.HandleFunc("POST /api/auth/login", r.audit(r.withRateLimit(rateLimitLogin, rateWindowDefault, r.handleLogin)))

	r.mux.HandleFunc("GET /api/assets", read(r.handleListAssets))
	r.mux.HandleFunc("POST /api/assets", write(r.handleCreateAsset))
	r.mux.HandleFunc("GET /api/assets/analytics", read(r.handleAnalytics))
	r.mux.HandleFunc("POST /api/assets/export", r.audit(r.requireRole(domain.RoleAdmin, r.withRateLimit(rateLimitExport, rateWindowDefault, r.handleExport))))
	r.mux.HandleFunc("GET /api/assets/stream", r.audit(r.requireAuth(r.withRateLimit(rateLimitRealtime, rateWindowRealtime, r.handleStream))))
	r.mux.HandleFunc("GET /api/assets/{id}", read(r.handleGetAsset))
	r.mux.HandleFunc("PUT /api/assets/{id}", write(r.handleUpdateAsset))
	r.mux.HandleFunc("DELETE /api/assets/{id}", write(r.handleDeleteAsset))
	r.mux.HandleFunc("GET /ws/assets", r.audit(r.withQueryToken(r.requireAuth(r.withRateLimit(rateLimitRealtime, rateWindowRealtime, r.handleAssetsWS)))))
}

// storeContext bounds a store call by the configured request timeout.
func (r *Router) storeContext(req *http.Request) (context.Context, context.CancelFunc) {
	if r.cfg.RequestTimeout <= 0 {
		return context.WithCancel(req.Context())
	}
	return context.WithTimeout(req.Context(), r.cfg.RequestTimeout)
}

// handleHealth is a liveness probe: it answers 200 while the process serves
// requests and reports dependency state in the body only.
func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	components := make(map[string]any)
	if db, ok := r.databaseStatus(req.Context()); ok {
		components["database"] = db
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "OK",
		"message":    "TechVault API is running",
		"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		"components": components,
	})
}

// handleReady is the readiness probe and fails while the store is unreachable.
func (r *Router) handleReady(w http.ResponseWriter, req *http.Request) {
	db, ok := r.databaseStatus(req.Context())
	if ok && db["status"] != "up" {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "database": db})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (r *Router) databaseStatus(ctx context.Context) (map[string]any, bool) {
	if r.dbHealth == nil {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	if err := r.dbHealth(ctx); err != nil {
		db := map[string]any{"status": "down"}
		if r.cfg.Development() {
			db["error"] = err.Error()
		}
		return db, true
	}
	return map[string]any{"status": "up"}, true
}
