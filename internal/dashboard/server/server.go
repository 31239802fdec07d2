package server

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/titanite07/TechVault/internal/dashboard/session"
	"github.com/titanite07/TechVault/internal/dashboard/view"
	"github.com/titanite07/TechVault/internal/domain"
	apiclient "github.com/titanite07/TechVault/pkg/api/client"
	"github.com/titanite07/TechVault/pkg/config"
)

//go:embed templates/*.html
var templateFS embed.FS

// Server hosts the dashboard web UI.
type Server struct {
	cfg       config.DashboardConfig
	api       *apiclient.Client
	sessions  session.Manager
	templates *template.Template
	mux       *http.ServeMux
	logger    *slog.Logger
	throttle  *loginThrottle
}

// New constructs a configured server ready to serve HTTP traffic.
func New(cfg config.DashboardConfig, logger *slog.Logger, opts ...apiclient.Option) (*Server, error) {
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return nil, errors.New("SESSION_SECRET must be configured for the dashboard")
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	apiClient, err := apiclient.New(cfg.APIBaseURL, opts...)
	if err != nil {
		return nil, err
	}
	sessionMgr, err := session.New(cfg.SessionSecret, cfg.CookieName, cfg.CookieSecure)
	if err != nil {
		return nil, err
	}
	templates, err := template.New("base").Funcs(template.FuncMap{
		"deref":   deref,
		"datefmt": func(t time.Time) string { return t.Local().Format("Jan 2, 2006 15:04") },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	srv := &Server{
		cfg:       cfg,
		api:       apiClient,
		sessions:  sessionMgr,
		templates: templates,
		mux:       http.NewServeMux(),
		logger:    logger,
		throttle:  newLoginThrottle(cfg.LoginPerMinute, cfg.LoginBurst),
	}
	srv.registerRoutes()
	return srv, nil
}

// ServeHTTP conforms to http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)
	s.mux.HandleFunc("GET /login", s.handleLoginForm)
	s.mux.HandleFunc("POST /login", s.handleLogin)
	s.mux.HandleFunc("POST /logout", s.handleLogout)

	s.mux.HandleFunc("GET /admin", s.requireRole(domain.RoleAdmin, s.handleAdmin))
	s.mux.HandleFunc("POST /admin/assets", s.requireRole(domain.RoleAdmin, s.handleAssetCreate))
	s.mux.HandleFunc("POST /admin/assets/{id}/update", s.requireRole(domain.RoleAdmin, s.handleAssetUpdate))
	s.mux.HandleFunc("POST /admin/assets/{id}/delete", s.requireRole(domain.RoleAdmin, s.handleAssetDelete))
	s.mux.HandleFunc("POST /admin/export", s.requireRole(domain.RoleAdmin, s.handleExport))
	s.mux.HandleFunc("GET /employee", s.requireRole(domain.RoleEmployee, s.handleEmployee))
	s.mux.HandleFunc("GET /analytics", s.requireAuth(s.handleAnalytics))
}

type sessionHandler func(http.ResponseWriter, *http.Request, session.Context)

func (s *Server) requireAuth(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.sessions.FromRequest(r)
		if err != nil {
			if errors.Is(err, session.ErrInvalidSession) {
				s.logger.Warn("session validation failed", "error", err)
				http.SetCookie(w, s.sessions.Clear())
				redirectWithFlash(w, r, "/login", "please sign in")
				return
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	}
}

func (s *Server) requireRole(role domain.Role, next sessionHandler) http.HandlerFunc {
	return s.requireAuth(func(w http.ResponseWriter, r *http.Request, sess session.Context) {
		if sess.Role != role {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r, sess)
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.FromRequest(r)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, sess.Home(), http.StatusSeeOther)
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, sess.Home(), http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "login", map[string]any{
		"Title":      "Sign in",
		"Flash":      flashFromRequest(r),
		"HideChrome": true,
		"Username":   "",
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form payload")
		return
	}
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	loginPage := func(status int, flash string) {
		s.render(w, r, status, "login", map[string]any{
			"Title":      "Sign in",
			"Flash":      flash,
			"HideChrome": true,
			"Username":   username,
		})
	}

	if !s.throttle.allow(clientIP(r)) {
		s.logger.Warn("dashboard login throttled", "ip", clientIP(r))
		loginPage(http.StatusTooManyRequests, "Too many sign-in attempts. Try again shortly.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	resp, err := s.api.Login(ctx, username, password)
	if err != nil {
		s.logger.Warn("login failed", "username", username, "error", err)
		loginPage(loginFailure(err))
		return
	}
	cookie, err := s.sessions.Issue(session.Context{
		Username:  resp.Username,
		Role:      resp.Role,
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
	})
	if err != nil {
		s.logger.Error("session issuance failed", "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "session issuance failed")
		return
	}
	http.SetCookie(w, cookie)
	home := "/employee"
	if resp.Role == domain.RoleAdmin {
		home = "/admin"
	}
	http.Redirect(w, r, home, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.sessions.Clear())
	redirectWithFlash(w, r, "/login", "Signed out")
}

func (s *Server) handleAdmin(w http.ResponseWriter, r *http.Request, sess session.Context) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	assets, err := s.api.ListAssets(ctx, sess.Token)
	if err != nil {
		s.apiFailure(w, r, err, "failed to load assets")
		return
	}
	s.render(w, r, http.StatusOK, "admin", map[string]any{
		"Title":   "Admin Dashboard",
		"Flash":   flashFromRequest(r),
		"Session": sess,
		"View":    view.NewAdmin(assets),
	})
}

func (s *Server) handleEmployee(w http.ResponseWriter, r *http.Request, sess session.Context) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	assets, err := s.api.ListAssets(ctx, sess.Token)
	if err != nil {
		s.apiFailure(w, r, err, "failed to load assets")
		return
	}
	s.render(w, r, http.StatusOK, "employee", map[string]any{
		"Title":   "Asset Inventory",
		"Flash":   flashFromRequest(r),
		"Session": sess,
		"View":    view.NewEmployee(assets, r.URL.Query().Get("type")),
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request, sess session.Context) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	summary, err := s.api.Analytics(ctx, sess.Token)
	if err != nil {
		s.apiFailure(w, r, err, "failed to load analytics")
		return
	}
	s.render(w, r, http.StatusOK, "analytics", map[string]any{
		"Title":   "Analytics",
		"Flash":   flashFromRequest(r),
		"Session": sess,
		"View":    view.NewAnalytics(summary),
	})
}

func (s *Server) handleAssetCreate(w http.ResponseWriter, r *http.Request, sess session.Context) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form payload")
		return
	}
	input := apiclient.CreateAssetRequest{
		Name:           r.PostFormValue("name"),
		Type:           domain.AssetType(r.PostFormValue("type")),
		Status:         domain.AssetStatus(r.PostFormValue("status")),
		Specifications: r.PostFormValue("specifications"),
	}
	if assignee := strings.TrimSpace(r.PostFormValue("assignedTo")); assignee != "" {
		input.AssignedTo = &assignee
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	created, err := s.api.CreateAsset(ctx, sess.Token, input)
	if err != nil {
		s.logger.Warn("asset create failed", "error", err)
		s.actionFailure(w, r, err, "Asset creation failed")
		return
	}
	redirectWithFlash(w, r, "/admin", "Asset "+created.Name+" created")
}

func (s *Server) handleAssetUpdate(w http.ResponseWriter, r *http.Request, sess session.Context) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "invalid form payload")
		return
	}
	var patch domain.AssetPatch
	if raw := strings.TrimSpace(r.PostFormValue("status")); raw != "" {
		status := domain.AssetStatus(raw)
		patch.Status = &status
	}
	if _, ok := r.PostForm["assignedTo"]; ok {
		patch.AssignedTo.Set = true
		if assignee := strings.TrimSpace(r.PostFormValue("assignedTo")); assignee != "" {
			patch.AssignedTo.Value = &assignee
		}
	}
	if patch.Empty() {
		redirectWithFlash(w, r, "/admin", "Nothing to update")
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	updated, err := s.api.UpdateAsset(ctx, sess.Token, r.PathValue("id"), patch)
	if err != nil {
		s.logger.Warn("asset update failed", "asset_id", r.PathValue("id"), "error", err)
		s.actionFailure(w, r, err, "Asset update failed")
		return
	}
	redirectWithFlash(w, r, "/admin", "Asset "+updated.Name+" updated")
}

func (s *Server) handleAssetDelete(w http.ResponseWriter, r *http.Request, sess session.Context) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	deleted, err := s.api.DeleteAsset(ctx, sess.Token, r.PathValue("id"))
	if err != nil {
		s.logger.Warn("asset delete failed", "asset_id", r.PathValue("id"), "error", err)
		s.actionFailure(w, r, err, "Asset deletion failed")
		return
	}
	redirectWithFlash(w, r, "/admin", "Asset "+deleted.Name+" deleted")
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess session.Context) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.RequestTimeout)
	defer cancel()
	res, err := s.api.Export(ctx, sess.Token)
	if err != nil {
		s.logger.Warn("inventory export failed", "error", err)
		s.actionFailure(w, r, err, "Export failed")
		return
	}
	redirectWithFlash(w, r, "/admin", "Exported "+strconv.Itoa(res.Count)+" assets to "+res.Bucket+"/"+res.Key)
}

// apiFailure renders a page load failure. An expired API token ends the session.
func (s *Server) apiFailure(w http.ResponseWriter, r *http.Request, err error, message string) {
	if apiclient.IsStatus(err, http.StatusUnauthorized) {
		http.SetCookie(w, s.sessions.Clear())
		redirectWithFlash(w, r, "/login", "Session expired, please sign in again")
		return
	}
	s.logger.Error("api request failed", "error", err)
	s.renderError(w, r, http.StatusBadGateway, message)
}

// actionFailure reports a failed form action back on the admin page.
func (s *Server) actionFailure(w http.ResponseWriter, r *http.Request, err error, prefix string) {
	if apiclient.IsStatus(err, http.StatusUnauthorized) {
		http.SetCookie(w, s.sessions.Clear())
		redirectWithFlash(w, r, "/login", "Session expired, please sign in again")
		return
	}
	redirectWithFlash(w, r, "/admin", prefix+": "+describeError(err))
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, tpl string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, tpl, data); err != nil {
		s.logger.Error("template render failed", "template", tpl, "path", r.URL.Path, "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.logger.Warn("dashboard error", "status", status, "path", r.URL.Path, "message", message)
	http.Error(w, message, status)
}

func flashFromRequest(r *http.Request) string {
	return strings.TrimSpace(r.URL.Query().Get("flash"))
}

func redirectWithFlash(w http.ResponseWriter, r *http.Request, target, message string) {
	if strings.TrimSpace(target) == "" {
		target = "/"
	}
	if strings.TrimSpace(message) == "" {
		http.Redirect(w, r, target, http.StatusSeeOther)
		return
	}
	u, err := url.Parse(target)
	if err != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	q := u.Query()
	q.Set("flash", message)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusSeeOther)
}

// loginFailure maps an API login error to the page status and flash. Client
// errors are passed through; an unreachable or failing API is a bad gateway.
func loginFailure(err error) (int, string) {
	var apiErr apiclient.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= http.StatusBadRequest && apiErr.Status < http.StatusInternalServerError {
		msg := apiErr.Message
		if msg == "" {
			msg = http.StatusText(apiErr.Status)
		}
		return apiErr.Status, msg
	}
	return http.StatusBadGateway, "Sign-in is unavailable right now"
}

func describeError(err error) string {
	var apiErr apiclient.APIError
	if !errors.As(err, &apiErr) {
		return "API unreachable"
	}
	if len(apiErr.Reasons) > 0 {
		return strings.Join(apiErr.Reasons, "; ")
	}
	if apiErr.Message != "" {
		return apiErr.Message
	}
	return http.StatusText(apiErr.Status)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// loginThrottle keeps one token bucket per client address.
type loginThrottle struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*throttleEntry
	now      func() time.Time
}

type throttleEntry struct {
	limiter *rate.Limiter
	seen    time.Time
}

const throttleIdle = 10 * time.Minute

func newLoginThrottle(perMinute, burst int) *loginThrottle {
	if perMinute <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	return &loginThrottle{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		limiters: make(map[string]*throttleEntry),
		now:      time.Now,
	}
}

func (t *loginThrottle) allow(key string) bool {
	if t == nil {
		return true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for k, e := range t.limiters {
		if now.Sub(e.seen) > throttleIdle {
			delete(t.limiters, k)
		}
	}
	e, ok := t.limiters[key]
	if !ok {
		e = &throttleEntry{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.limiters[key] = e
	}
	e.seen = now
	return e.limiter.AllowN(now, 1)
}
