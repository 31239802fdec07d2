// Package session keeps the dashboard identity in an encrypted cookie.
// Each request decodes its own Context; nothing is cached between requests.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/pkg/crypto"
)

var (
	// ErrNoSession is returned when the request carries no session cookie.
	ErrNoSession = errors.New("session: not signed in")
	// ErrInvalidSession is returned for a cookie that cannot be opened or has expired.
	ErrInvalidSession = errors.New("session: invalid or expired")
)

// Context is the signed-in identity for one request.
type Context struct {
	Username  string      `json:"username"`
	Role      domain.Role `json:"role"`
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

// IsAdmin reports whether the session belongs to an admin.
func (c Context) IsAdmin() bool {
	return c.Role == domain.RoleAdmin
}

// Home is the landing path for the session's role.
func (c Context) Home() string {
	if c.IsAdmin() {
		return "/admin"
	}
	return "/employee"
}

// Manager issues and reads session cookies.
type Manager struct {
	secret string
	name   string
	secure bool
	now    func() time.Time
}

// New returns a Manager. secret must be non-empty.
func New(secret, cookieName string, secure bool) (Manager, error) {
	if strings.TrimSpace(secret) == "" {
		return Manager{}, errors.New("session secret is required")
	}
	if cookieName == "" {
		cookieName = "techvault_session"
	}
	return Manager{secret: secret, name: cookieName, secure: secure, now: time.Now}, nil
}

// Issue seals ctx into a cookie expiring with the API token.
func (m Manager) Issue(ctx Context) (*http.Cookie, error) {
	if ctx.Token == "" || !ctx.Role.Valid() {
		return nil, errors.New("session requires a token and a valid role")
	}
	raw, err := json.Marshal(ctx)
	if err != nil {
		return nil, fmt.Errorf("encode session: %w", err)
	}
	value, err := crypto.SealToken(m.secret, string(raw), m.name)
	if err != nil {
		return nil, fmt.Errorf("seal session: %w", err)
	}
	cookie := &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if !ctx.ExpiresAt.IsZero() {
		cookie.Expires = ctx.ExpiresAt
		cookie.MaxAge = int(ctx.ExpiresAt.Sub(m.now()).Seconds())
		if cookie.MaxAge <= 0 {
			cookie.MaxAge = -1
		}
	}
	return cookie, nil
}

// FromRequest decodes the session carried by r.
func (m Manager) FromRequest(r *http.Request) (Context, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return Context{}, ErrNoSession
	}
	plain, err := crypto.OpenToken(m.secret, cookie.Value, m.name)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	var ctx Context
	if err := json.Unmarshal([]byte(plain), &ctx); err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if ctx.Token == "" || !ctx.Role.Valid() {
		return Context{}, ErrInvalidSession
	}
	if !ctx.ExpiresAt.IsZero() && !m.now().Before(ctx.ExpiresAt) {
		return Context{}, fmt.Errorf("%w: expired", ErrInvalidSession)
	}
	return ctx, nil
}

// Clear returns a cookie that removes the session.
func (m Manager) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
	}
}
