package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/repository"
	"github.com/titanite07/TechVault/internal/repository/memory"
	"github.com/titanite07/TechVault/pkg/config"
	jwtpkg "github.com/titanite07/TechVault/pkg/jwt"
)

func newTestService(t *testing.T) (Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	cfg := config.APIConfig{JWTSecret: "test-secret", SessionTTL: time.Hour}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(store, log, cfg).WithHashCost(bcrypt.MinCost)

	ctx := context.Background()
	_, _, err := svc.EnsureUser(ctx, "admin", "admin123", domain.RoleAdmin)
	require.NoError(t, err)
	_, _, err = svc.EnsureUser(ctx, "employee", "emp123", domain.RoleEmployee)
	require.NoError(t, err)
	return svc, store
}

func TestLoginSuccessIssuesToken(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Login(context.Background(), "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "admin", session.Identity.Username)
	assert.Equal(t, domain.RoleAdmin, session.Identity.Role)
	assert.NotEmpty(t, session.Token)
	assert.True(t, session.ExpiresAt.After(time.Now()))

	claims, err := jwtpkg.Parse(session.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Username)
	assert.Equal(t, string(domain.RoleAdmin), claims.Role)
}

func TestLoginWrongPasswordAndUnknownUserLookAlike(t *testing.T) {
	svc, _ := newTestService(t)

	_, wrongPassword := svc.Login(context.Background(), "admin", "wrong")
	_, unknownUser := svc.Login(context.Background(), "ghost", "whatever")

	require.ErrorIs(t, wrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, unknownUser, ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownUser.Error())
	assert.Equal(t, "invalid username or password", wrongPassword.Error())
}

func TestLoginMissingFields(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Login(context.Background(), "  ", "x")
	assert.ErrorIs(t, err, ErrMissingCredentials)
	_, err = svc.Login(context.Background(), "admin", "")
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestAuthorizeRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	session, err := svc.Login(context.Background(), "employee", "emp123")
	require.NoError(t, err)

	id, err := svc.Authorize(context.Background(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, session.Identity, id)
	assert.False(t, id.IsAdmin())
	assert.ErrorIs(t, RequireRole(id, domain.RoleAdmin), ErrForbidden)
	assert.NoError(t, RequireRole(id, domain.RoleEmployee))
}

func TestAuthorizeRejectsBadTokens(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Authorize(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = svc.Authorize(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	forged, _, err := jwtpkg.GenerateToken("u-1", "admin", "admin", "other-secret", time.Hour)
	require.NoError(t, err)
	_, err = svc.Authorize(context.Background(), forged)
	assert.ErrorIs(t, err, ErrUnauthenticated)

	orphan, _, err := jwtpkg.GenerateToken("missing-user", "ghost", "admin", "test-secret", time.Hour)
	require.NoError(t, err)
	_, err = svc.Authorize(context.Background(), orphan)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc, store := newTestService(t)

	user, created, err := svc.EnsureUser(context.Background(), "admin", "different", domain.RoleAdmin)
	require.NoError(t, err)
	assert.False(t, created)

	stored, err := store.GetUserByUsername(context.Background(), "admin")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, user.ID)

	// original password still works
	_, err = svc.Login(context.Background(), "admin", "admin123")
	assert.NoError(t, err)
}

func TestEnsureUserRejectsUnknownRole(t *testing.T) {
	svc, _ := newTestService(t)
	_, _, err := svc.EnsureUser(context.Background(), "root", "pw", domain.Role("superuser"))
	assert.Error(t, err)
}

type failingUsers struct{}

func (failingUsers) CreateUser(context.Context, *domain.User) error { return errors.New("db down") }
func (failingUsers) GetUserByUsername(context.Context, string) (*domain.User, error) {
	return nil, errors.New("db down")
}
func (failingUsers) GetUserByID(context.Context, string) (*domain.User, error) {
	return nil, repository.ErrNotFound
}

func TestLoginStoreFailureIsNotCredentialError(t *testing.T) {
	svc := New(failingUsers{}, nil, config.APIConfig{JWTSecret: "s", SessionTTL: time.Hour})

	_, err := svc.Login(context.Background(), "admin", "admin123")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrInvalidCredentials))
}
