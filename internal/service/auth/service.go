package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/repository"
	"github.com/titanite07/TechVault/pkg/config"
	"github.com/titanite07/TechVault/pkg/crypto"
	jwtpkg "github.com/titanite07/TechVault/pkg/jwt"
)

var (
	// ErrInvalidCredentials is returned for an unknown user and for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrMissingCredentials is returned when username or password is blank.
	ErrMissingCredentials = errors.New("username and password are required")
	// ErrUnauthenticated is returned when a session token is absent, invalid or expired.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden is returned when the caller's role does not permit the operation.
	ErrForbidden = errors.New("insufficient role")
)

// dummyPassword feeds the comparison performed for unknown usernames.
const dummyPassword = "techvault-timing-guard"

// Service handles authentication workflows.
type Service struct {
	users    repository.UserRepository
	logger   *slog.Logger
	cfg      config.APIConfig
	hashCost int

	dummyOnce *sync.Once
	dummyHash *[]byte
}

// New constructs a Service.
func New(users repository.UserRepository, logger *slog.Logger, cfg config.APIConfig) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{
		users:     users,
		logger:    logger,
		cfg:       cfg,
		hashCost:  bcrypt.DefaultCost,
		dummyOnce: &sync.Once{},
		dummyHash: new([]byte),
	}
}

// WithHashCost returns a copy hashing new passwords at cost.
func (s Service) WithHashCost(cost int) Service {
	s.hashCost = cost
	s.dummyOnce = &sync.Once{}
	s.dummyHash = new([]byte)
	return s
}

// Session is the result of a successful login.
type Session struct {
	Identity  domain.Identity
	Token     string
	ExpiresAt time.Time
}

// Login verifies credentials and issues a signed session token.
func (s Service) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, ErrMissingCredentials
	}

	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = crypto.ComparePassword(s.fallbackHash(), password)
			s.logger.Warn("login rejected", "username", username, "reason", "unknown user")
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if err := crypto.ComparePassword(user.PasswordHash, password); err != nil {
		s.logger.Warn("login rejected", "username", username, "reason", "password mismatch")
		return Session{}, ErrInvalidCredentials
	}

	token, expires, err := jwtpkg.GenerateToken(user.ID, user.Username, string(user.Role), s.cfg.JWTSecret, s.cfg.SessionTTL)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("user logged in", "user_id", user.ID, "role", user.Role)
	return Session{
		Identity:  identityOf(user),
		Token:     token,
		ExpiresAt: expires,
	}, nil
}

// Authorize validates a bearer token and returns the caller's identity. The
// user is reloaded so deleted accounts lose access before their token expires.
func (s Service) Authorize(ctx context.Context, token string) (domain.Identity, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return domain.Identity{}, ErrUnauthenticated
	}
	claims, err := jwtpkg.Parse(trimmed, s.cfg.JWTSecret)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.Identity{}, ErrUnauthenticated
		}
		return domain.Identity{}, fmt.Errorf("load user: %w", err)
	}
	return identityOf(user), nil
}

// RequireRole returns ErrForbidden unless id holds role.
func RequireRole(id domain.Identity, role domain.Role) error {
	if id.Role != role {
		return ErrForbidden
	}
	return nil
}

// EnsureUser creates the account when the username is free. It reports
// whether a new user was created.
func (s Service) EnsureUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, bool, error) {
	if !role.Valid() {
		return nil, false, fmt.Errorf("unknown role %q", role)
	}
	existing, err := s.users.GetUserByUsername(ctx, username)
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, false, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := crypto.HashPasswordCost(password, s.hashCost)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			existing, getErr := s.users.GetUserByUsername(ctx, username)
			if getErr != nil {
				return nil, false, fmt.Errorf("reload user: %w", getErr)
			}
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, true, nil
}

func (s Service) fallbackHash() []byte {
	s.dummyOnce.Do(func() {
		hash, err := crypto.HashPasswordCost(dummyPassword, s.hashCost)
		if err == nil {
			*s.dummyHash = hash
		}
	})
	return *s.dummyHash
}

func identityOf(u *domain.User) domain.Identity {
	return domain.Identity{UserID: u.ID, Username: u.Username, Role: u.Role}
}
