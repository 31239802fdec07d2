// Package seed provisions the default accounts.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/titanite07/TechVault/internal/domain"
)

// Account is a user provisioned at startup.
type Account struct {
	Username string
	Password string
	Role     domain.Role
}

// DefaultAccounts are created when seeding is enabled.
var DefaultAccounts = []Account{
	{Username: "admin", Password: "admin123", Role: domain.RoleAdmin},
	{Username: "employee", Password: "emp123", Role: domain.RoleEmployee},
}

// UserEnsurer creates an account unless the username is taken.
type UserEnsurer interface {
	EnsureUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, bool, error)
}

// Users provisions accounts idempotently and returns how many were created.
func Users(ctx context.Context, users UserEnsurer, accounts []Account, log *slog.Logger) (int, error) {
	if log == nil {
		log = slog.Default()
	}
	created := 0
	for _, acc := range accounts {
		_, isNew, err := users.EnsureUser(ctx, acc.Username, acc.Password, acc.Role)
		if err != nil {
			return created, fmt.Errorf("seed %s: %w", acc.Username, err)
		}
		if isNew {
			created++
			log.Info("seeded user", "username", acc.Username, "role", acc.Role)
		}
	}
	return created, nil
}
