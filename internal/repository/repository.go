package repository

import (
	"context"

	"github.com/titanite07/TechVault/internal/domain"
)

// UserRepository persists users.
type UserRepository interface {
	CreateUser(ctx context.Context, user *domain.User) error
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
}

// AssetRepository persists asset records.
type AssetRepository interface {
	// ListAssets returns every asset ordered by creation time, newest first.
	ListAssets(ctx context.Context) ([]domain.Asset, error)
	GetAsset(ctx context.Context, id string) (*domain.Asset, error)
	CreateAsset(ctx context.Context, asset *domain.Asset) error
	// UpdateAsset replaces the mutable fields of an existing asset.
	UpdateAsset(ctx context.Context, asset *domain.Asset) error
	// DeleteAsset removes the asset and returns the record as it was.
	DeleteAsset(ctx context.Context, id string) (*domain.Asset, error)
	CountAssets(ctx context.Context, filter domain.AssetFilter) (int, error)
	RecentAssets(ctx context.Context, limit int) ([]domain.RecentAsset, error)
}

// Store bundles the repositories a backend driver provides.
type Store interface {
	UserRepository
	AssetRepository
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
