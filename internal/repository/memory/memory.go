// Package memory keeps users and assets in process memory. It backs local
// development (STORE_DRIVER=memory) and service tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/repository"
)

// Store implements repository.Store on maps guarded by a RWMutex.
type Store struct {
	mu     sync.RWMutex
	assets map[string]domain.Asset
	users  map[string]domain.User
}

var _ repository.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{
		assets: make(map[string]domain.Asset),
		users:  make(map[string]domain.User),
	}
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close is a no-op.
func (s *Store) Close(context.Context) error { return nil }

// CreateUser inserts a user, rejecting duplicate usernames.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrConflict
		}
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

// GetUserByUsername fetches a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetUserByID fetches a user by identifier.
func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

// ListAssets returns all assets, newest first.
func (s *Store) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	s.mu.RLock()
	out := make([]domain.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, cloneAsset(a))
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

// GetAsset fetches one asset.
func (s *Store) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := cloneAsset(a)
	return &out, nil
}

// CreateAsset stores a new asset.
func (s *Store) CreateAsset(ctx context.Context, asset *domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.assets[asset.ID]; exists {
		return repository.ErrConflict
	}
	s.assets[asset.ID] = cloneAsset(*asset)
	return nil
}

// UpdateAsset overwrites mutable fields; ID and CreatedAt are kept from the stored record.
func (s *Store) UpdateAsset(ctx context.Context, asset *domain.Asset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.assets[asset.ID]
	if !ok {
		return repository.ErrNotFound
	}
	next := cloneAsset(*asset)
	next.CreatedAt = current.CreatedAt
	s.assets[asset.ID] = next
	asset.CreatedAt = current.CreatedAt
	return nil
}

// DeleteAsset removes an asset and returns it.
func (s *Store) DeleteAsset(ctx context.Context, id string) (*domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assets[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(s.assets, id)
	return &a, nil
}

// CountAssets counts assets matching filter.
func (s *Store) CountAssets(ctx context.Context, filter domain.AssetFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, a := range s.assets {
		if filter.Matches(a) {
			count++
		}
	}
	return count, nil
}

// RecentAssets returns up to limit assets, newest first.
func (s *Store) RecentAssets(ctx context.Context, limit int) ([]domain.RecentAsset, error) {
	all, err := s.ListAssets(ctx)
	if err != nil {
		return nil, err
	}
	if limit >= 0 && len(all) > limit {
		all = all[:limit]
	}
	out := make([]domain.RecentAsset, 0, len(all))
	for _, a := range all {
		out = append(out, domain.RecentAsset{Name: a.Name, Type: a.Type, CreatedAt: a.CreatedAt})
	}
	return out, nil
}

func sortNewestFirst(assets []domain.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		if assets[i].CreatedAt.Equal(assets[j].CreatedAt) {
			return assets[i].ID > assets[j].ID
		}
		return assets[i].CreatedAt.After(assets[j].CreatedAt)
	})
}

func cloneAsset(a domain.Asset) domain.Asset {
	if a.AssignedTo != nil {
		v := *a.AssignedTo
		a.AssignedTo = &v
	}
	return a
}

func cloneUser(u domain.User) domain.User {
	u.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return u
}
