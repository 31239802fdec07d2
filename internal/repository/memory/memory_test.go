package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/repository"
)

func seedAssets(t *testing.T, s *Store, n int) time.Time {
	t.Helper()
	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	types := domain.AssetTypes
	for i := 0; i < n; i++ {
		a := &domain.Asset{
			ID:             fmt.Sprintf("asset-%02d", i),
			Name:           fmt.Sprintf("Asset %d", i),
			Type:           types[i%len(types)],
			Status:         domain.AssetStatusAvailable,
			Specifications: "spec",
			CreatedAt:      base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.CreateAsset(context.Background(), a); err != nil {
			t.Fatalf("create asset %d: %v", i, err)
		}
	}
	return base
}

func TestListAssetsNewestFirst(t *testing.T) {
	s := New()
	seedAssets(t, s, 4)
	assets, err := s.ListAssets(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for i := 1; i < len(assets); i++ {
		if assets[i].CreatedAt.After(assets[i-1].CreatedAt) {
			t.Fatalf("assets not sorted newest first at %d", i)
		}
	}
	if assets[0].ID != "asset-03" {
		t.Fatalf("expected newest asset first, got %s", assets[0].ID)
	}
}

func TestUpdateKeepsCreatedAt(t *testing.T) {
	s := New()
	base := seedAssets(t, s, 1)
	update := &domain.Asset{ID: "asset-00", Name: "Renamed", Type: domain.AssetTypeMonitor, Status: domain.AssetStatusMaintenance, Specifications: "27\"", CreatedAt: time.Now()}
	if err := s.UpdateAsset(context.Background(), update); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetAsset(context.Background(), "asset-00")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.CreatedAt.Equal(base) {
		t.Fatalf("createdAt changed to %s", got.CreatedAt)
	}
	if got.Name != "Renamed" || got.Type != domain.AssetTypeMonitor {
		t.Fatalf("unexpected asset %+v", got)
	}
	if err := s.UpdateAsset(context.Background(), &domain.Asset{ID: "missing"}); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteAndCount(t *testing.T) {
	s := New()
	seedAssets(t, s, 6)
	laptops, _ := s.CountAssets(context.Background(), domain.AssetFilter{Type: domain.AssetTypeLaptop})
	if laptops != 2 {
		t.Fatalf("expected 2 laptops, got %d", laptops)
	}
	deleted, err := s.DeleteAsset(context.Background(), "asset-00")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted.ID != "asset-00" {
		t.Fatalf("unexpected deleted asset %+v", deleted)
	}
	if _, err := s.DeleteAsset(context.Background(), "asset-00"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
	total, _ := s.CountAssets(context.Background(), domain.AssetFilter{})
	if total != 5 {
		t.Fatalf("expected 5 assets, got %d", total)
	}
}

func TestRecentAssetsLimit(t *testing.T) {
	s := New()
	seedAssets(t, s, 7)
	recent, err := s.RecentAssets(context.Background(), 5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 5 {
		t.Fatalf("expected 5 recent assets, got %d", len(recent))
	}
	if recent[0].Name != "Asset 6" {
		t.Fatalf("expected newest first, got %s", recent[0].Name)
	}
}

func TestUsersUniqueUsername(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.CreateUser(ctx, &domain.User{ID: "u1", Username: "admin", Role: domain.RoleAdmin}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := s.CreateUser(ctx, &domain.User{ID: "u2", Username: "admin", Role: domain.RoleEmployee}); !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	u, err := s.GetUserByUsername(ctx, "admin")
	if err != nil || u.ID != "u1" {
		t.Fatalf("unexpected lookup result %+v, %v", u, err)
	}
	if _, err := s.GetUserByID(ctx, "nope"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
