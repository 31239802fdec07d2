package asset

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/repository"
)

// CreateInput encapsulates asset creation attributes.
type CreateInput struct {
	Name           string             `json:"name"`
	Type           domain.AssetType   `json:"type"`
	Status         domain.AssetStatus `json:"status"`
	Specifications string             `json:"specifications"`
	AssignedTo     *string            `json:"assignedTo"`
}

// Publisher receives committed asset changes.
type Publisher interface {
	PublishAsset(event domain.AssetEvent)
}

// Service orchestrates inventory management.
type Service struct {
	assets    repository.AssetRepository
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// New returns an asset service. publisher may be nil.
func New(assets repository.AssetRepository, publisher Publisher, logger *slog.Logger) Service {
	if logger == nil {
		logger = slog.Default()
	}
	return Service{
		assets:    assets,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns every asset, newest first.
func (s Service) List(ctx context.Context) ([]domain.Asset, error) {
	return s.assets.ListAssets(ctx)
}

// Get fetches one asset. Unknown ids yield repository.ErrNotFound.
func (s Service) Get(ctx context.Context, id string) (*domain.Asset, error) {
	return s.assets.GetAsset(ctx, strings.TrimSpace(id))
}

// Create validates input and persists a new asset.
func (s Service) Create(ctx context.Context, input CreateInput) (*domain.Asset, error) {
	asset := domain.Asset{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(input.Name),
		Type:           input.Type,
		Status:         input.Status,
		Specifications: input.Specifications,
		AssignedTo:     normalizeAssignee(input.AssignedTo),
		CreatedAt:      s.stamp(),
	}
	if asset.Status == "" {
		asset.Status = domain.AssetStatusAvailable
	}
	if err := domain.ValidateAsset(asset).Err(); err != nil {
		return nil, err
	}
	if err := s.assets.CreateAsset(ctx, &asset); err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	s.logger.Info("asset created", "asset_id", asset.ID, "type", asset.Type)
	s.publish(domain.AssetCreated, asset)
	return &asset, nil
}

// Update applies patch to the stored asset and re-validates the merged record.
// A type change is accepted even while the asset is assigned.
func (s Service) Update(ctx context.Context, id string, patch domain.AssetPatch) (*domain.Asset, error) {
	current, err := s.assets.GetAsset(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	merged := patch.Apply(*current)
	merged.ID = current.ID
	merged.CreatedAt = current.CreatedAt
	merged.Name = strings.TrimSpace(merged.Name)
	merged.AssignedTo = normalizeAssignee(merged.AssignedTo)

	if err := domain.ValidateAsset(merged).Err(); err != nil {
		return nil, err
	}
	if err := s.assets.UpdateAsset(ctx, &merged); err != nil {
		return nil, err
	}
	s.logger.Info("asset updated", "asset_id", merged.ID, "status", merged.Status)
	s.publish(domain.AssetUpdated, merged)
	return &merged, nil
}

// Delete removes an asset and returns it as it was stored.
func (s Service) Delete(ctx context.Context, id string) (*domain.Asset, error) {
	deleted, err := s.assets.DeleteAsset(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	s.logger.Info("asset deleted", "asset_id", deleted.ID)
	s.publish(domain.AssetDeleted, *deleted)
	return deleted, nil
}

// Analytics counts assets by type and status and lists the newest entries.
// Each figure is a separate store query.
func (s Service) Analytics(ctx context.Context) (domain.Analytics, error) {
	out := domain.NewAnalytics()

	total, err := s.assets.CountAssets(ctx, domain.AssetFilter{})
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("count total: %w", err)
	}
	out.Total = total

	for _, t := range domain.AssetTypes {
		n, err := s.assets.CountAssets(ctx, domain.AssetFilter{Type: t})
		if err != nil {
			return domain.Analytics{}, fmt.Errorf("count type %s: %w", t, err)
		}
		out.ByType[t] = n
	}
	for _, st := range domain.AssetStatuses {
		n, err := s.assets.CountAssets(ctx, domain.AssetFilter{Status: st})
		if err != nil {
			return domain.Analytics{}, fmt.Errorf("count status %s: %w", st, err)
		}
		out.ByStatus[st] = n
	}

	recent, err := s.assets.RecentAssets(ctx, domain.RecentAssetsLimit)
	if err != nil {
		return domain.Analytics{}, fmt.Errorf("recent assets: %w", err)
	}
	if recent != nil {
		out.RecentAssets = recent
	}
	return out, nil
}

func (s Service) publish(kind domain.AssetEventKind, a domain.Asset) {
	if s.publisher == nil {
		return
	}
	s.publisher.PublishAsset(domain.AssetEvent{Kind: kind, Asset: a, At: s.stamp()})
}

// stamp returns the current time in UTC at millisecond precision, the
// coarsest resolution among the store backends, so a created record reads
// back with the same timestamp it was returned with.
func (s Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Millisecond)
}

// normalizeAssignee treats a blank assignee as unassigned.
func normalizeAssignee(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
