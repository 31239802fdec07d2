// Package mongo stores users and assets as MongoDB documents, one
// collection per entity.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/repository"
)

const (
	assetsCollection = "assets"
	usersCollection  = "users"
)

// Repository implements repository.Store on a MongoDB database.
type Repository struct {
	client *mongo.Client
	assets *mongo.Collection
	users  *mongo.Collection
}

var _ repository.Store = (*Repository)(nil)

// Connect dials uri, verifies the primary is reachable and prepares indexes.
func Connect(ctx context.Context, uri, database string) (*Repository, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(20 * time.Second).
		SetServerSelectionTimeout(15 * time.Second).
		SetMaxPoolSize(50)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	repo := newWithDatabase(client.Database(database))
	repo.client = client
	if err := repo.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return repo, nil
}

func newWithDatabase(db *mongo.Database) *Repository {
	return &Repository{
		client: db.Client(),
		assets: db.Collection(assetsCollection),
		users:  db.Collection(usersCollection),
	}
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	_, err := r.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create users index: %w", err)
	}
	_, err = r.assets.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create assets index: %w", err)
	}
	return nil
}

// Ping checks connectivity to the primary.
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (r *Repository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// CreateUser inserts a user document.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	if _, err := r.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// GetUserByUsername fetches a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findUser(ctx, bson.M{"username": username})
}

// GetUserByID fetches a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findUser(ctx, bson.M{"_id": id})
}

func (r *Repository) findUser(ctx context.Context, filter bson.M) (*domain.User, error) {
	var user domain.User
	if err := r.users.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// ListAssets returns every asset, newest first.
func (r *Repository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.assets.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find assets: %w", err)
	}
	defer cursor.Close(ctx)

	assets := make([]domain.Asset, 0)
	if err := cursor.All(ctx, &assets); err != nil {
		return nil, fmt.Errorf("decode assets: %w", err)
	}
	for i := range assets {
		assets[i].CreatedAt = assets[i].CreatedAt.UTC()
	}
	return assets, nil
}

// GetAsset fetches a single asset.
func (r *Repository) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	var asset domain.Asset
	if err := r.assets.FindOne(ctx, bson.M{"_id": id}).Decode(&asset); err != nil {
		return nil, mapFindError("find asset", err)
	}
	asset.CreatedAt = asset.CreatedAt.UTC()
	return &asset, nil
}

// CreateAsset inserts an asset document.
func (r *Repository) CreateAsset(ctx context.Context, asset *domain.Asset) error {
	if _, err := r.assets.InsertOne(ctx, asset); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// UpdateAsset sets the mutable fields and reads back the stored creation time.
func (r *Repository) UpdateAsset(ctx context.Context, asset *domain.Asset) error {
	update := bson.M{"$set": bson.M{
		"name":           asset.Name,
		"type":           asset.Type,
		"status":         asset.Status,
		"specifications": asset.Specifications,
		"assignedTo":     asset.AssignedTo,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var stored domain.Asset
	if err := r.assets.FindOneAndUpdate(ctx, bson.M{"_id": asset.ID}, update, opts).Decode(&stored); err != nil {
		return mapFindError("update asset", err)
	}
	asset.CreatedAt = stored.CreatedAt.UTC()
	return nil
}

// DeleteAsset removes an asset and returns the deleted document.
func (r *Repository) DeleteAsset(ctx context.Context, id string) (*domain.Asset, error) {
	var asset domain.Asset
	if err := r.assets.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&asset); err != nil {
		return nil, mapFindError("delete asset", err)
	}
	asset.CreatedAt = asset.CreatedAt.UTC()
	return &asset, nil
}

// CountAssets counts documents matching filter.
func (r *Repository) CountAssets(ctx context.Context, filter domain.AssetFilter) (int, error) {
	query := bson.M{}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	n, err := r.assets.CountDocuments(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return int(n), nil
}

// RecentAssets returns the newest assets projected to name, type and createdAt.
func (r *Repository) RecentAssets(ctx context.Context, limit int) ([]domain.RecentAsset, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"name": 1, "type": 1, "createdAt": 1})
	cursor, err := r.assets.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find recent assets: %w", err)
	}
	defer cursor.Close(ctx)

	recent := make([]domain.RecentAsset, 0, limit)
	for cursor.Next(ctx) {
		var doc domain.Asset
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode recent asset: %w", err)
		}
		recent = append(recent, domain.RecentAsset{Name: doc.Name, Type: doc.Type, CreatedAt: doc.CreatedAt.UTC()})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent assets: %w", err)
	}
	return recent, nil
}

func mapFindError(op string, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return repository.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
