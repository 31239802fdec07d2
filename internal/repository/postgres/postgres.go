package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/titanite07/TechVault/internal/domain"
	"github.com/titanite07/TechVault/internal/repository"
)

const uniqueViolation = "23505"

// DBTX is the subset of database/sql used by the repository. *sql.DB and
// *sql.Tx both satisfy it.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Repository implements persistence interfaces on PostgreSQL.
type Repository struct {
	db   DBTX
	sql  *sql.DB
	pool *pgxpool.Pool
}

// New constructs a Repository on top of a pgx pool.
func New(pool *pgxpool.Pool) *Repository {
	db := stdlib.OpenDBFromPool(pool)
	return &Repository{db: db, sql: db, pool: pool}
}

// NewWithDB constructs a Repository on an existing *sql.DB.
func NewWithDB(db *sql.DB) *Repository {
	return &Repository{db: db, sql: db}
}

// ensure Repository satisfies interfaces.
var (
	_ repository.UserRepository  = (*Repository)(nil)
	_ repository.AssetRepository = (*Repository)(nil)
	_ repository.Store           = (*Repository)(nil)
)

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	if r.pool != nil {
		return r.pool.Ping(ctx)
	}
	return r.sql.PingContext(ctx)
}

// Close releases the database handle and the underlying pool.
func (r *Repository) Close(context.Context) error {
	err := r.sql.Close()
	if r.pool != nil {
		r.pool.Close()
	}
	return err
}

// CreateUser inserts a user.
func (r *Repository) CreateUser(ctx context.Context, user *domain.User) error {
	const query = `INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, string(user.Role), user.CreatedAt)
	if err != nil {
		return mapWriteError("insert user", err)
	}
	return nil
}

// GetUserByUsername fetches a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	const query = `SELECT id, username, password_hash, role, created_at FROM users WHERE username = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, username))
}

// GetUserByID retrieves a user by identifier.
func (r *Repository) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `SELECT id, username, password_hash, role, created_at FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *Repository) scanUser(row *sql.Row) (*domain.User, error) {
	var (
		u    domain.User
		role string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

const assetColumns = `id, name, type, status, specifications, assigned_to, created_at`

// ListAssets returns every asset, newest first.
func (r *Repository) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY created_at DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	assets := make([]domain.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		assets = append(assets, *asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}

// GetAsset fetches a single asset by identifier.
func (r *Repository) GetAsset(ctx context.Context, id string) (*domain.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets WHERE id = $1`
	asset, err := scanAsset(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}
	return asset, nil
}

// CreateAsset inserts an asset.
func (r *Repository) CreateAsset(ctx context.Context, asset *domain.Asset) error {
	const query = `INSERT INTO assets (id, name, type, status, specifications, assigned_to, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		asset.ID, asset.Name, string(asset.Type), string(asset.Status), asset.Specifications,
		nullString(asset.AssignedTo), asset.CreatedAt)
	if err != nil {
		return mapWriteError("insert asset", err)
	}
	return nil
}

// UpdateAsset replaces mutable columns and refreshes CreatedAt from the stored row.
func (r *Repository) UpdateAsset(ctx context.Context, asset *domain.Asset) error {
	const query = `UPDATE assets
		SET name = $2, type = $3, status = $4, specifications = $5, assigned_to = $6
		WHERE id = $1
		RETURNING created_at`
	row := r.db.QueryRowContext(ctx, query,
		asset.ID, asset.Name, string(asset.Type), string(asset.Status), asset.Specifications,
		nullString(asset.AssignedTo))
	if err := row.Scan(&asset.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("update asset: %w", err)
	}
	return nil
}

// DeleteAsset removes an asset and returns the deleted row.
func (r *Repository) DeleteAsset(ctx context.Context, id string) (*domain.Asset, error) {
	query := `DELETE FROM assets WHERE id = $1 RETURNING ` + assetColumns
	return scanAsset(r.db.QueryRowContext(ctx, query, id))
}

// CountAssets counts assets matching filter.
func (r *Repository) CountAssets(ctx context.Context, filter domain.AssetFilter) (int, error) {
	query := `SELECT COUNT(1) FROM assets`
	var (
		conds []string
		args  []any
	)
	if filter.Type != "" {
		args = append(args, string(filter.Type))
		conds = append(conds, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		conds = append(conds, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	var count int
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count assets: %w", err)
	}
	return count, nil
}

// RecentAssets returns the newest assets projected to name, type and creation time.
func (r *Repository) RecentAssets(ctx context.Context, limit int) ([]domain.RecentAsset, error) {
	const query = `SELECT name, type, created_at FROM assets ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("recent assets: %w", err)
	}
	defer rows.Close()

	recent := make([]domain.RecentAsset, 0, limit)
	for rows.Next() {
		var (
			item domain.RecentAsset
			typ  string
		)
		if err := rows.Scan(&item.Name, &typ, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan recent asset: %w", err)
		}
		item.Type = domain.AssetType(typ)
		recent = append(recent, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent assets: %w", err)
	}
	return recent, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*domain.Asset, error) {
	var (
		a          domain.Asset
		typ        string
		status     string
		assignedTo sql.NullString
	)
	if err := row.Scan(&a.ID, &a.Name, &typ, &status, &a.Specifications, &assignedTo, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan asset: %w", err)
	}
	a.Type = domain.AssetType(typ)
	a.Status = domain.AssetStatus(status)
	if assignedTo.Valid {
		v := assignedTo.String
		a.AssignedTo = &v
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return &a, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
