package store

import (
	"context"
	"database/sql"

	"shoebox/internal/models"
)

// ReadHandle is an independent read-only connection pool on the library.
// It observes committed state only.
type ReadHandle struct {
	db *sql.DB
}

// Close releases the handle's connections.
func (r *ReadHandle) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func (r *ReadHandle) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	return getAsset(ctx, r.db, id)
}

func (r *ReadHandle) ListAssets(ctx context.Context, filter AssetFilter) ([]models.Asset, error) {
	return listAssets(ctx, r.db, filter)
}

func (r *ReadHandle) AssetIdentityExists(ctx context.Context, identity string) (bool, error) {
	return assetIdentityExists(ctx, r.db, identity)
}

func (r *ReadHandle) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return getGroup(ctx, r.db, id)
}

func (r *ReadHandle) ListGroups(ctx context.Context) ([]models.Group, error) {
	return listGroups(ctx, r.db)
}

func (r *ReadHandle) ListTags(ctx context.Context) ([]models.Tag, error) {
	return listTags(ctx, r.db)
}

func (r *ReadHandle) GetBlob(ctx context.Context, id string) (*models.Blob, error) {
	return getBlob(ctx, r.db, id)
}
