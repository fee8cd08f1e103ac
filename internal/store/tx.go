package store

import (
	"context"
	"database/sql"
	"time"

	"shoebox/internal/models"
)

// Tx is one unit of work on the writer connection.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) Commit() error   { return t.tx.Commit() }
func (t *Tx) Rollback() error { return t.tx.Rollback() }

func (t *Tx) AssetExists(ctx context.Context, id string) (bool, error) {
	return rowExists(ctx, t.tx, "SELECT 1 FROM assets WHERE id = ? LIMIT 1", id)
}

// MissingAssets returns the ids that do not name an existing asset.
func (t *Tx) MissingAssets(ctx context.Context, ids []string) ([]string, error) {
	return missingIDs(ctx, t.tx, "assets", ids)
}

func (t *Tx) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	return getAsset(ctx, t.tx, id)
}

func (t *Tx) ListAssets(ctx context.Context, filter AssetFilter) ([]models.Asset, error) {
	return listAssets(ctx, t.tx, filter)
}

func (t *Tx) AssetIdentityExists(ctx context.Context, identity string) (bool, error) {
	return assetIdentityExists(ctx, t.tx, identity)
}

func (t *Tx) CreateAsset(ctx context.Context, asset *models.Asset) error {
	return insertAsset(ctx, t.tx, asset)
}

func (t *Tx) SetFavourite(ctx context.Context, ids []string, state bool, at time.Time) error {
	return setFavourite(ctx, t.tx, ids, state, at)
}

func (t *Tx) SetSoftDeleted(ctx context.Context, id string, state bool, at time.Time) error {
	return setSoftDeleted(ctx, t.tx, id, state, at)
}

func (t *Tx) DeleteAssets(ctx context.Context, ids []string) error {
	return deleteAssets(ctx, t.tx, ids)
}

func (t *Tx) SetAssetArtifact(ctx context.Context, id string, kind models.ArtifactKind, blobID string, at time.Time) error {
	return setAssetArtifact(ctx, t.tx, id, kind, blobID, at)
}

func (t *Tx) GetGroup(ctx context.Context, id string) (*models.Group, error) {
	return getGroup(ctx, t.tx, id)
}

func (t *Tx) GroupNameTaken(ctx context.Context, name, excludeID string) (bool, error) {
	return groupNameTaken(ctx, t.tx, name, excludeID)
}

func (t *Tx) CreateGroup(ctx context.Context, group *models.Group) error {
	return insertGroup(ctx, t.tx, group)
}

func (t *Tx) RenameGroup(ctx context.Context, id, name string) error {
	return renameGroup(ctx, t.tx, id, name)
}

func (t *Tx) DeleteGroup(ctx context.Context, id string) error {
	return deleteGroup(ctx, t.tx, id)
}

func (t *Tx) AddGroupMembers(ctx context.Context, groupID string, assetIDs []string) error {
	return addMembers(ctx, t.tx, "group_members", "group_id", groupID, assetIDs)
}

func (t *Tx) RemoveGroupMembers(ctx context.Context, groupID string, assetIDs []string) error {
	return removeMembers(ctx, t.tx, "group_members", "group_id", groupID, assetIDs)
}

func (t *Tx) GetTagByName(ctx context.Context, name string) (*models.Tag, error) {
	return getTagByName(ctx, t.tx, name)
}

func (t *Tx) MissingTags(ctx context.Context, ids []string) ([]string, error) {
	return missingIDs(ctx, t.tx, "tags", ids)
}

func (t *Tx) CreateTag(ctx context.Context, tag *models.Tag) error {
	return insertTag(ctx, t.tx, tag)
}

func (t *Tx) AddTagMembers(ctx context.Context, tagID string, assetIDs []string) error {
	return addMembers(ctx, t.tx, "tag_members", "tag_id", tagID, assetIDs)
}

func (t *Tx) RemoveTagMembers(ctx context.Context, tagID string, assetIDs []string) error {
	return removeMembers(ctx, t.tx, "tag_members", "tag_id", tagID, assetIDs)
}

// UpsertBlob inserts blob metadata if absent and returns the canonical row.
func (t *Tx) UpsertBlob(ctx context.Context, blob *models.Blob) (*models.Blob, error) {
	return upsertBlob(ctx, t.tx, blob)
}

func (t *Tx) ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error) {
	return listUnreferencedBlobs(ctx, t.tx, limit)
}

func (t *Tx) DeleteBlob(ctx context.Context, id string) error {
	return deleteBlob(ctx, t.tx, id)
}

// Snapshot fingerprints every entity as seen by this unit of work.
func (t *Tx) Snapshot(ctx context.Context) (models.Snapshot, error) {
	return snapshot(ctx, t.tx)
}
