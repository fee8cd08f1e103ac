package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shoebox/internal/models"
)

const assetColumns = "id, source_ref, identity, name, kind, media_type, size_bytes, favourite, soft_deleted, thumbnail_blob_id, text_blob_id, created_at, updated_at"

func getAsset(ctx context.Context, q queryer, id string) (*models.Asset, error) {
	row := q.QueryRowContext(ctx, `SELECT `+assetColumns+` FROM assets WHERE id = ?`, id)
	return scanAsset(row)
}

func assetIdentityExists(ctx context.Context, q queryer, identity string) (bool, error) {
	return rowExists(ctx, q, "SELECT 1 FROM assets WHERE identity = ? LIMIT 1", identity)
}

func buildAssetQuery(filter AssetFilter) (string, []any) {
	var where []string
	var args []any

	switch {
	case filter.OnlyDeleted:
		where = append(where, "a.soft_deleted = 1")
	case !filter.IncludeDeleted:
		where = append(where, "a.soft_deleted = 0")
	}
	if ids := uniqueSorted(filter.IDs); len(ids) > 0 {
		where = append(where, "a.id IN ("+placeholders(len(ids))+")")
		args = append(args, stringArgs(ids)...)
	}
	if filter.GroupID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM group_members gm WHERE gm.asset_id = a.id AND gm.group_id = ?)")
		args = append(args, filter.GroupID)
	}
	if filter.TagID != "" {
		where = append(where, "EXISTS (SELECT 1 FROM tag_members tm WHERE tm.asset_id = a.id AND tm.tag_id = ?)")
		args = append(args, filter.TagID)
	}
	if filter.Kind != "" {
		where = append(where, "a.kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.FavouritesOnly {
		where = append(where, "a.favourite = 1")
	}

	query := "SELECT " + prefixedAssetColumns("a") + " FROM assets a"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY a.created_at ASC, a.id ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return query, args
}

func prefixedAssetColumns(alias string) string {
	cols := strings.Split(assetColumns, ", ")
	for i, c := range cols {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

func listAssets(ctx context.Context, q queryer, filter AssetFilter) ([]models.Asset, error) {
	query, args := buildAssetQuery(filter)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := []models.Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, err
		}
		if asset != nil {
			assets = append(assets, *asset)
		}
	}
	return assets, rows.Err()
}

func insertAsset(ctx context.Context, q queryer, asset *models.Asset) error {
	if asset == nil {
		return fmt.Errorf("asset is required")
	}
	asset.Identity = strings.TrimSpace(asset.Identity)
	asset.SourceRef = strings.TrimSpace(asset.SourceRef)
	if asset.Identity == "" {
		return fmt.Errorf("asset identity is required")
	}
	if asset.SourceRef == "" {
		return fmt.Errorf("asset source_ref is required")
	}
	if !models.IsValidAssetKind(asset.Kind) {
		return fmt.Errorf("invalid asset kind: %s", asset.Kind)
	}

	if strings.TrimSpace(asset.ID) == "" {
		id, err := GenerateAssetID(func(id string) (bool, error) {
			return rowExists(ctx, q, "SELECT 1 FROM assets WHERE id = ? LIMIT 1", id)
		})
		if err != nil {
			return err
		}
		asset.ID = id
	}

	now := time.Now().UTC()
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	if asset.UpdatedAt.IsZero() {
		asset.UpdatedAt = asset.CreatedAt
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO assets (
			id, source_ref, identity, name, kind, media_type, size_bytes, favourite, soft_deleted,
			thumbnail_blob_id, text_blob_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		asset.ID,
		asset.SourceRef,
		asset.Identity,
		asset.Name,
		string(asset.Kind),
		nullIfEmpty(asset.MediaType),
		asset.SizeBytes,
		boolInt(asset.Favourite),
		boolInt(asset.SoftDeleted),
		nullIfEmpty(asset.ThumbnailBlobID),
		nullIfEmpty(asset.TextBlobID),
		formatTime(asset.CreatedAt),
		formatTime(asset.UpdatedAt),
	)
	return err
}

func setFavourite(ctx context.Context, q queryer, ids []string, state bool, at time.Time) error {
	ids = uniqueSorted(ids)
	if len(ids) == 0 {
		return nil
	}
	args := []any{boolInt(state), formatTime(at), boolInt(state)}
	args = append(args, stringArgs(ids)...)
	_, err := q.ExecContext(ctx, "UPDATE assets SET favourite = ?, updated_at = ? WHERE favourite != ? AND id IN ("+placeholders(len(ids))+")", args...)
	return err
}

func setSoftDeleted(ctx context.Context, q queryer, id string, state bool, at time.Time) error {
	_, err := q.ExecContext(ctx, "UPDATE assets SET soft_deleted = ?, updated_at = ? WHERE id = ?", boolInt(state), formatTime(at), id)
	return err
}

func deleteAssets(ctx context.Context, q queryer, ids []string) error {
	ids = uniqueSorted(ids)
	if len(ids) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, "DELETE FROM assets WHERE id IN ("+placeholders(len(ids))+")", stringArgs(ids)...)
	return err
}

func setAssetArtifact(ctx context.Context, q queryer, id string, kind models.ArtifactKind, blobID string, at time.Time) error {
	var column string
	switch kind {
	case models.ArtifactThumbnail:
		column = "thumbnail_blob_id"
	case models.ArtifactText:
		column = "text_blob_id"
	default:
		return fmt.Errorf("invalid artifact kind: %s", kind)
	}
	_, err := q.ExecContext(ctx, "UPDATE assets SET "+column+" = ?, updated_at = ? WHERE id = ?", nullIfEmpty(blobID), formatTime(at), id)
	return err
}

func scanAsset(row scanner) (*models.Asset, error) {
	asset := models.Asset{}

	var kind string
	var mediaType, thumbnailBlobID, textBlobID sql.NullString
	var favourite, softDeleted int
	var createdAt, updatedAt string

	err := row.Scan(
		&asset.ID,
		&asset.SourceRef,
		&asset.Identity,
		&asset.Name,
		&kind,
		&mediaType,
		&asset.SizeBytes,
		&favourite,
		&softDeleted,
		&thumbnailBlobID,
		&textBlobID,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	asset.Kind = models.AssetKind(kind)
	asset.MediaType = mediaType.String
	asset.Favourite = favourite != 0
	asset.SoftDeleted = softDeleted != 0
	asset.ThumbnailBlobID = thumbnailBlobID.String
	asset.TextBlobID = textBlobID.String

	if asset.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if asset.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &asset, nil
}
