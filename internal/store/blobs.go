package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shoebox/internal/models"
)

const blobColumns = "id, sha256, size_bytes, media_type, storage_backend, blob_key, created_at"

// upsertBlob inserts a blob if absent and returns the canonical row by sha256.
func upsertBlob(ctx context.Context, q queryer, blob *models.Blob) (*models.Blob, error) {
	if blob == nil {
		return nil, fmt.Errorf("blob is required")
	}
	blob.SHA256 = strings.ToLower(strings.TrimSpace(blob.SHA256))
	blob.BlobKey = strings.TrimSpace(blob.BlobKey)
	if blob.SHA256 == "" {
		return nil, fmt.Errorf("sha256 is required")
	}
	if blob.BlobKey == "" {
		return nil, fmt.Errorf("blob_key is required")
	}
	if blob.SizeBytes < 0 {
		return nil, fmt.Errorf("size_bytes must be >= 0")
	}

	if strings.TrimSpace(blob.ID) == "" {
		generated, err := GenerateBlobID(func(id string) (bool, error) {
			return rowExists(ctx, q, "SELECT 1 FROM blobs WHERE id = ? LIMIT 1", id)
		})
		if err != nil {
			return nil, err
		}
		blob.ID = generated
	}
	if strings.TrimSpace(blob.StorageBackend) == "" {
		blob.StorageBackend = "local_cas"
	}
	if strings.TrimSpace(blob.MediaType) == "" {
		blob.MediaType = "application/octet-stream"
	}
	if blob.CreatedAt.IsZero() {
		blob.CreatedAt = time.Now().UTC()
	}

	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO blobs (id, sha256, size_bytes, media_type, storage_backend, blob_key, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, blob.ID, blob.SHA256, blob.SizeBytes, blob.MediaType, blob.StorageBackend, blob.BlobKey, formatTime(blob.CreatedAt))
	if err != nil {
		return nil, err
	}

	canonical, err := scanBlob(q.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE sha256 = ?`, blob.SHA256))
	if err != nil {
		return nil, err
	}
	if canonical == nil {
		return nil, fmt.Errorf("blob not found after upsert")
	}
	return canonical, nil
}

func getBlob(ctx context.Context, q queryer, id string) (*models.Blob, error) {
	return scanBlob(q.QueryRowContext(ctx, `SELECT `+blobColumns+` FROM blobs WHERE id = ?`, id))
}

// listUnreferencedBlobs returns blobs that no asset points at.
func listUnreferencedBlobs(ctx context.Context, q queryer, limit int) ([]models.Blob, error) {
	query := `
		SELECT b.id, b.sha256, b.size_bytes, b.media_type, b.storage_backend, b.blob_key, b.created_at
		FROM blobs b
		WHERE NOT EXISTS (SELECT 1 FROM assets a WHERE a.thumbnail_blob_id = b.id OR a.text_blob_id = b.id)
		ORDER BY b.created_at ASC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blobs := []models.Blob{}
	for rows.Next() {
		blob, err := scanBlob(rows)
		if err != nil {
			return nil, err
		}
		if blob != nil {
			blobs = append(blobs, *blob)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return blobs, nil
}

func deleteBlob(ctx context.Context, q queryer, id string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM blobs WHERE id = ?", id)
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBlob(row scanner) (*models.Blob, error) {
	var blob models.Blob
	var createdAt string
	err := row.Scan(&blob.ID, &blob.SHA256, &blob.SizeBytes, &blob.MediaType, &blob.StorageBackend, &blob.BlobKey, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if blob.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &blob, nil
}
