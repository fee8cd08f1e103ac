package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shoebox/internal/models"
)

// NormalizeTagName returns the canonical stored form of a tag name.
func NormalizeTagName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func scanTagRow(ctx context.Context, q queryer, row *sql.Row) (*models.Tag, error) {
	tag := models.Tag{}
	var createdAt string
	err := row.Scan(&tag.ID, &tag.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if tag.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	members, err := memberIDs(ctx, q, "SELECT asset_id FROM tag_members WHERE tag_id = ? ORDER BY asset_id", tag.ID)
	if err != nil {
		return nil, err
	}
	tag.AssetIDs = members
	return &tag, nil
}

func getTagByName(ctx context.Context, q queryer, name string) (*models.Tag, error) {
	row := q.QueryRowContext(ctx, "SELECT id, name, created_at FROM tags WHERE name = ?", NormalizeTagName(name))
	return scanTagRow(ctx, q, row)
}

func getTag(ctx context.Context, q queryer, id string) (*models.Tag, error) {
	row := q.QueryRowContext(ctx, "SELECT id, name, created_at FROM tags WHERE id = ?", id)
	return scanTagRow(ctx, q, row)
}

func listTags(ctx context.Context, q queryer) ([]models.Tag, error) {
	ids, err := memberIDs(ctx, q, "SELECT id FROM tags ORDER BY name ASC")
	if err != nil {
		return nil, err
	}
	tags := make([]models.Tag, 0, len(ids))
	for _, id := range ids {
		tag, err := getTag(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if tag != nil {
			tags = append(tags, *tag)
		}
	}
	return tags, nil
}

func insertTag(ctx context.Context, q queryer, tag *models.Tag) error {
	if tag == nil {
		return fmt.Errorf("tag is required")
	}
	tag.Name = NormalizeTagName(tag.Name)
	if tag.Name == "" {
		return fmt.Errorf("tag name is required")
	}
	if strings.TrimSpace(tag.ID) == "" {
		id, err := GenerateTagID(func(id string) (bool, error) {
			return rowExists(ctx, q, "SELECT 1 FROM tags WHERE id = ? LIMIT 1", id)
		})
		if err != nil {
			return err
		}
		tag.ID = id
	}
	if tag.CreatedAt.IsZero() {
		tag.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, "INSERT INTO tags (id, name, created_at) VALUES (?, ?, ?)", tag.ID, tag.Name, formatTime(tag.CreatedAt))
	return err
}
