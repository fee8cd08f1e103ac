package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"shoebox/internal/models"
)

// groupNameKey is the uniqueness key for group names.
func groupNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func getGroup(ctx context.Context, q queryer, id string) (*models.Group, error) {
	group := models.Group{}
	var createdAt string
	err := q.QueryRowContext(ctx, "SELECT id, name, created_at FROM asset_groups WHERE id = ?", id).Scan(&group.ID, &group.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if group.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	members, err := memberIDs(ctx, q, "SELECT asset_id FROM group_members WHERE group_id = ? ORDER BY asset_id", id)
	if err != nil {
		return nil, err
	}
	group.AssetIDs = members
	return &group, nil
}

func listGroups(ctx context.Context, q queryer) ([]models.Group, error) {
	rows, err := q.QueryContext(ctx, "SELECT id FROM asset_groups ORDER BY name_key ASC")
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(ids))
	for _, id := range ids {
		group, err := getGroup(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if group != nil {
			groups = append(groups, *group)
		}
	}
	return groups, nil
}

func groupNameTaken(ctx context.Context, q queryer, name, excludeID string) (bool, error) {
	return rowExists(ctx, q, "SELECT 1 FROM asset_groups WHERE name_key = ? AND id != ? LIMIT 1", groupNameKey(name), excludeID)
}

func insertGroup(ctx context.Context, q queryer, group *models.Group) error {
	if group == nil {
		return fmt.Errorf("group is required")
	}
	group.Name = strings.TrimSpace(group.Name)
	if group.Name == "" {
		return fmt.Errorf("group name is required")
	}
	if strings.TrimSpace(group.ID) == "" {
		id, err := GenerateGroupID(func(id string) (bool, error) {
			return rowExists(ctx, q, "SELECT 1 FROM asset_groups WHERE id = ? LIMIT 1", id)
		})
		if err != nil {
			return err
		}
		group.ID = id
	}
	if group.CreatedAt.IsZero() {
		group.CreatedAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, "INSERT INTO asset_groups (id, name, name_key, created_at) VALUES (?, ?, ?, ?)",
		group.ID, group.Name, groupNameKey(group.Name), formatTime(group.CreatedAt))
	return err
}

func renameGroup(ctx context.Context, q queryer, id, name string) error {
	name = strings.TrimSpace(name)
	_, err := q.ExecContext(ctx, "UPDATE asset_groups SET name = ?, name_key = ? WHERE id = ?", name, groupNameKey(name), id)
	return err
}

func deleteGroup(ctx context.Context, q queryer, id string) error {
	_, err := q.ExecContext(ctx, "DELETE FROM asset_groups WHERE id = ?", id)
	return err
}

func addMembers(ctx context.Context, q queryer, table, ownerColumn, ownerID string, assetIDs []string) error {
	assetIDs = uniqueSorted(assetIDs)
	if len(assetIDs) == 0 {
		return nil
	}
	_, err := q.ExecContext(ctx, "INSERT OR IGNORE INTO "+table+" ("+ownerColumn+", asset_id) VALUES "+pairValues(len(assetIDs)), pairArgs(ownerID, assetIDs)...)
	return err
}

func removeMembers(ctx context.Context, q queryer, table, ownerColumn, ownerID string, assetIDs []string) error {
	assetIDs = uniqueSorted(assetIDs)
	if len(assetIDs) == 0 {
		return nil
	}
	args := append([]any{ownerID}, stringArgs(assetIDs)...)
	_, err := q.ExecContext(ctx, "DELETE FROM "+table+" WHERE "+ownerColumn+" = ? AND asset_id IN ("+placeholders(len(assetIDs))+")", args...)
	return err
}

func memberIDs(ctx context.Context, q queryer, query string, args ...any) ([]string, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
