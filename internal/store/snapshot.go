package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"shoebox/internal/models"
)

// snapshot captures a fingerprint of every entity so two snapshots taken
// around a unit of work can be diffed. An asset's fingerprint covers its own
// columns; a group's or tag's covers its name and member set.
func snapshot(ctx context.Context, q queryer) (models.Snapshot, error) {
	snap := models.NewSnapshot()

	rows, err := q.QueryContext(ctx, `
		SELECT id, name, kind, favourite, soft_deleted,
		       COALESCE(thumbnail_blob_id, ''), COALESCE(text_blob_id, ''), updated_at
		FROM assets`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id, name, kind, thumb, text, updatedAt string
		var favourite, softDeleted int
		if err := rows.Scan(&id, &name, &kind, &favourite, &softDeleted, &thumb, &text, &updatedAt); err != nil {
			rows.Close()
			return nil, err
		}
		snap[models.EntityAsset][id] = fingerprint(name, kind, boolString(favourite), boolString(softDeleted), thumb, text, updatedAt)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	if err := collectMembershipFingerprints(ctx, q, snap[models.EntityGroup], `
		SELECT g.id, g.name, COALESCE(m.asset_id, '')
		FROM asset_groups g
		LEFT JOIN group_members m ON m.group_id = g.id
		ORDER BY g.id, m.asset_id`); err != nil {
		return nil, err
	}
	if err := collectMembershipFingerprints(ctx, q, snap[models.EntityTag], `
		SELECT t.id, t.name, COALESCE(m.asset_id, '')
		FROM tags t
		LEFT JOIN tag_members m ON m.tag_id = t.id
		ORDER BY t.id, m.asset_id`); err != nil {
		return nil, err
	}
	return snap, nil
}

// collectMembershipFingerprints expects rows ordered by owner id then member.
func collectMembershipFingerprints(ctx context.Context, q queryer, into map[string]string, query string) error {
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	var currentID, currentName string
	var members []string
	flush := func() {
		if currentID == "" {
			return
		}
		into[currentID] = fingerprint(append([]string{currentName}, members...)...)
	}
	for rows.Next() {
		var id, name, member string
		if err := rows.Scan(&id, &name, &member); err != nil {
			return err
		}
		if id != currentID {
			flush()
			currentID, currentName, members = id, name, nil
		}
		if member != "" {
			members = append(members, member)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	flush()
	return nil
}

func fingerprint(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(sum[:])
}

func boolString(v int) string {
	if v != 0 {
		return "1"
	}
	return "0"
}
