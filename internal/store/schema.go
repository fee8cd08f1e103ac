package store

import "database/sql"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS blobs (
  id TEXT PRIMARY KEY,
  sha256 TEXT NOT NULL UNIQUE,
  size_bytes INTEGER NOT NULL,
  media_type TEXT NOT NULL,
  storage_backend TEXT NOT NULL,
  blob_key TEXT NOT NULL,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS assets (
  id TEXT PRIMARY KEY,
  source_ref TEXT NOT NULL,
  identity TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  kind TEXT NOT NULL,
  media_type TEXT,
  size_bytes INTEGER NOT NULL DEFAULT 0,
  favourite INTEGER NOT NULL DEFAULT 0,
  soft_deleted INTEGER NOT NULL DEFAULT 0,
  thumbnail_blob_id TEXT,
  text_blob_id TEXT,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  FOREIGN KEY (thumbnail_blob_id) REFERENCES blobs(id) ON DELETE SET NULL,
  FOREIGN KEY (text_blob_id) REFERENCES blobs(id) ON DELETE SET NULL
);

CREATE TABLE IF NOT EXISTS asset_groups (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  name_key TEXT NOT NULL UNIQUE,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS group_members (
  group_id TEXT NOT NULL,
  asset_id TEXT NOT NULL,
  UNIQUE(group_id, asset_id),
  FOREIGN KEY (group_id) REFERENCES asset_groups(id) ON DELETE CASCADE,
  FOREIGN KEY (asset_id) REFERENCES assets(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS tags (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL UNIQUE,
  created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tag_members (
  tag_id TEXT NOT NULL,
  asset_id TEXT NOT NULL,
  UNIQUE(tag_id, asset_id),
  FOREIGN KEY (tag_id) REFERENCES tags(id) ON DELETE CASCADE,
  FOREIGN KEY (asset_id) REFERENCES assets(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_assets_soft_deleted ON assets(soft_deleted, created_at);
CREATE INDEX IF NOT EXISTS idx_assets_favourite ON assets(favourite);
CREATE INDEX IF NOT EXISTS idx_group_members_asset ON group_members(asset_id);
CREATE INDEX IF NOT EXISTS idx_tag_members_asset ON tag_members(asset_id);
`

func bootstrapSchema(db *sql.DB) error {
	_, err := db.Exec(schemaSQL)
	return err
}
