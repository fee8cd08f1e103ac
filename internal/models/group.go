package models

import "time"

// Group is a user-defined named collection of assets.
type Group struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	AssetIDs  []string  `json:"asset_ids" yaml:"asset_ids"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

// Tag is a named label attachable to many assets.
type Tag struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	AssetIDs  []string  `json:"asset_ids" yaml:"asset_ids"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}
