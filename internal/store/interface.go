package store

import (
	"context"
	"time"

	"shoebox/internal/models"
)

// AssetFilter is the predicate used for asset fetches. The zero value selects
// the default view: every asset that is not soft-deleted.
type AssetFilter struct {
	IDs            []string
	GroupID        string
	TagID          string
	Kind           models.AssetKind
	FavouritesOnly bool
	IncludeDeleted bool
	OnlyDeleted    bool
	Limit          int
}

// Mutator is the write surface available inside one unit of work.
type Mutator interface {
	AssetExists(ctx context.Context, id string) (bool, error)
	MissingAssets(ctx context.Context, ids []string) ([]string, error)
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	ListAssets(ctx context.Context, filter AssetFilter) ([]models.Asset, error)
	AssetIdentityExists(ctx context.Context, identity string) (bool, error)
	CreateAsset(ctx context.Context, asset *models.Asset) error
	SetFavourite(ctx context.Context, ids []string, state bool, at time.Time) error
	SetSoftDeleted(ctx context.Context, id string, state bool, at time.Time) error
	DeleteAssets(ctx context.Context, ids []string) error
	SetAssetArtifact(ctx context.Context, id string, kind models.ArtifactKind, blobID string, at time.Time) error

	GetGroup(ctx context.Context, id string) (*models.Group, error)
	GroupNameTaken(ctx context.Context, name, excludeID string) (bool, error)
	CreateGroup(ctx context.Context, group *models.Group) error
	RenameGroup(ctx context.Context, id, name string) error
	DeleteGroup(ctx context.Context, id string) error
	AddGroupMembers(ctx context.Context, groupID string, assetIDs []string) error
	RemoveGroupMembers(ctx context.Context, groupID string, assetIDs []string) error

	GetTagByName(ctx context.Context, name string) (*models.Tag, error)
	MissingTags(ctx context.Context, ids []string) ([]string, error)
	CreateTag(ctx context.Context, tag *models.Tag) error
	AddTagMembers(ctx context.Context, tagID string, assetIDs []string) error
	RemoveTagMembers(ctx context.Context, tagID string, assetIDs []string) error

	UpsertBlob(ctx context.Context, blob *models.Blob) (*models.Blob, error)
	ListUnreferencedBlobs(ctx context.Context, limit int) ([]models.Blob, error)
	DeleteBlob(ctx context.Context, id string) error

	Snapshot(ctx context.Context) (models.Snapshot, error)
}

// Unit is one atomic unit of work: everything applied through it commits or
// rolls back together.
type Unit interface {
	Mutator
	Commit() error
	Rollback() error
}

// WriteStore hands out units of work. Only the write coordinator holds one.
type WriteStore interface {
	Begin(ctx context.Context) (Unit, error)
}

// Reader is the read-only surface used by importers, generators and views.
type Reader interface {
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	ListAssets(ctx context.Context, filter AssetFilter) ([]models.Asset, error)
	AssetIdentityExists(ctx context.Context, identity string) (bool, error)
	GetGroup(ctx context.Context, id string) (*models.Group, error)
	ListGroups(ctx context.Context) ([]models.Group, error)
	ListTags(ctx context.Context) ([]models.Tag, error)
	GetBlob(ctx context.Context, id string) (*models.Blob, error)
}

var (
	_ WriteStore = (*Store)(nil)
	_ Unit       = (*Tx)(nil)
	_ Reader     = (*ReadHandle)(nil)
)
