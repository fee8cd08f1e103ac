package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"shoebox/internal/liberr"
	"shoebox/internal/models"
	"shoebox/internal/store"
)

// ImportAssets creates assets for candidates prepared by the importer and
// optionally adds them to groupID. Candidates whose identity already exists,
// in the store or earlier in the batch, are skipped without error.
func (c *Coordinator) ImportAssets(candidates []models.AssetCandidate, groupID string, done func(createdIDs []string, err error)) {
	var created []string
	c.submit(&job{
		op: "import_assets",
		run: func(ctx context.Context, u store.Unit) error {
			groupID = strings.TrimSpace(groupID)
			if groupID != "" {
				if err := requireGroup(ctx, u, groupID); err != nil {
					return err
				}
			}
			seen := make(map[string]struct{}, len(candidates))
			for _, cand := range candidates {
				if err := validateCandidate(cand); err != nil {
					return err
				}
				if _, dup := seen[cand.Identity]; dup {
					continue
				}
				seen[cand.Identity] = struct{}{}

				exists, err := u.AssetIdentityExists(ctx, cand.Identity)
				if err != nil {
					return err
				}
				if exists {
					continue
				}
				asset := &models.Asset{
					SourceRef: cand.SourceRef,
					Identity:  cand.Identity,
					Name:      cand.Name,
					Kind:      cand.Kind,
					MediaType: cand.MediaType,
					SizeBytes: cand.SizeBytes,
				}
				if err := u.CreateAsset(ctx, asset); err != nil {
					return err
				}
				created = append(created, asset.ID)
			}
			if groupID != "" && len(created) > 0 {
				return u.AddGroupMembers(ctx, groupID, created)
			}
			return nil
		},
		complete: func(err error) {
			if done == nil {
				return
			}
			if err != nil {
				done(nil, err)
				return
			}
			done(created, nil)
		},
	})
}

// CreateGroup creates an empty group. Names are trimmed and must be unique
// ignoring case.
func (c *Coordinator) CreateGroup(name string, done func(id string, err error)) {
	var id string
	c.submit(&job{
		op: "create_group",
		run: func(ctx context.Context, u store.Unit) error {
			name = strings.TrimSpace(name)
			if err := requireFreeGroupName(ctx, u, name, ""); err != nil {
				return err
			}
			group := &models.Group{Name: name}
			if err := u.CreateGroup(ctx, group); err != nil {
				return err
			}
			id = group.ID
			return nil
		},
		complete: func(err error) {
			if done == nil {
				return
			}
			if err != nil {
				done("", err)
				return
			}
			done(id, nil)
		},
	})
}

// RenameGroup renames an existing group, with the same rules as CreateGroup.
func (c *Coordinator) RenameGroup(groupID, name string, done func(err error)) {
	c.submit(&job{
		op: "rename_group",
		run: func(ctx context.Context, u store.Unit) error {
			if err := requireGroup(ctx, u, groupID); err != nil {
				return err
			}
			name = strings.TrimSpace(name)
			if err := requireFreeGroupName(ctx, u, name, groupID); err != nil {
				return err
			}
			return u.RenameGroup(ctx, groupID, name)
		},
		complete: errOnly(done),
	})
}

// DeleteGroup removes a group. Its member assets are untouched.
func (c *Coordinator) DeleteGroup(groupID string, done func(err error)) {
	c.submit(&job{
		op: "delete_group",
		run: func(ctx context.Context, u store.Unit) error {
			if err := requireGroup(ctx, u, groupID); err != nil {
				return err
			}
			return u.DeleteGroup(ctx, groupID)
		},
		complete: errOnly(done),
	})
}

// SetFavourite sets the favourite flag on every asset in assetIDs.
func (c *Coordinator) SetFavourite(assetIDs []string, state bool, done func(state bool, err error)) {
	c.submit(&job{
		op: "set_favourite",
		run: func(ctx context.Context, u store.Unit) error {
			if err := requireAssets(ctx, u, assetIDs); err != nil {
				return err
			}
			return u.SetFavourite(ctx, assetIDs, state, time.Now().UTC())
		},
		complete: func(err error) {
			if done != nil {
				done(state, err)
			}
		},
	})
}

// AddAssetsToGroup adds assets to a group. Existing members are unaffected.
func (c *Coordinator) AddAssetsToGroup(assetIDs []string, groupID string, done func(err error)) {
	c.submit(&job{
		op: "add_assets_to_group",
		run: func(ctx context.Context, u store.Unit) error {
			if err := requireGroup(ctx, u, groupID); err != nil {
				return err
			}
			if err := requireAssets(ctx, u, assetIDs); err != nil {
				return err
			}
			return u.AddGroupMembers(ctx, groupID, assetIDs)
		},
		complete: errOnly(done),
	})
}

// RemoveAssetsFromGroup removes assets from a group.
func (c *Coordinator) RemoveAssetsFromGroup(assetIDs []string, groupID string, done func(err error)) {
	c.submit(&job{
		op: "remove_assets_from_group",
		run: func(ctx context.Context, u store.Unit) error {
			if err := requireGroup(ctx, u, groupID); err != nil {
				return err
			}
			if err := requireAssets(ctx, u, assetIDs); err != nil {
				return err
			}
			return u.RemoveGroupMembers(ctx, groupID, assetIDs)
		},
		complete: errOnly(done),
	})
}

// AddAssetsToTags tags every asset with every name, creating tags that do
// not exist yet. done receives the tag ids in the order of tagNames.
func (c *Coordinator) AddAssetsToTags(assetIDs []string, tagNames []string, done func(tagIDs []string, err error)) {
	var tagIDs []string
	c.submit(&job{
		op: "add_assets_to_tags",
		run: func(ctx context.Context, u store.Unit) error {
			if len(tagNames) == 0 {
				return liberr.ValidationCode(errors.New("at least one tag name is required"), liberr.CodeMissingRequired)
			}
			if err := requireAssets(ctx, u, assetIDs); err != nil {
				return err
			}
			for _, raw := range tagNames {
				name := store.NormalizeTagName(raw)
				if name == "" {
					return liberr.ValidationCode(errors.New("tag name is required"), liberr.CodeInvalidName)
				}
				tag, err := u.GetTagByName(ctx, name)
				if err != nil {
					return err
				}
				if tag == nil {
					tag = &models.Tag{Name: name}
					if err := u.CreateTag(ctx, tag); err != nil {
						return err
					}
				}
				if err := u.AddTagMembers(ctx, tag.ID, assetIDs); err != nil {
					return err
				}
				tagIDs = append(tagIDs, tag.ID)
			}
			return nil
		},
		complete: func(err error) {
			if done == nil {
				return
			}
			if err != nil {
				done(nil, err)
				return
			}
			done(tagIDs, nil)
		},
	})
}

// RemoveTagsFromAssets removes every listed tag from every listed asset.
func (c *Coordinator) RemoveTagsFromAssets(tagIDs []string, assetIDs []string, done func(err error)) {
	c.submit(&job{
		op: "remove_tags_from_assets",
		run: func(ctx context.Context, u store.Unit) error {
			missing, err := u.MissingTags(ctx, tagIDs)
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return liberr.NotFound(strings.Join(missing, ","), liberr.CodeTagNotFound)
			}
			if err := requireAssets(ctx, u, assetIDs); err != nil {
				return err
			}
			for _, tagID := range tagIDs {
				if err := u.RemoveTagMembers(ctx, tagID, assetIDs); err != nil {
					return err
				}
			}
			return nil
		},
		complete: errOnly(done),
	})
}

// ToggleSoftDelete flips the soft-delete flag of each asset, based on its
// state when the request executes.
func (c *Coordinator) ToggleSoftDelete(assetIDs []string, done func(err error)) {
	c.submit(&job{
		op: "toggle_soft_delete",
		run: func(ctx context.Context, u store.Unit) error {
			if err := requireAssets(ctx, u, assetIDs); err != nil {
				return err
			}
			now := time.Now().UTC()
			for _, id := range uniqueIDs(assetIDs) {
				asset, err := u.GetAsset(ctx, id)
				if err != nil {
					return err
				}
				if err := u.SetSoftDeleted(ctx, id, !asset.SoftDeleted, now); err != nil {
					return err
				}
			}
			return nil
		},
		complete: errOnly(done),
	})
}

// EmptyTrash permanently deletes every soft-deleted asset. Artifact blobs
// left without a referencing asset are removed with them.
func (c *Coordinator) EmptyTrash(done func(deletedIDs []string, err error)) {
	var deleted []string
	var orphans []models.Blob
	c.submit(&job{
		op: "empty_trash",
		run: func(ctx context.Context, u store.Unit) error {
			trashed, err := u.ListAssets(ctx, store.AssetFilter{OnlyDeleted: true})
			if err != nil {
				return err
			}
			for _, a := range trashed {
				deleted = append(deleted, a.ID)
			}
			if err := u.DeleteAssets(ctx, deleted); err != nil {
				return err
			}
			orphans, err = removeUnreferencedBlobs(ctx, u)
			return err
		},
		afterCommit: func(ctx context.Context) {
			c.deleteBlobObjects(ctx, orphans)
		},
		complete: func(err error) {
			if done == nil {
				return
			}
			if err != nil {
				done(nil, err)
				return
			}
			done(deleted, nil)
		},
	})
}

// CollectGarbage removes artifact blobs that no asset references.
func (c *Coordinator) CollectGarbage(done func(result models.GCResult, err error)) {
	var orphans []models.Blob
	c.submit(&job{
		op: "collect_garbage",
		run: func(ctx context.Context, u store.Unit) error {
			var err error
			orphans, err = removeUnreferencedBlobs(ctx, u)
			return err
		},
		afterCommit: func(ctx context.Context) {
			c.deleteBlobObjects(ctx, orphans)
		},
		complete: func(err error) {
			if done == nil {
				return
			}
			if err != nil {
				done(models.GCResult{}, err)
				return
			}
			done(gcResult(orphans), nil)
		},
	})
}

// AttachArtifact stores generated bytes and points the asset's thumbnail or
// text reference at them. The asset may have been trashed since generation
// started, in which case the request fails with a validation error. An
// object written by a unit that rolls back is removed again.
func (c *Coordinator) AttachArtifact(assetID string, artifact models.GeneratedArtifact, done func(blobID string, err error)) {
	var blobID string
	var written []models.Blob
	c.submit(&job{
		op: "attach_artifact",
		run: func(ctx context.Context, u store.Unit) error {
			if c.blobs == nil {
				return liberr.Store(errors.New("artifact store is not configured"), liberr.CodeStoreFailure)
			}
			if _, err := models.ParseArtifactKind(string(artifact.Kind)); err != nil {
				return liberr.ValidationCode(err, liberr.CodeInvalidArtifact)
			}
			if err := requireAssets(ctx, u, []string{assetID}); err != nil {
				return err
			}
			put, err := c.blobs.PutBytes(ctx, artifact.Data)
			if err != nil {
				return liberr.Store(fmt.Errorf("store artifact bytes: %w", err), liberr.CodeStoreFailure)
			}
			if put.Created {
				written = append(written, models.Blob{BlobKey: put.BlobKey})
			}
			blob, err := u.UpsertBlob(ctx, &models.Blob{
				SHA256:    put.SHA256,
				SizeBytes: put.SizeBytes,
				MediaType: artifact.MediaType,
				BlobKey:   put.BlobKey,
			})
			if err != nil {
				return err
			}
			blobID = blob.ID
			return u.SetAssetArtifact(ctx, assetID, artifact.Kind, blob.ID, time.Now().UTC())
		},
		afterRollback: func(ctx context.Context) {
			c.deleteBlobObjects(ctx, written)
		},
		complete: func(err error) {
			if done == nil {
				return
			}
			if err != nil {
				done("", err)
				return
			}
			done(blobID, nil)
		},
	})
}

// RequestThumbnails schedules thumbnail generation. Failures are reported to
// observers per asset; the call itself never fails.
func (c *Coordinator) RequestThumbnails(assetIDs []string) {
	c.requestArtifacts(models.ArtifactThumbnail, assetIDs)
}

// RequestTextScan schedules text extraction, reported like RequestThumbnails.
func (c *Coordinator) RequestTextScan(assetIDs []string) {
	c.requestArtifacts(models.ArtifactText, assetIDs)
}

func (c *Coordinator) requestArtifacts(kind models.ArtifactKind, assetIDs []string) {
	ids := uniqueIDs(assetIDs)
	if len(ids) == 0 {
		return
	}
	c.schedMu.RLock()
	sched := c.scheduler
	c.schedMu.RUnlock()
	if sched == nil {
		c.logger.Debug("artifact request dropped, no scheduler", "kind", string(kind), "count", len(ids))
		return
	}
	sched.Schedule(kind, ids)
}

func (c *Coordinator) deleteBlobObjects(ctx context.Context, blobs []models.Blob) {
	if c.blobs == nil {
		return
	}
	for _, b := range blobs {
		if err := c.blobs.Delete(ctx, b.BlobKey); err != nil {
			c.logger.Warn("delete artifact object", "blob_id", b.ID, "key", b.BlobKey, "error", err)
		}
	}
}

func removeUnreferencedBlobs(ctx context.Context, u store.Unit) ([]models.Blob, error) {
	orphans, err := u.ListUnreferencedBlobs(ctx, 0)
	if err != nil {
		return nil, err
	}
	for _, b := range orphans {
		if err := u.DeleteBlob(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return orphans, nil
}

func gcResult(blobs []models.Blob) models.GCResult {
	res := models.GCResult{BlobIDs: []string{}}
	for _, b := range blobs {
		res.BlobsRemoved++
		res.BytesFreed += b.SizeBytes
		res.BlobIDs = append(res.BlobIDs, b.ID)
	}
	return res
}

func errOnly(done func(error)) func(error) {
	return func(err error) {
		if done != nil {
			done(err)
		}
	}
}
