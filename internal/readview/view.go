// Package readview keeps an in-memory copy of the default library view:
// live assets, groups and tags. It is loaded once from a read handle and
// afterwards refreshed only from change notifications, refetching the IDs a
// notification names. Refetching makes redelivery harmless.
package readview

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"shoebox/internal/models"
	"shoebox/internal/store"
)

const refreshTimeout = 30 * time.Second

// View is a notify.Observer. Register it with a serial executor so
// notifications apply in commit order.
type View struct {
	reader store.Reader
	logger *slog.Logger

	mu       sync.RWMutex
	assets   map[string]models.Asset
	groups   map[string]models.Group
	tags     map[string]models.Tag
	failures map[string]string
	seq      uint64
}

func New(reader store.Reader) *View {
	return &View{
		reader:   reader,
		logger:   slog.Default().With("component", "readview"),
		assets:   map[string]models.Asset{},
		groups:   map[string]models.Group{},
		tags:     map[string]models.Tag{},
		failures: map[string]string{},
	}
}

// Load replaces the cached state with a full read.
func (v *View) Load(ctx context.Context) error {
	assets, err := v.reader.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return err
	}
	groups, err := v.reader.ListGroups(ctx)
	if err != nil {
		return err
	}
	tags, err := v.reader.ListTags(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	v.assets = make(map[string]models.Asset, len(assets))
	for _, a := range assets {
		v.assets[a.ID] = a
	}
	v.groups = make(map[string]models.Group, len(groups))
	for _, g := range groups {
		v.groups[g.ID] = g
	}
	v.setTags(tags)
	return nil
}

func (v *View) OnChangeNotification(n models.ChangeNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	if err := v.applyAssets(ctx, n); err != nil {
		v.logger.Warn("refresh assets failed", "seq", n.Seq(), "error", err)
	}
	if err := v.applyGroups(ctx, n); err != nil {
		v.logger.Warn("refresh groups failed", "seq", n.Seq(), "error", err)
	}
	if !n.Changes(models.EntityTag).Empty() {
		tags, err := v.reader.ListTags(ctx)
		if err != nil {
			v.logger.Warn("refresh tags failed", "seq", n.Seq(), "error", err)
		} else {
			v.mu.Lock()
			v.setTags(tags)
			v.mu.Unlock()
		}
	}

	v.mu.Lock()
	if n.Seq() > v.seq {
		v.seq = n.Seq()
	}
	v.mu.Unlock()
}

func (v *View) OnArtifactGenerationFailed(assetID string, err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.failures[assetID] = err.Error()
}

func (v *View) applyAssets(ctx context.Context, n models.ChangeNotification) error {
	refresh := append(n.Inserted(models.EntityAsset), n.Updated(models.EntityAsset)...)
	var fetched []models.Asset
	if len(refresh) > 0 {
		var err error
		fetched, err = v.reader.ListAssets(ctx, store.AssetFilter{IDs: refresh, IncludeDeleted: true})
		if err != nil {
			return err
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range n.Deleted(models.EntityAsset) {
		delete(v.assets, id)
		delete(v.failures, id)
	}
	// An ID named by the notification but no longer readable was removed
	// by a later commit; its own notification will follow.
	for _, id := range refresh {
		delete(v.assets, id)
	}
	for _, a := range fetched {
		if a.SoftDeleted {
			continue
		}
		v.assets[a.ID] = a
	}
	return nil
}

func (v *View) applyGroups(ctx context.Context, n models.ChangeNotification) error {
	refresh := append(n.Inserted(models.EntityGroup), n.Updated(models.EntityGroup)...)
	fetched := make([]models.Group, 0, len(refresh))
	for _, id := range refresh {
		g, err := v.reader.GetGroup(ctx, id)
		if err != nil {
			return err
		}
		if g != nil {
			fetched = append(fetched, *g)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range n.Deleted(models.EntityGroup) {
		delete(v.groups, id)
	}
	for _, id := range refresh {
		delete(v.groups, id)
	}
	for _, g := range fetched {
		v.groups[g.ID] = g
	}
	return nil
}

func (v *View) setTags(tags []models.Tag) {
	v.tags = make(map[string]models.Tag, len(tags))
	for _, t := range tags {
		v.tags[t.ID] = t
	}
}

// Assets returns the visible assets, oldest first.
func (v *View) Assets() []models.Asset {
	v.mu.RLock()
	out := make([]models.Asset, 0, len(v.assets))
	for _, a := range v.assets {
		out = append(out, a)
	}
	v.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Asset returns a visible asset by ID.
func (v *View) Asset(id string) (models.Asset, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	a, ok := v.assets[id]
	return a, ok
}

// GroupMembers returns the visible members of a group. Soft-deleted members
// are omitted even though they still belong to the group.
func (v *View) GroupMembers(groupID string) ([]models.Asset, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	g, ok := v.groups[groupID]
	if !ok {
		return nil, false
	}
	out := make([]models.Asset, 0, len(g.AssetIDs))
	for _, id := range g.AssetIDs {
		if a, ok := v.assets[id]; ok {
			out = append(out, a)
		}
	}
	return out, true
}

// Groups returns the cached groups ordered by name.
func (v *View) Groups() []models.Group {
	v.mu.RLock()
	out := make([]models.Group, 0, len(v.groups))
	for _, g := range v.groups {
		out = append(out, g)
	}
	v.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Tags returns the cached tags ordered by name.
func (v *View) Tags() []models.Tag {
	v.mu.RLock()
	out := make([]models.Tag, 0, len(v.tags))
	for _, t := range v.tags {
		out = append(out, t)
	}
	v.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Failures returns the last artifact generation error per asset.
func (v *View) Failures() map[string]string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]string, len(v.failures))
	for id, msg := range v.failures {
		out[id] = msg
	}
	return out
}

// Seq is the highest notification sequence applied.
func (v *View) Seq() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.seq
}
