// Package search maintains a bleve full-text index over asset names and
// extracted text. The index is a change observer: it never reads from the
// writer and converges from notifications alone.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"shoebox/internal/blobstore"
	"shoebox/internal/models"
	"shoebox/internal/store"
)

const (
	maxTextBytes   = 1 << 20
	refreshTimeout = 30 * time.Second
)

// Document is the indexed form of one live asset.
type Document struct {
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Text      string `json:"text"`
	Favourite bool   `json:"favourite"`
}

// Hit is one search result.
type Hit struct {
	ID        string              `json:"id" yaml:"id"`
	Name      string              `json:"name" yaml:"name"`
	Score     float64             `json:"score" yaml:"score"`
	Fragments map[string][]string `json:"fragments,omitempty" yaml:"fragments,omitempty"`
}

// Index wraps a bleve index.
type Index struct {
	index  bleve.Index
	reader store.Reader
	blobs  blobstore.Store
	logger *slog.Logger
}

// Open opens or creates the index at path. An empty path keeps the index in
// memory.
func Open(path string, reader store.Reader, blobs blobstore.Store) (*Index, error) {
	var (
		idx bleve.Index
		err error
	)
	if path == "" {
		idx, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		idx, err = bleve.Open(path)
		if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
			idx, err = bleve.New(path, buildIndexMapping())
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{
		index:  idx,
		reader: reader,
		blobs:  blobs,
		logger: slog.Default().With("component", "search"),
	}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = "en"

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = "en"

	kindField := bleve.NewKeywordFieldMapping()
	favField := bleve.NewBooleanFieldMapping()

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("name", nameField)
	doc.AddFieldMappingsAt("text", textField)
	doc.AddFieldMappingsAt("kind", kindField)
	doc.AddFieldMappingsAt("favourite", favField)

	m := bleve.NewIndexMapping()
	m.DefaultMapping = doc
	// Unqualified queries hit _all and are analyzed with the default
	// analyzer, so it must stem like the fields feeding _all.
	m.DefaultAnalyzer = "en"
	return m
}

func (i *Index) Close() error {
	return i.index.Close()
}

// Count returns the number of indexed assets.
func (i *Index) Count() (uint64, error) {
	return i.index.DocCount()
}

// Rebuild indexes every live asset. Assets already indexed are overwritten.
func (i *Index) Rebuild(ctx context.Context) error {
	assets, err := i.reader.ListAssets(ctx, store.AssetFilter{})
	if err != nil {
		return fmt.Errorf("list assets: %w", err)
	}
	batch := i.index.NewBatch()
	for _, a := range assets {
		if err := batch.Index(a.ID, i.document(ctx, a)); err != nil {
			return fmt.Errorf("batch index %s: %w", a.ID, err)
		}
	}
	if err := i.index.Batch(batch); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

func (i *Index) OnChangeNotification(n models.ChangeNotification) {
	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()
	if err := i.apply(ctx, n); err != nil {
		i.logger.Warn("index update failed", "seq", n.Seq(), "error", err)
	}
}

func (i *Index) OnArtifactGenerationFailed(string, error) {}

func (i *Index) apply(ctx context.Context, n models.ChangeNotification) error {
	refresh := append(n.Inserted(models.EntityAsset), n.Updated(models.EntityAsset)...)
	deleted := n.Deleted(models.EntityAsset)
	if len(refresh) == 0 && len(deleted) == 0 {
		return nil
	}

	batch := i.index.NewBatch()
	for _, id := range deleted {
		batch.Delete(id)
	}
	if len(refresh) > 0 {
		assets, err := i.reader.ListAssets(ctx, store.AssetFilter{IDs: refresh, IncludeDeleted: true})
		if err != nil {
			return fmt.Errorf("list assets: %w", err)
		}
		live := make(map[string]bool, len(assets))
		for _, a := range assets {
			if a.SoftDeleted {
				continue
			}
			live[a.ID] = true
			if err := batch.Index(a.ID, i.document(ctx, a)); err != nil {
				return fmt.Errorf("batch index %s: %w", a.ID, err)
			}
		}
		for _, id := range refresh {
			if !live[id] {
				batch.Delete(id)
			}
		}
	}
	return i.index.Batch(batch)
}

func (i *Index) document(ctx context.Context, a models.Asset) Document {
	doc := Document{Name: a.Name, Kind: string(a.Kind), Favourite: a.Favourite}
	if a.TextBlobID == "" || i.blobs == nil {
		return doc
	}
	blob, err := i.reader.GetBlob(ctx, a.TextBlobID)
	if err != nil || blob == nil {
		i.logger.Warn("text blob unavailable", "asset_id", a.ID, "blob_id", a.TextBlobID, "error", err)
		return doc
	}
	data, err := i.blobs.ReadAll(ctx, blob.BlobKey, maxTextBytes)
	if err != nil {
		i.logger.Warn("read text blob failed", "asset_id", a.ID, "blob_id", a.TextBlobID, "error", err)
		return doc
	}
	doc.Text = string(data)
	return doc
}

// Search runs a query-string query over names and extracted text.
func (i *Index) Search(query string, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = 20
	}
	req := bleve.NewSearchRequestOptions(bleve.NewQueryStringQuery(query), limit, 0, false)
	req.Fields = []string{"name"}
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField("text")
	res, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{ID: h.ID, Score: h.Score, Fragments: h.Fragments}
		if name, ok := h.Fields["name"].(string); ok {
			hit.Name = name
		}
		hits = append(hits, hit)
	}
	return hits, nil
}
