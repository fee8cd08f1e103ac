package search

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"shoebox/internal/blobstore"
	"shoebox/internal/coordinator"
	"shoebox/internal/models"
	"shoebox/internal/notify"
	"shoebox/internal/store"
)

type harness struct {
	coord   *coordinator.Coordinator
	index   *Index
	applied chan models.ChangeNotification
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "library.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	reader, err := st.OpenReader()
	if err != nil {
		t.Fatalf("open reader: %v", err)
	}
	blobs, err := blobstore.NewLocalCAS(filepath.Join(dir, "artifacts"))
	if err != nil {
		t.Fatalf("new cas: %v", err)
	}
	idx, err := Open("", reader, blobs)
	if err != nil {
		t.Fatalf("open index: %v", err)
	}
	coord := coordinator.New(st, nil, coordinator.Options{Blobs: blobs})

	queue := notify.NewQueue("search-test")
	applied := make(chan models.ChangeNotification, 16)
	coord.Register(idx, queue)
	coord.Register(notify.Funcs{Change: func(n models.ChangeNotification) { applied <- n }}, queue)

	t.Cleanup(func() {
		coord.Close()
		queue.Close()
		idx.Close()
		reader.Close()
		st.Close()
	})
	return &harness{coord: coord, index: idx, applied: applied}
}

func (h *harness) next(t *testing.T) models.ChangeNotification {
	t.Helper()
	select {
	case n := <-h.applied:
		return n
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return models.ChangeNotification{}
}

func (h *harness) importText(t *testing.T, name, text string) string {
	t.Helper()
	errs := make(chan error, 1)
	var id string
	cand := models.AssetCandidate{SourceRef: "/notes/" + name, Identity: "b2b256:" + name, Name: name, Kind: models.AssetText}
	h.coord.ImportAssets([]models.AssetCandidate{cand}, "", func(created []string, err error) {
		if len(created) == 1 {
			id = created[0]
		}
		errs <- err
	})
	if err := <-errs; err != nil {
		t.Fatalf("import: %v", err)
	}
	h.next(t)

	art := models.GeneratedArtifact{Kind: models.ArtifactText, MediaType: "text/plain; charset=utf-8", Data: []byte(text)}
	h.coord.AttachArtifact(id, art, func(_ string, err error) { errs <- err })
	if err := <-errs; err != nil {
		t.Fatalf("attach: %v", err)
	}
	h.next(t)
	return id
}

func (h *harness) search(t *testing.T, q string) []Hit {
	t.Helper()
	hits, err := h.index.Search(q, 10)
	if err != nil {
		t.Fatalf("search %q: %v", q, err)
	}
	return hits
}

func TestIndexFindsExtractedText(t *testing.T) {
	h := newHarness(t)
	id := h.importText(t, "trip.md", "We walked along the lighthouse cliffs at dawn.")
	h.importText(t, "recipe.txt", "Knead the dough and let it rest.")

	hits := h.search(t, "lighthouse")
	if len(hits) != 1 || hits[0].ID != id {
		t.Fatalf("expected %s for lighthouse, got %+v", id, hits)
	}
	if hits[0].Name != "trip.md" {
		t.Fatalf("expected stored name, got %q", hits[0].Name)
	}
	if n, _ := h.index.Count(); n != 2 {
		t.Fatalf("expected 2 documents, got %d", n)
	}
}

func TestIndexMatchesUnqualifiedStemmedTerms(t *testing.T) {
	h := newHarness(t)
	id := h.importText(t, "trip.md", "We walked along the lighthouse cliffs at dawn.")

	for _, q := range []string{"lighthouse", "lighthouses", "walked", "walk", "cliff", "text:lighthouse"} {
		hits := h.search(t, q)
		if len(hits) != 1 || hits[0].ID != id {
			t.Fatalf("expected %s for %q, got %+v", id, q, hits)
		}
	}
	if hits := h.search(t, "harbour"); len(hits) != 0 {
		t.Fatalf("expected no hits for an absent term, got %+v", hits)
	}
}

func TestIndexDropsTrashedAssets(t *testing.T) {
	h := newHarness(t)
	id := h.importText(t, "trip.md", "lighthouse")

	errs := make(chan error, 1)
	h.coord.ToggleSoftDelete([]string{id}, func(err error) { errs <- err })
	if err := <-errs; err != nil {
		t.Fatalf("toggle: %v", err)
	}
	h.next(t)
	if hits := h.search(t, "lighthouse"); len(hits) != 0 {
		t.Fatalf("expected soft-deleted asset hidden, got %+v", hits)
	}

	h.coord.ToggleSoftDelete([]string{id}, func(err error) { errs <- err })
	if err := <-errs; err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	h.next(t)
	if hits := h.search(t, "lighthouse"); len(hits) != 1 {
		t.Fatalf("expected restored asset found, got %+v", hits)
	}

	h.coord.ToggleSoftDelete([]string{id}, func(err error) { errs <- err })
	if err := <-errs; err != nil {
		t.Fatalf("toggle again: %v", err)
	}
	h.next(t)
	h.coord.EmptyTrash(func(_ []string, err error) { errs <- err })
	if err := <-errs; err != nil {
		t.Fatalf("empty trash: %v", err)
	}
	h.next(t)
	if n, _ := h.index.Count(); n != 0 {
		t.Fatalf("expected empty index after trash, got %d", n)
	}
}

func TestIndexToleratesRedelivery(t *testing.T) {
	h := newHarness(t)
	h.importText(t, "trip.md", "lighthouse")

	errs := make(chan error, 1)
	h.coord.CreateGroup("Notes", func(_ string, err error) { errs <- err })
	if err := <-errs; err != nil {
		t.Fatalf("create group: %v", err)
	}
	n := h.next(t)
	h.index.OnChangeNotification(n)

	if err := h.index.Rebuild(context.Background()); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if hits := h.search(t, "lighthouse"); len(hits) != 1 {
		t.Fatalf("expected a single hit after redelivery and rebuild, got %+v", hits)
	}
}
