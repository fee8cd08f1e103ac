package artifact

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shoebox/internal/access"
	"shoebox/internal/blobstore"
	"shoebox/internal/coordinator"
	"shoebox/internal/liberr"
	"shoebox/internal/models"
	"shoebox/internal/notify"
	"shoebox/internal/store"
)

type library struct {
	st     *store.Store
	reader *store.ReadHandle
	coord  *coordinator.Coordinator
	pool   *Pool
}

func newLibrary(t *testing.T, gens ...Generator) *library {
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
	resolver, err := access.NewFSResolver(nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	coord := coordinator.New(st, nil, coordinator.Options{Blobs: blobs})
	pool := NewPool(PoolConfig{Workers: 3}, reader, resolver, coord, gens...)
	coord.SetArtifactScheduler(pool)
	t.Cleanup(func() {
		coord.Close()
		reader.Close()
		st.Close()
	})
	return &library{st: st, reader: reader, coord: coord, pool: pool}
}

func (l *library) importFiles(t *testing.T, kind models.AssetKind, paths ...string) []string {
	t.Helper()
	var cands []models.AssetCandidate
	for _, p := range paths {
		cands = append(cands, models.AssetCandidate{SourceRef: p, Identity: "b2b256:" + filepath.Base(p), Name: filepath.Base(p), Kind: kind})
	}
	type result struct {
		ids []string
		err error
	}
	ch := make(chan result, 1)
	l.coord.ImportAssets(cands, "", func(ids []string, err error) { ch <- result{ids, err} })
	select {
	case res := <-ch:
		if res.err != nil {
			t.Fatalf("import: %v", res.err)
		}
		return res.ids
	case <-time.After(5 * time.Second):
		t.Fatal("timed out importing")
	}
	return nil
}

func TestThumbnailBatchIsolatesFailures(t *testing.T) {
	lib := newLibrary(t, Thumbnailer{MaxEdge: 32})
	dir := t.TempDir()
	paths := []string{filepath.Join(dir, "a.png"), filepath.Join(dir, "b.png"), filepath.Join(dir, "c.png")}
	for _, p := range paths {
		writePNG(t, p, 64, 64)
	}
	ids := lib.importFiles(t, models.AssetImage, paths...)
	if len(ids) != 3 {
		t.Fatalf("expected 3 assets, got %v", ids)
	}
	idByPath := map[string]string{}
	for _, id := range ids {
		a, err := lib.reader.GetAsset(context.Background(), id)
		if err != nil || a == nil {
			t.Fatalf("get asset %s: %v", id, err)
		}
		idByPath[a.SourceRef] = id
	}
	assetA, assetB, assetC := idByPath[paths[0]], idByPath[paths[1]], idByPath[paths[2]]
	if err := os.Remove(paths[1]); err != nil {
		t.Fatalf("remove b: %v", err)
	}

	var mu sync.Mutex
	failed := map[string]error{}
	var updated []string
	lib.coord.Register(notify.Funcs{
		Change: func(n models.ChangeNotification) {
			mu.Lock()
			updated = append(updated, n.Updated(models.EntityAsset)...)
			mu.Unlock()
		},
		Failure: func(id string, err error) {
			mu.Lock()
			failed[id] = err
			mu.Unlock()
		},
	}, nil)

	lib.coord.RequestThumbnails(ids)
	lib.coord.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 {
		t.Fatalf("expected exactly one failure, got %v", failed)
	}
	err, ok := failed[assetB]
	if !ok {
		t.Fatalf("expected failure for %s, got %v", assetB, failed)
	}
	if !liberr.IsArtifact(err) {
		t.Fatalf("expected artifact generation error, got %v", err)
	}
	for _, id := range []string{assetA, assetC} {
		a, err := lib.reader.GetAsset(context.Background(), id)
		if err != nil {
			t.Fatalf("get %s: %v", id, err)
		}
		if a.ThumbnailBlobID == "" {
			t.Fatalf("expected thumbnail for %s", id)
		}
	}
	if len(updated) != 2 {
		t.Fatalf("expected two asset updates, got %v", updated)
	}
	if s := lib.pool.Stats(); s.Attached != 2 || s.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestPoolSkipsUnsupportedAndMissingAssets(t *testing.T) {
	lib := newLibrary(t, TextScanner{})
	dir := t.TempDir()
	img := filepath.Join(dir, "photo.png")
	writePNG(t, img, 8, 8)
	note := filepath.Join(dir, "note.txt")
	if err := os.WriteFile(note, []byte("beach trip"), 0o644); err != nil {
		t.Fatalf("write note: %v", err)
	}
	imageIDs := lib.importFiles(t, models.AssetImage, img)
	textIDs := lib.importFiles(t, models.AssetText, note)

	var mu sync.Mutex
	failed := map[string]error{}
	lib.coord.Register(notify.Funcs{Failure: func(id string, err error) {
		mu.Lock()
		failed[id] = err
		mu.Unlock()
	}}, nil)

	lib.coord.RequestTextScan(append(append(imageIDs, textIDs...), "as-gone"))
	lib.coord.Close()

	mu.Lock()
	defer mu.Unlock()
	if len(failed) != 1 || liberr.CodeOf(failed["as-gone"]) != liberr.CodeGeneratorRejected {
		t.Fatalf("expected only the missing asset to fail, got %v", failed)
	}
	a, err := lib.reader.GetAsset(context.Background(), textIDs[0])
	if err != nil {
		t.Fatalf("get text asset: %v", err)
	}
	if a.TextBlobID == "" {
		t.Fatal("expected text artifact attached")
	}
	if s := lib.pool.Stats(); s.Skipped != 1 || s.Attached != 1 {
		t.Fatalf("unexpected stats: %+v", s)
	}
}

func TestScheduleAfterCloseIsDropped(t *testing.T) {
	lib := newLibrary(t, Thumbnailer{})
	lib.pool.Close()
	lib.pool.Schedule(models.ArtifactThumbnail, []string{"as-1"})
	if s := lib.pool.Stats(); s != (Stats{}) {
		t.Fatalf("expected no work after close, got %+v", s)
	}
}
