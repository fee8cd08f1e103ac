package coordinator

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"shoebox/internal/blobstore"
	"shoebox/internal/liberr"
	"shoebox/internal/models"
	"shoebox/internal/notify"
	"shoebox/internal/store"
)

const waitTimeout = 5 * time.Second

type harness struct {
	t      *testing.T
	st     *store.Store
	reader *store.ReadHandle
	blobs  *blobstore.LocalCAS
	coord  *Coordinator
	notes  chan models.ChangeNotification
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

	h := &harness{
		t:      t,
		st:     st,
		reader: reader,
		blobs:  blobs,
		notes:  make(chan models.ChangeNotification, 64),
	}
	h.coord = New(st, nil, Options{QueueCapacity: 8, Blobs: blobs})
	h.coord.Register(notify.Funcs{Change: func(n models.ChangeNotification) { h.notes <- n }}, notify.Inline)
	t.Cleanup(func() {
		h.coord.Close()
		reader.Close()
		st.Close()
	})
	return h
}

func (h *harness) nextNote() models.ChangeNotification {
	h.t.Helper()
	select {
	case n := <-h.notes:
		return n
	case <-time.After(waitTimeout):
		h.t.Fatal("timed out waiting for change notification")
	}
	return models.ChangeNotification{}
}

func (h *harness) noNote() {
	h.t.Helper()
	select {
	case n := <-h.notes:
		h.t.Fatalf("expected no notification, got seq %d with %v", n.Seq(), n.EntityTypes())
	default:
	}
}

func wait[T any](t *testing.T, ch chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for callback")
	}
	var zero T
	return zero
}

type idsResult struct {
	ids []string
	err error
}

func (h *harness) importAssets(groupID string, identities ...string) []string {
	h.t.Helper()
	var cands []models.AssetCandidate
	for _, identity := range identities {
		cands = append(cands, models.AssetCandidate{
			SourceRef: "/photos/" + identity + ".png",
			Identity:  identity,
			Name:      identity + ".png",
			Kind:      models.AssetImage,
			MediaType: "image/png",
		})
	}
	ch := make(chan idsResult, 1)
	h.coord.ImportAssets(cands, groupID, func(ids []string, err error) { ch <- idsResult{ids, err} })
	res := wait(h.t, ch)
	if res.err != nil {
		h.t.Fatalf("import: %v", res.err)
	}
	return res.ids
}

func (h *harness) createGroup(name string) string {
	h.t.Helper()
	type result struct {
		id  string
		err error
	}
	ch := make(chan result, 1)
	h.coord.CreateGroup(name, func(id string, err error) { ch <- result{id, err} })
	res := wait(h.t, ch)
	if res.err != nil {
		h.t.Fatalf("create group: %v", res.err)
	}
	return res.id
}

func errCh() (chan error, func(error)) {
	ch := make(chan error, 1)
	return ch, func(err error) { ch <- err }
}

func (h *harness) asset(id string) *models.Asset {
	h.t.Helper()
	a, err := h.reader.GetAsset(context.Background(), id)
	if err != nil {
		h.t.Fatalf("get asset %s: %v", id, err)
	}
	return a
}

func TestImportAssetsCreatesAndNotifies(t *testing.T) {
	h := newHarness(t)

	ids := h.importAssets("", "b2b256:01", "b2b256:02")
	if len(ids) != 2 {
		t.Fatalf("expected 2 created ids, got %v", ids)
	}
	n := h.nextNote()
	if got := n.Inserted(models.EntityAsset); len(got) != 2 {
		t.Fatalf("expected 2 inserted assets, got %v", got)
	}
	if n.Seq() != 1 {
		t.Fatalf("expected first notification seq 1, got %d", n.Seq())
	}
}

func TestImportDuplicateIdentityCreatesNothing(t *testing.T) {
	h := newHarness(t)

	first := h.importAssets("", "b2b256:aa")
	h.nextNote()

	again := h.importAssets("", "b2b256:aa", "b2b256:aa")
	if len(again) != 0 {
		t.Fatalf("expected no new assets, got %v", again)
	}
	h.noNote()

	mixed := h.importAssets("", "b2b256:aa", "b2b256:bb")
	if len(mixed) != 1 {
		t.Fatalf("expected one new asset, got %v", mixed)
	}
	n := h.nextNote()
	inserted := n.Inserted(models.EntityAsset)
	if len(inserted) != 1 || inserted[0] == first[0] {
		t.Fatalf("expected insert-set to exclude the duplicate, got %v", inserted)
	}
}

func TestImportIntoUnknownGroupRollsBack(t *testing.T) {
	h := newHarness(t)

	ch := make(chan idsResult, 1)
	h.coord.ImportAssets([]models.AssetCandidate{{
		SourceRef: "/photos/x.png", Identity: "b2b256:x", Name: "x.png", Kind: models.AssetImage,
	}}, "gp-none", func(ids []string, err error) { ch <- idsResult{ids, err} })
	res := wait(t, ch)
	if !liberr.IsValidation(res.err) || liberr.CodeOf(res.err) != liberr.CodeGroupNotFound {
		t.Fatalf("expected group not found validation error, got %v", res.err)
	}
	exists, err := h.reader.AssetIdentityExists(context.Background(), "b2b256:x")
	if err != nil || exists {
		t.Fatalf("expected no asset after rollback, got %v (%v)", exists, err)
	}
	h.noNote()
}

func TestImportIntoGroupAddsMembers(t *testing.T) {
	h := newHarness(t)
	groupID := h.createGroup("Holiday")
	h.nextNote()

	ids := h.importAssets(groupID, "b2b256:g1", "b2b256:g2")
	n := h.nextNote()
	if len(n.Inserted(models.EntityAsset)) != 2 || len(n.Updated(models.EntityGroup)) != 1 {
		t.Fatalf("expected 2 asset inserts and a group update, got assets=%v groups=%v",
			n.Inserted(models.EntityAsset), n.Updated(models.EntityGroup))
	}
	group, err := h.reader.GetGroup(context.Background(), groupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if len(group.AssetIDs) != len(ids) {
		t.Fatalf("expected %d members, got %v", len(ids), group.AssetIDs)
	}
}

func TestCreateGroupValidation(t *testing.T) {
	h := newHarness(t)
	h.createGroup("Trips")
	h.nextNote()

	tests := []struct {
		name     string
		group    string
		wantCode int
	}{
		{name: "empty", group: "   ", wantCode: liberr.CodeInvalidName},
		{name: "duplicate", group: "Trips", wantCode: liberr.CodeNameConflict},
		{name: "duplicate ignoring case", group: " trips ", wantCode: liberr.CodeNameConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, done := errCh()
			h.coord.CreateGroup(tt.group, func(_ string, err error) { done(err) })
			err := wait(t, ch)
			if !liberr.IsValidation(err) || liberr.CodeOf(err) != tt.wantCode {
				t.Fatalf("expected validation code %d, got %v", tt.wantCode, err)
			}
		})
	}
	h.noNote()
}

func TestRenameAndDeleteGroup(t *testing.T) {
	h := newHarness(t)
	a := h.createGroup("Alpha")
	b := h.createGroup("Beta")
	ids := h.importAssets(a, "b2b256:r1")
	for i := 0; i < 3; i++ {
		h.nextNote()
	}

	ch, done := errCh()
	h.coord.RenameGroup(a, "beta", done)
	if err := wait(t, ch); liberr.CodeOf(err) != liberr.CodeNameConflict {
		t.Fatalf("expected name conflict, got %v", err)
	}
	h.coord.RenameGroup(a, "Alpha Prime", done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if n := h.nextNote(); len(n.Updated(models.EntityGroup)) != 1 {
		t.Fatalf("expected group update, got %v", n.Updated(models.EntityGroup))
	}

	h.coord.DeleteGroup(b, done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if n := h.nextNote(); len(n.Deleted(models.EntityGroup)) != 1 {
		t.Fatalf("expected group delete, got %v", n.Deleted(models.EntityGroup))
	}
	h.coord.DeleteGroup(b, done)
	if err := wait(t, ch); liberr.CodeOf(err) != liberr.CodeGroupNotFound {
		t.Fatalf("expected group not found, got %v", err)
	}

	h.coord.DeleteGroup(a, done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("delete non-empty group: %v", err)
	}
	if h.asset(ids[0]) == nil {
		t.Fatal("expected member asset to survive group deletion")
	}
}

func TestAddThenRemoveRestoresMembership(t *testing.T) {
	h := newHarness(t)
	groupID := h.createGroup("Set")
	ids := h.importAssets(groupID, "b2b256:m1")
	other := h.importAssets("", "b2b256:m2")
	for i := 0; i < 3; i++ {
		h.nextNote()
	}

	before, err := h.reader.GetGroup(context.Background(), groupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}

	ch, done := errCh()
	h.coord.AddAssetsToGroup(other, groupID, done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("add: %v", err)
	}
	h.coord.RemoveAssetsFromGroup(other, groupID, done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("remove: %v", err)
	}

	after, err := h.reader.GetGroup(context.Background(), groupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if fmt.Sprint(before.AssetIDs) != fmt.Sprint(after.AssetIDs) || fmt.Sprint(after.AssetIDs) != fmt.Sprint(ids) {
		t.Fatalf("expected membership %v restored, got %v", before.AssetIDs, after.AssetIDs)
	}
}

func TestMembershipRejectsUnknownIDsAtomically(t *testing.T) {
	h := newHarness(t)
	groupID := h.createGroup("Strict")
	ids := h.importAssets("", "b2b256:u1")
	h.nextNote()
	h.nextNote()

	ch, done := errCh()
	h.coord.AddAssetsToGroup([]string{ids[0], "as-zzzz"}, groupID, done)
	err := wait(t, ch)
	if !liberr.IsValidation(err) || liberr.CodeOf(err) != liberr.CodeAssetNotFound {
		t.Fatalf("expected asset not found, got %v", err)
	}
	group, gerr := h.reader.GetGroup(context.Background(), groupID)
	if gerr != nil {
		t.Fatalf("get group: %v", gerr)
	}
	if len(group.AssetIDs) != 0 {
		t.Fatalf("expected no partial membership change, got %v", group.AssetIDs)
	}

	h.coord.AddAssetsToGroup(ids, "gp-none", done)
	if err := wait(t, ch); liberr.CodeOf(err) != liberr.CodeGroupNotFound {
		t.Fatalf("expected group not found, got %v", err)
	}
	h.noNote()
}

func TestSetFavouriteReportsState(t *testing.T) {
	h := newHarness(t)
	ids := h.importAssets("", "b2b256:f1", "b2b256:f2")
	h.nextNote()

	type result struct {
		state bool
		err   error
	}
	ch := make(chan result, 1)
	h.coord.SetFavourite(ids, true, func(state bool, err error) { ch <- result{state, err} })
	res := wait(t, ch)
	if res.err != nil || !res.state {
		t.Fatalf("expected state true, got %+v", res)
	}
	if n := h.nextNote(); len(n.Updated(models.EntityAsset)) != 2 {
		t.Fatalf("expected 2 updated assets, got %v", n.Updated(models.EntityAsset))
	}

	h.coord.SetFavourite(ids, true, func(state bool, err error) { ch <- result{state, err} })
	if res := wait(t, ch); res.err != nil {
		t.Fatalf("repeat favourite: %v", res.err)
	}
	h.noNote()
}

func TestToggleSoftDeleteTwiceRestores(t *testing.T) {
	h := newHarness(t)
	ids := h.importAssets("", "b2b256:t1")
	h.nextNote()

	ch, done := errCh()
	h.coord.ToggleSoftDelete(ids, done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !h.asset(ids[0]).SoftDeleted {
		t.Fatal("expected asset soft-deleted after first toggle")
	}
	h.coord.ToggleSoftDelete(ids, done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if h.asset(ids[0]).SoftDeleted {
		t.Fatal("expected original flag after second toggle")
	}
}

func TestConcurrentRequestsApplySequentially(t *testing.T) {
	h := newHarness(t)
	ids := h.importAssets("", "b2b256:c1")
	h.nextNote()

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch, done := errCh()
			h.coord.ToggleSoftDelete(ids, done)
			errs <- <-ch
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	if h.asset(ids[0]).SoftDeleted {
		t.Fatal("expected an even number of toggles to restore the flag")
	}
	var last uint64
	for i := 0; i < workers; i++ {
		n := h.nextNote()
		if n.Seq() <= last {
			t.Fatalf("expected increasing sequence numbers, got %d after %d", n.Seq(), last)
		}
		last = n.Seq()
	}
}

func TestSubmissionOrderIsPreserved(t *testing.T) {
	h := newHarness(t)
	ids := h.importAssets("", "b2b256:o1")
	h.nextNote()

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		i := i
		wg.Add(1)
		h.coord.SetFavourite(ids, i%2 == 0, func(bool, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	for i, v := range order {
		if v != i {
			t.Fatalf("expected callbacks in submission order, got %v", order)
		}
	}
	if h.asset(ids[0]).Favourite {
		t.Fatal("expected last request (false) to win")
	}
}

func TestEmptyTrashRemovesOnlyFlagged(t *testing.T) {
	h := newHarness(t)
	groupID := h.createGroup("Mixed")
	ids := h.importAssets(groupID, "b2b256:e1", "b2b256:e2")
	h.nextNote()
	h.nextNote()

	trashed, kept := ids[0], ids[1]
	ch, done := errCh()
	h.coord.ToggleSoftDelete([]string{trashed}, done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	h.nextNote()

	type result struct {
		ids []string
		err error
	}
	res := make(chan result, 1)
	h.coord.EmptyTrash(func(deleted []string, err error) { res <- result{deleted, err} })
	got := wait(t, res)
	if got.err != nil {
		t.Fatalf("empty trash: %v", got.err)
	}
	if len(got.ids) != 1 || got.ids[0] != trashed {
		t.Fatalf("expected only %s deleted, got %v", trashed, got.ids)
	}
	n := h.nextNote()
	if del := n.Deleted(models.EntityAsset); len(del) != 1 || del[0] != trashed {
		t.Fatalf("expected asset delete of %s, got %v", trashed, del)
	}
	if h.asset(trashed) != nil || h.asset(kept) == nil {
		t.Fatal("expected trashed asset gone and unflagged asset kept")
	}
	group, err := h.reader.GetGroup(context.Background(), groupID)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if len(group.AssetIDs) != 1 || group.AssetIDs[0] != kept {
		t.Fatalf("expected trashed asset removed from group, got %v", group.AssetIDs)
	}

	h.coord.EmptyTrash(func(deleted []string, err error) { res <- result{deleted, err} })
	if got := wait(t, res); got.err != nil || len(got.ids) != 0 {
		t.Fatalf("expected empty second pass, got %+v", got)
	}
	h.noNote()
}

func TestTagsCreatedByNameAndRemoved(t *testing.T) {
	h := newHarness(t)
	ids := h.importAssets("", "b2b256:tg1")
	h.nextNote()

	type result struct {
		ids []string
		err error
	}
	res := make(chan result, 1)
	h.coord.AddAssetsToTags(ids, []string{"Beach", "sunset"}, func(tagIDs []string, err error) { res <- result{tagIDs, err} })
	first := wait(t, res)
	if first.err != nil || len(first.ids) != 2 {
		t.Fatalf("expected two tags, got %+v", first)
	}
	if n := h.nextNote(); len(n.Inserted(models.EntityTag)) != 2 {
		t.Fatalf("expected 2 inserted tags, got %v", n.Inserted(models.EntityTag))
	}

	h.coord.AddAssetsToTags(ids, []string{" BEACH "}, func(tagIDs []string, err error) { res <- result{tagIDs, err} })
	again := wait(t, res)
	if again.err != nil || len(again.ids) != 1 || again.ids[0] != first.ids[0] {
		t.Fatalf("expected existing tag %s reused, got %+v", first.ids[0], again)
	}
	h.noNote()

	ch, done := errCh()
	h.coord.RemoveTagsFromAssets([]string{first.ids[0]}, ids, done)
	if err := wait(t, ch); err != nil {
		t.Fatalf("remove tags: %v", err)
	}
	if n := h.nextNote(); len(n.Updated(models.EntityTag)) != 1 {
		t.Fatalf("expected one tag update, got %v", n.Updated(models.EntityTag))
	}

	h.coord.RemoveTagsFromAssets([]string{"tg-none"}, ids, done)
	if err := wait(t, ch); liberr.CodeOf(err) != liberr.CodeTagNotFound {
		t.Fatalf("expected tag not found, got %v", err)
	}
}

func TestAttachArtifactAndCollectGarbage(t *testing.T) {
	h := newHarness(t)
	ids := h.importAssets("", "b2b256:a1")
	h.nextNote()

	type attachResult struct {
		id  string
		err error
	}
	ch := make(chan attachResult, 1)
	attach := func(data string) attachResult {
		h.coord.AttachArtifact(ids[0], models.GeneratedArtifact{
			Kind: models.ArtifactThumbnail, MediaType: "image/png", Data: []byte(data),
		}, func(id string, err error) { ch <- attachResult{id, err} })
		return wait(t, ch)
	}

	first := attach("png-1")
	if first.err != nil {
		t.Fatalf("attach: %v", first.err)
	}
	if h.asset(ids[0]).ThumbnailBlobID != first.id {
		t.Fatalf("expected thumbnail %s attached", first.id)
	}
	if n := h.nextNote(); len(n.Updated(models.EntityAsset)) != 1 {
		t.Fatalf("expected asset update, got %v", n.Updated(models.EntityAsset))
	}

	second := attach("png-2")
	if second.err != nil || second.id == first.id {
		t.Fatalf("expected a new blob, got %+v", second)
	}
	h.nextNote()

	type gcRes struct {
		res models.GCResult
		err error
	}
	gc := make(chan gcRes, 1)
	h.coord.CollectGarbage(func(res models.GCResult, err error) { gc <- gcRes{res, err} })
	got := wait(t, gc)
	if got.err != nil {
		t.Fatalf("gc: %v", got.err)
	}
	if got.res.BlobsRemoved != 1 || got.res.BlobIDs[0] != first.id || got.res.BytesFreed != 5 {
		t.Fatalf("expected first blob collected, got %+v", got.res)
	}
	if blob, _ := h.reader.GetBlob(context.Background(), second.id); blob == nil {
		t.Fatal("expected referenced blob to survive gc")
	}

	missing := make(chan attachResult, 1)
	h.coord.AttachArtifact("as-none", models.GeneratedArtifact{Kind: models.ArtifactText, Data: []byte("x")},
		func(id string, err error) { missing <- attachResult{id, err} })
	if res := wait(t, missing); liberr.CodeOf(res.err) != liberr.CodeAssetNotFound {
		t.Fatalf("expected asset not found, got %v", res.err)
	}
}

type failingAttachStore struct {
	*store.Store
}

func (s failingAttachStore) Begin(ctx context.Context) (store.Unit, error) {
	u, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return failingAttachUnit{Unit: u}, nil
}

type failingAttachUnit struct {
	store.Unit
}

func (failingAttachUnit) SetAssetArtifact(context.Context, string, models.ArtifactKind, string, time.Time) error {
	return errors.New("disk full")
}

func casKey(data string) string {
	sum := sha256.Sum256([]byte(data))
	digest := hex.EncodeToString(sum[:])
	return fmt.Sprintf("sha256/%s/%s/%s", digest[0:2], digest[2:4], digest)
}

func TestAttachRollbackRemovesFreshObject(t *testing.T) {
	h := newHarness(t)
	ids := h.importAssets("", "b2b256:r1")
	h.nextNote()

	kept := make(chan error, 1)
	h.coord.AttachArtifact(ids[0], models.GeneratedArtifact{
		Kind: models.ArtifactThumbnail, MediaType: "image/png", Data: []byte("shared"),
	}, func(_ string, err error) { kept <- err })
	if err := wait(t, kept); err != nil {
		t.Fatalf("attach: %v", err)
	}
	h.nextNote()

	failing := New(failingAttachStore{Store: h.st}, nil, Options{Blobs: h.blobs})
	defer failing.Close()
	attach := func(data string) error {
		ch := make(chan error, 1)
		failing.AttachArtifact(ids[0], models.GeneratedArtifact{
			Kind: models.ArtifactText, MediaType: "text/plain", Data: []byte(data),
		}, func(_ string, err error) { ch <- err })
		return wait(t, ch)
	}

	if err := attach("fresh"); !liberr.IsStore(err) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if _, err := h.blobs.Open(context.Background(), casKey("fresh")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected fresh object removed after rollback, got %v", err)
	}

	if err := attach("shared"); !liberr.IsStore(err) {
		t.Fatalf("expected store failure, got %v", err)
	}
	rc, err := h.blobs.Open(context.Background(), casKey("shared"))
	if err != nil {
		t.Fatalf("expected referenced object kept after rollback: %v", err)
	}
	rc.Close()
}

func TestObserverMayCallBackIntoCoordinator(t *testing.T) {
	h := newHarness(t)
	results := make(chan error, 1)
	var once sync.Once
	h.coord.Register(notify.Funcs{Change: func(n models.ChangeNotification) {
		inserted := n.Inserted(models.EntityAsset)
		if len(inserted) == 0 {
			return
		}
		once.Do(func() {
			done := make(chan error, 1)
			h.coord.SetFavourite(inserted, true, func(_ bool, err error) { done <- err })
			results <- <-done
		})
	}}, nil)

	ids := h.importAssets("", "b2b256:cb1")
	if err := wait(t, results); err != nil {
		t.Fatalf("favourite from observer: %v", err)
	}
	if !h.asset(ids[0]).Favourite {
		t.Fatal("expected favourite set by observer request")
	}
}

func TestRequestsAfterCloseFail(t *testing.T) {
	h := newHarness(t)
	if err := h.coord.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	ch, done := errCh()
	h.coord.ToggleSoftDelete([]string{"as-x"}, done)
	err := wait(t, ch)
	if !errors.Is(err, liberr.ErrClosed) || !liberr.IsStore(err) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := h.coord.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestCloseDrainsQueuedRequests(t *testing.T) {
	h := newHarness(t)

	var mu sync.Mutex
	calls := 0
	for i := 0; i < 20; i++ {
		h.coord.CreateGroup(fmt.Sprintf("group-%02d", i), func(string, error) {
			mu.Lock()
			calls++
			mu.Unlock()
		})
	}
	h.coord.Close()

	mu.Lock()
	defer mu.Unlock()
	if calls != 20 {
		t.Fatalf("expected every callback before Close returned, got %d", calls)
	}
	groups, err := h.reader.ListGroups(context.Background())
	if err != nil {
		t.Fatalf("list groups: %v", err)
	}
	if len(groups) != 20 {
		t.Fatalf("expected 20 groups, got %d", len(groups))
	}
}

type fakeScheduler struct {
	mu     sync.Mutex
	calls  map[models.ArtifactKind][]string
	closed bool
}

func (f *fakeScheduler) Schedule(kind models.ArtifactKind, ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[models.ArtifactKind][]string{}
	}
	f.calls[kind] = append(f.calls[kind], ids...)
}

func (f *fakeScheduler) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func TestRequestArtifactsUsesScheduler(t *testing.T) {
	h := newHarness(t)
	sched := &fakeScheduler{}
	h.coord.SetArtifactScheduler(sched)

	h.coord.RequestThumbnails([]string{"as-2", "as-1", "as-1"})
	h.coord.RequestTextScan([]string{"as-3"})
	h.coord.RequestTextScan(nil)
	h.coord.Close()

	sched.mu.Lock()
	defer sched.mu.Unlock()
	if fmt.Sprint(sched.calls[models.ArtifactThumbnail]) != "[as-1 as-2]" {
		t.Fatalf("unexpected thumbnail requests: %v", sched.calls[models.ArtifactThumbnail])
	}
	if fmt.Sprint(sched.calls[models.ArtifactText]) != "[as-3]" {
		t.Fatalf("unexpected text requests: %v", sched.calls[models.ArtifactText])
	}
	if !sched.closed {
		t.Fatal("expected Close to close the scheduler")
	}
}

func TestReportArtifactFailureClassifies(t *testing.T) {
	h := newHarness(t)
	failures := make(chan error, 1)
	h.coord.Register(notify.Funcs{Failure: func(id string, err error) { failures <- err }}, nil)

	h.coord.ReportArtifactFailure("as-b", liberr.Access("/missing.png", errors.New("gone"), liberr.CodeSourceMissing))
	err := wait(t, failures)
	if !liberr.IsArtifact(err) || !errors.As(err, new(*liberr.Error)) {
		t.Fatalf("expected artifact error, got %v", err)
	}
	var inner *liberr.Error
	if !errors.As(errors.Unwrap(err), &inner) || inner.Kind != liberr.KindAccess {
		t.Fatalf("expected access cause to stay reachable, got %v", err)
	}
}
