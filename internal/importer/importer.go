// Package importer prepares source files for the library: it filters out
// unsupported types, reads each file under a sandbox grant to compute its
// content identity, drops duplicates, and submits one batched import to the
// write coordinator.
package importer

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"

	"shoebox/internal/access"
	"shoebox/internal/liberr"
	"shoebox/internal/models"
)

// IdentityPrefix marks the hash algorithm in content identities.
const IdentityPrefix = "b2b256:"

// Writer is the part of the write coordinator the importer submits to.
type Writer interface {
	ImportAssets(candidates []models.AssetCandidate, groupID string, done func(createdIDs []string, err error))
	RequestThumbnails(assetIDs []string)
	RequestTextScan(assetIDs []string)
}

// IdentityChecker answers whether a content identity is already stored.
type IdentityChecker interface {
	AssetIdentityExists(ctx context.Context, identity string) (bool, error)
}

// Result describes one import. Only Created reached the store.
type Result struct {
	Created     []string `json:"created" yaml:"created"`
	Unsupported []string `json:"unsupported,omitempty" yaml:"unsupported,omitempty"`
	Unreadable  []string `json:"unreadable,omitempty" yaml:"unreadable,omitempty"`
	Duplicates  int      `json:"duplicates" yaml:"duplicates"`
}

// Importer runs imports on its own goroutines so hashing never happens on
// the writer.
type Importer struct {
	writer   Writer
	reader   IdentityChecker
	resolver access.Resolver
	logger   *slog.Logger

	wg sync.WaitGroup
}

func New(writer Writer, reader IdentityChecker, resolver access.Resolver) *Importer {
	return &Importer{
		writer:   writer,
		reader:   reader,
		resolver: resolver,
		logger:   slog.Default().With("component", "importer"),
	}
}

// Import imports refs, optionally into groupID, and calls done exactly once.
// Already-imported content is skipped silently. On success thumbnails and
// text scans are requested for the created assets before done runs; done
// does not wait for them.
func (i *Importer) Import(ctx context.Context, refs []string, groupID string, done func(Result, error)) {
	i.wg.Add(1)
	finish := func(res Result, err error) {
		defer i.wg.Done()
		if done != nil {
			done(res, err)
		}
	}
	go i.run(ctx, refs, groupID, finish)
}

// ImportDirectory imports every regular file beneath root. Hidden files and
// directories are ignored.
func (i *Importer) ImportDirectory(ctx context.Context, root, groupID string, done func(Result, error)) {
	refs, err := CollectFiles(root)
	if err != nil {
		if done != nil {
			done(Result{}, liberr.Access(root, err, liberr.CodeAccessDenied))
		}
		return
	}
	i.Import(ctx, refs, groupID, done)
}

// Wait blocks until every started import has finished, including its done
// callback. Call it before closing the writer.
func (i *Importer) Wait() {
	i.wg.Wait()
}

func (i *Importer) run(ctx context.Context, refs []string, groupID string, done func(Result, error)) {
	var res Result
	supported, rejected := RemoveUnsupported(refs)
	res.Unsupported = rejected

	candidates, err := i.prepare(ctx, supported, &res)
	if err != nil {
		done(res, err)
		return
	}

	i.logger.Debug("submitting import", "candidates", len(candidates), "unsupported", len(res.Unsupported),
		"unreadable", len(res.Unreadable), "duplicates", res.Duplicates)
	i.writer.ImportAssets(candidates, groupID, func(created []string, err error) {
		if err != nil {
			done(res, err)
			return
		}
		res.Duplicates += len(candidates) - len(created)
		res.Created = created
		if len(created) > 0 {
			i.writer.RequestThumbnails(created)
			i.writer.RequestTextScan(created)
		}
		done(res, nil)
	})
}

func (i *Importer) prepare(ctx context.Context, refs []string, res *Result) ([]models.AssetCandidate, error) {
	seen := make(map[string]struct{}, len(refs))
	candidates := make([]models.AssetCandidate, 0, len(refs))
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, liberr.Store(err, liberr.CodeQueueRejected)
		}
		cand, err := i.candidate(ctx, ref)
		if err != nil {
			if !liberr.IsAccess(err) {
				return nil, err
			}
			i.logger.Warn("skipping unreadable source", "ref", ref, "code", liberr.CodeOf(err), "error", err)
			res.Unreadable = append(res.Unreadable, ref)
			continue
		}

		if _, dup := seen[cand.Identity]; dup {
			res.Duplicates++
			continue
		}
		seen[cand.Identity] = struct{}{}

		exists, err := i.reader.AssetIdentityExists(ctx, cand.Identity)
		if err != nil {
			return nil, liberr.Store(fmt.Errorf("check identity: %w", err), liberr.CodeStoreFailure)
		}
		if exists {
			res.Duplicates++
			continue
		}
		candidates = append(candidates, cand)
	}
	return candidates, nil
}

func (i *Importer) candidate(ctx context.Context, ref string) (models.AssetCandidate, error) {
	kind, mediaType, _ := Classify(ref)
	cand := models.AssetCandidate{
		Name:      filepath.Base(ref),
		Kind:      kind,
		MediaType: mediaType,
	}
	err := access.With(ctx, i.resolver, ref, func(tok *access.Token) error {
		identity, size, err := ContentIdentity(tok)
		if err != nil {
			return err
		}
		cand.SourceRef = tok.Path()
		cand.Identity = identity
		cand.SizeBytes = size
		return nil
	})
	return cand, err
}

// ContentIdentity hashes the token's file with BLAKE2b-256.
func ContentIdentity(tok *access.Token) (string, int64, error) {
	f, err := tok.Open()
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", 0, err
	}
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, liberr.Access(tok.Ref(), fmt.Errorf("read source: %w", err), liberr.CodeAccessDenied)
	}
	return IdentityPrefix + hex.EncodeToString(h.Sum(nil)), n, nil
}

// CollectFiles lists regular files beneath root in lexical order.
func CollectFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
