package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"shoebox/internal/access"
	"shoebox/internal/artifact"
	"shoebox/internal/blobstore"
	"shoebox/internal/config"
	"shoebox/internal/coordinator"
	"shoebox/internal/importer"
	"shoebox/internal/liberr"
	"shoebox/internal/notify"
	"shoebox/internal/search"
	"shoebox/internal/store"
)

// library is one open shoebox library and the components driving it.
type library struct {
	cfg      *config.Config
	store    *store.Store
	reader   *store.ReadHandle
	blobs    *blobstore.LocalCAS
	coord    *coordinator.Coordinator
	pool     *artifact.Pool
	importer *importer.Importer
	index    *search.Index
	observed *notify.Queue

	mu       sync.Mutex
	failures []generationFailure
}

type generationFailure struct {
	AssetID string `json:"asset_id" yaml:"asset_id"`
	Code    int    `json:"code" yaml:"code"`
	Message string `json:"message" yaml:"message"`
}

func withLibrary(cfg *config.Config, fn func(*library) error) error {
	lib, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	runErr := fn(lib)
	closeErr := lib.close()
	if runErr != nil {
		return runErr
	}
	return closeErr
}

func openLibrary(cfg *config.Config) (*library, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config not initialized")
	}
	if err := os.MkdirAll(cfg.LibraryPath, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}
	logger := slog.Default().With("component", "library")
	logger.Debug("opening library", "path", cfg.LibraryPath)

	lib := &library{cfg: cfg}
	var err error
	if lib.store, err = store.Open(cfg.DBPath()); err != nil {
		return nil, err
	}
	if lib.reader, err = lib.store.OpenReader(); err != nil {
		lib.store.Close()
		return nil, err
	}
	if lib.blobs, err = blobstore.NewLocalCAS(cfg.ArtifactsPath()); err != nil {
		lib.reader.Close()
		lib.store.Close()
		return nil, err
	}
	resolver, err := access.NewFSResolver(cfg.AllowedRoots)
	if err != nil {
		lib.reader.Close()
		lib.store.Close()
		return nil, err
	}

	lib.coord = coordinator.New(lib.store, nil, coordinator.Options{
		QueueCapacity: cfg.Writer.QueueCapacity,
		Blobs:         lib.blobs,
	})
	lib.pool = artifact.NewPool(
		artifact.PoolConfig{Workers: cfg.Artifacts.Workers, QueueCapacity: cfg.Artifacts.QueueCapacity},
		lib.reader, resolver, lib.coord,
		artifact.Thumbnailer{MaxEdge: cfg.Artifacts.ThumbnailMaxEdge, MaxPixels: cfg.Artifacts.MaxImagePixels},
		artifact.TextScanner{MaxBytes: cfg.Artifacts.TextMaxBytes, MaxPixels: cfg.Artifacts.MaxImagePixels},
	)
	lib.coord.SetArtifactScheduler(lib.pool)
	lib.importer = importer.New(lib.coord, lib.reader, resolver)

	lib.observed = notify.NewQueue("cli-observers")
	lib.coord.Register(notify.Funcs{Failure: lib.recordFailure}, lib.observed)

	if cfg.Search.Enabled {
		lib.index, err = search.Open(cfg.IndexPath(), lib.reader, lib.blobs)
		if err != nil {
			logger.Warn("search index unavailable", "error", err)
		} else {
			lib.coord.Register(lib.index, lib.observed)
		}
	}
	return lib, nil
}

func (l *library) recordFailure(assetID string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.failures = append(l.failures, generationFailure{AssetID: assetID, Code: liberr.CodeOf(err), Message: err.Error()})
}

// close drains imports, generators, the writer and observers, in that order.
func (l *library) close() error {
	l.importer.Wait()
	err := l.coord.Close()
	l.observed.Close()
	if l.index != nil {
		if cerr := l.index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	l.reportFailures()
	if cerr := l.reader.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if cerr := l.store.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// reportFailures prints artifact generation failures as warnings. They are
// never operation failures.
func (l *library) reportFailures() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, f := range l.failures {
		fmt.Fprintf(os.Stderr, "warning: artifact generation failed for %s: %s\n", f.AssetID, f.Message)
	}
}

// await adapts a coordinator operation to a blocking call.
func await[T any](op func(done func(T, error))) (T, error) {
	type result struct {
		value T
		err   error
	}
	ch := make(chan result, 1)
	op(func(v T, err error) { ch <- result{v, err} })
	res := <-ch
	return res.value, res.err
}

// awaitErr is await for operations that only report an error.
func awaitErr(op func(done func(error))) error {
	_, err := await(func(done func(struct{}, error)) {
		op(func(err error) { done(struct{}{}, err) })
	})
	return err
}

func (l *library) importRefs(ctx context.Context, refs []string, groupID string) (importer.Result, error) {
	return await(func(done func(importer.Result, error)) {
		l.importer.Import(ctx, refs, groupID, done)
	})
}
