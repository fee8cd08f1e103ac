// Package watch imports files dropped into configured folders. Events are
// debounced so a file still being written is imported once, after it
// settles.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"shoebox/internal/importer"
)

// DefaultDebounce is the quiet period before pending files are imported.
const DefaultDebounce = 500 * time.Millisecond

// Importer is the part of the import coordinator the watcher drives.
type Importer interface {
	Import(ctx context.Context, refs []string, groupID string, done func(importer.Result, error))
}

type Config struct {
	Folders []string
	GroupID string
	// Debounce defaults to DefaultDebounce.
	Debounce time.Duration
	// ImportExisting imports supported files already in the folders on start.
	ImportExisting bool
	// OnImport is called with each batch outcome, on the importer's callback.
	OnImport func(importer.Result, error)
}

type Watcher struct {
	imp    Importer
	cfg    Config
	logger *slog.Logger
}

func New(imp Importer, cfg Config) *Watcher {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	return &Watcher{imp: imp, cfg: cfg, logger: slog.Default().With("component", "watch")}
}

// Run watches until ctx is cancelled. Pending files are flushed on exit.
func (w *Watcher) Run(ctx context.Context) error {
	if len(w.cfg.Folders) == 0 {
		return fmt.Errorf("no folders to watch")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	for _, folder := range w.cfg.Folders {
		if err := fw.Add(folder); err != nil {
			return fmt.Errorf("watch %s: %w", folder, err)
		}
		w.logger.Info("watching folder", "path", folder)
	}

	pending := map[string]struct{}{}
	if w.cfg.ImportExisting {
		for _, folder := range w.cfg.Folders {
			entries, err := os.ReadDir(folder)
			if err != nil {
				return fmt.Errorf("read %s: %w", folder, err)
			}
			for _, e := range entries {
				path := filepath.Join(folder, e.Name())
				if e.Type().IsRegular() && candidate(path) {
					pending[path] = struct{}{}
				}
			}
		}
		w.flush(ctx, pending)
	}

	timer := time.NewTimer(w.cfg.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !candidate(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				pending[event.Name] = struct{}{}
				timer.Reset(w.cfg.Debounce)
			}
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				delete(pending, event.Name)
			}

		case <-timer.C:
			w.flush(ctx, pending)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)

		case <-ctx.Done():
			w.flush(context.WithoutCancel(ctx), pending)
			return nil
		}
	}
}

func (w *Watcher) flush(ctx context.Context, pending map[string]struct{}) {
	if len(pending) == 0 {
		return
	}
	refs := make([]string, 0, len(pending))
	for path := range pending {
		refs = append(refs, path)
		delete(pending, path)
	}
	sort.Strings(refs)

	w.logger.Info("importing dropped files", "count", len(refs))
	w.imp.Import(ctx, refs, w.cfg.GroupID, func(res importer.Result, err error) {
		if err != nil {
			w.logger.Warn("drop folder import failed", "files", len(refs), "error", err)
		} else {
			w.logger.Info("drop folder import finished", "created", len(res.Created), "duplicates", res.Duplicates)
		}
		if w.cfg.OnImport != nil {
			w.cfg.OnImport(res, err)
		}
	})
}

// candidate filters out hidden and temporary files and unsupported types.
func candidate(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "~") {
		return false
	}
	_, _, ok := importer.Classify(path)
	return ok
}
