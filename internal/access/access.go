// Package access turns persisted source references into scoped read grants.
// Every read of a file outside the library's own storage goes through a
// Token, and every Token is released when its scope ends.
package access

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"shoebox/internal/liberr"
)

var (
	ErrOutsideRoots = errors.New("path is outside the allowed roots")
	ErrNotRegular   = errors.New("not a regular file")
	ErrReleased     = errors.New("access token already released")
)

// Resolver grants read access to a source reference.
type Resolver interface {
	Acquire(ctx context.Context, ref string) (*Token, error)
}

// Token is a read grant for one resolved source. Release is idempotent;
// Open fails once the token has been released.
type Token struct {
	ref  string
	path string
	size int64

	mu        sync.Mutex
	released  bool
	onRelease func()
}

// NewToken builds a token for an already-resolved path. onRelease runs once.
func NewToken(ref, path string, size int64, onRelease func()) *Token {
	return &Token{ref: ref, path: path, size: size, onRelease: onRelease}
}

func (t *Token) Ref() string  { return t.ref }
func (t *Token) Path() string { return t.path }
func (t *Token) Size() int64  { return t.size }

// Open opens the granted file for reading.
func (t *Token) Open() (*os.File, error) {
	t.mu.Lock()
	released := t.released
	t.mu.Unlock()
	if released {
		return nil, liberr.Access(t.ref, ErrReleased, liberr.CodeAccessRevoked)
	}
	f, err := os.Open(t.path)
	if err != nil {
		return nil, classifyOSError(t.ref, err)
	}
	return f, nil
}

// Release ends the grant.
func (t *Token) Release() {
	if t == nil {
		return
	}
	t.mu.Lock()
	if t.released {
		t.mu.Unlock()
		return
	}
	t.released = true
	fn := t.onRelease
	t.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Released reports whether Release has been called.
func (t *Token) Released() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.released
}

// With acquires ref, runs fn with the token, and releases the token on every
// exit path including a panic in fn.
func With(ctx context.Context, r Resolver, ref string, fn func(*Token) error) error {
	if r == nil {
		return liberr.Access(ref, fmt.Errorf("no access resolver configured"), liberr.CodeAccessDenied)
	}
	tok, err := r.Acquire(ctx, ref)
	if err != nil {
		return err
	}
	defer tok.Release()
	return fn(tok)
}

// FSResolver grants access to regular files on the local filesystem that
// sit beneath one of its roots. With no roots every path is allowed.
type FSResolver struct {
	roots []string

	mu     sync.Mutex
	active int
}

// NewFSResolver returns a resolver restricted to roots.
func NewFSResolver(roots []string) (*FSResolver, error) {
	r := &FSResolver{}
	for _, root := range roots {
		root = strings.TrimSpace(root)
		if root == "" {
			continue
		}
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %q: %w", root, err)
		}
		r.roots = append(r.roots, filepath.Clean(abs))
	}
	return r, nil
}

// Roots returns the configured roots.
func (r *FSResolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

// Active returns the number of tokens not yet released.
func (r *FSResolver) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Acquire resolves ref to an absolute path and grants it when allowed.
func (r *FSResolver) Acquire(ctx context.Context, ref string) (*Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, liberr.Access(ref, err, liberr.CodeAccessDenied)
	}
	if strings.TrimSpace(ref) == "" {
		return nil, liberr.Access(ref, fmt.Errorf("source reference is required"), liberr.CodeAccessDenied)
	}
	abs, err := filepath.Abs(ref)
	if err != nil {
		return nil, liberr.Access(ref, err, liberr.CodeAccessDenied)
	}
	abs = filepath.Clean(abs)
	if !r.allowed(abs) {
		return nil, liberr.Access(ref, ErrOutsideRoots, liberr.CodeAccessDenied)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, classifyOSError(ref, err)
	}
	if !info.Mode().IsRegular() {
		return nil, liberr.Access(ref, ErrNotRegular, liberr.CodeAccessDenied)
	}

	r.mu.Lock()
	r.active++
	r.mu.Unlock()
	return NewToken(ref, abs, info.Size(), func() {
		r.mu.Lock()
		r.active--
		r.mu.Unlock()
	}), nil
}

func (r *FSResolver) allowed(path string) bool {
	if len(r.roots) == 0 {
		return true
	}
	for _, root := range r.roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

func classifyOSError(ref string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return liberr.Access(ref, err, liberr.CodeSourceMissing)
	default:
		return liberr.Access(ref, err, liberr.CodeAccessDenied)
	}
}
