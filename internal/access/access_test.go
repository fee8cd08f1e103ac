package access

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"shoebox/internal/liberr"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestFSResolverAcquireWithinRoots(t *testing.T) {
	allowed := t.TempDir()
	other := t.TempDir()
	inside := writeFile(t, allowed, "a.txt", "hello")
	outside := writeFile(t, other, "b.txt", "nope")

	r, err := NewFSResolver([]string{allowed})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	tests := []struct {
		name     string
		ref      string
		wantCode int
	}{
		{name: "inside root", ref: inside},
		{name: "outside root", ref: outside, wantCode: liberr.CodeAccessDenied},
		{name: "missing", ref: filepath.Join(allowed, "missing.txt"), wantCode: liberr.CodeSourceMissing},
		{name: "directory", ref: allowed, wantCode: liberr.CodeAccessDenied},
		{name: "empty", ref: "", wantCode: liberr.CodeAccessDenied},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, err := r.Acquire(context.Background(), tt.ref)
			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("acquire: %v", err)
				}
				tok.Release()
				return
			}
			if !liberr.IsAccess(err) {
				t.Fatalf("expected access error, got %v", err)
			}
			if got := liberr.CodeOf(err); got != tt.wantCode {
				t.Fatalf("expected code %d, got %d", tt.wantCode, got)
			}
		})
	}
}

func TestFSResolverUnrestrictedWithoutRoots(t *testing.T) {
	path := writeFile(t, t.TempDir(), "c.txt", "x")
	r, err := NewFSResolver(nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	tok, err := r.Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer tok.Release()
	if tok.Size() != 1 {
		t.Fatalf("expected size 1, got %d", tok.Size())
	}
}

func TestTokenReleaseIsIdempotent(t *testing.T) {
	path := writeFile(t, t.TempDir(), "d.txt", "data")
	r, err := NewFSResolver(nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	tok, err := r.Acquire(context.Background(), path)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if r.Active() != 1 {
		t.Fatalf("expected one active token, got %d", r.Active())
	}
	tok.Release()
	tok.Release()
	if r.Active() != 0 {
		t.Fatalf("expected no active tokens, got %d", r.Active())
	}
	if _, err := tok.Open(); !errors.Is(err, ErrReleased) {
		t.Fatalf("expected ErrReleased, got %v", err)
	}
}

func TestWithReleasesOnErrorAndPanic(t *testing.T) {
	path := writeFile(t, t.TempDir(), "e.txt", "content")
	r, err := NewFSResolver(nil)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	boom := errors.New("boom")
	err = With(context.Background(), r, path, func(tok *Token) error {
		f, err := tok.Open()
		if err != nil {
			return err
		}
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return err
		}
		if string(data) != "content" {
			t.Fatalf("unexpected content %q", data)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if r.Active() != 0 {
		t.Fatalf("expected token released after error, got %d active", r.Active())
	}

	func() {
		defer func() { _ = recover() }()
		_ = With(context.Background(), r, path, func(*Token) error { panic("generator crashed") })
	}()
	if r.Active() != 0 {
		t.Fatalf("expected token released after panic, got %d active", r.Active())
	}
}
