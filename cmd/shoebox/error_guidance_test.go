package main

import (
	"errors"
	"testing"

	"shoebox/internal/liberr"
)

func TestFormatCLIError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		hint string
	}{
		{
			name: "unknown group",
			err:  liberr.NotFound("gp-1234", liberr.CodeGroupNotFound),
			hint: "hint: list group ids with: shoebox group list",
		},
		{
			name: "name conflict",
			err:  liberr.ValidationCode(errors.New("group name taken"), liberr.CodeNameConflict),
			hint: "hint: group names are case-insensitive; pick a different name.",
		},
		{
			name: "access",
			err:  liberr.Access("/pics/a.jpg", errors.New("permission denied"), liberr.CodeAccessDenied),
			hint: "hint: check the file exists and lies under allowed_roots (SHOEBOX_ALLOWED_ROOTS).",
		},
		{
			name: "closed",
			err:  liberr.ErrClosed,
			hint: "hint: the library was closing; retry the command.",
		},
		{
			name: "store",
			err:  liberr.Store(errors.New("disk I/O error"), liberr.CodeCommitFailed),
			hint: "hint: the library database failed; rerun with --log-level debug for details.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lines := formatCLIError(tt.err)
			if !containsLine(lines, tt.hint) {
				t.Fatalf("expected %q in %v", tt.hint, lines)
			}
		})
	}
}

func TestFormatCLIErrorPlain(t *testing.T) {
	lines := formatCLIError(errors.New("boom"))
	if len(lines) != 1 || lines[0] != "error: boom" {
		t.Fatalf("expected only the message, got %v", lines)
	}
	if formatCLIError(nil) != nil {
		t.Fatal("expected nil for nil error")
	}
}

func containsLine(lines []string, expected string) bool {
	for _, line := range lines {
		if line == expected {
			return true
		}
	}
	return false
}
