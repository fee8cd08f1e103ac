package main

import (
	"context"
	"errors"

	"shoebox/internal/liberr"
)

func formatCLIError(err error) []string {
	if err == nil {
		return nil
	}

	lines := []string{"error: " + err.Error()}

	switch liberr.KindOf(err) {
	case liberr.KindValidation:
		switch liberr.CodeOf(err) {
		case liberr.CodeAssetNotFound:
			lines = append(lines, "hint: list asset ids with: shoebox list --all")
		case liberr.CodeGroupNotFound:
			lines = append(lines, "hint: list group ids with: shoebox group list")
		case liberr.CodeTagNotFound:
			lines = append(lines, "hint: list tags with: shoebox tag list")
		case liberr.CodeNameConflict:
			lines = append(lines, "hint: group names are case-insensitive; pick a different name.")
		}
	case liberr.KindAccess:
		lines = append(lines, "hint: check the file exists and lies under allowed_roots (SHOEBOX_ALLOWED_ROOTS).")
	case liberr.KindStore:
		if errors.Is(err, liberr.ErrClosed) {
			lines = append(lines, "hint: the library was closing; retry the command.")
		} else {
			lines = append(lines, "hint: the library database failed; rerun with --log-level debug for details.")
		}
	case liberr.KindArtifact:
		lines = append(lines, "hint: regenerate with: shoebox artifacts <asset-id>")
	}

	if errors.Is(err, context.Canceled) {
		lines = append(lines, "hint: the command was interrupted.")
	}

	return uniqueLines(lines)
}

func uniqueLines(lines []string) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line == "" {
			continue
		}
		if _, ok := seen[line]; ok {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	return out
}
