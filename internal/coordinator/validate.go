package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"shoebox/internal/liberr"
	"shoebox/internal/models"
	"shoebox/internal/store"
)

func requireGroup(ctx context.Context, u store.Mutator, groupID string) error {
	if strings.TrimSpace(groupID) == "" {
		return liberr.ValidationCode(errors.New("group id is required"), liberr.CodeMissingRequired)
	}
	group, err := u.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if group == nil {
		return liberr.NotFound(groupID, liberr.CodeGroupNotFound)
	}
	return nil
}

// requireAssets rejects the request when any id does not name an asset.
func requireAssets(ctx context.Context, u store.Mutator, assetIDs []string) error {
	for _, id := range assetIDs {
		if strings.TrimSpace(id) == "" {
			return liberr.ValidationCode(errors.New("asset id must not be empty"), liberr.CodeInvalidID)
		}
	}
	missing, err := u.MissingAssets(ctx, assetIDs)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return liberr.NotFound(strings.Join(missing, ","), liberr.CodeAssetNotFound)
	}
	return nil
}

func requireFreeGroupName(ctx context.Context, u store.Mutator, name, excludeID string) error {
	if name == "" {
		return liberr.ValidationCode(errors.New("group name is required"), liberr.CodeInvalidName)
	}
	taken, err := u.GroupNameTaken(ctx, name, excludeID)
	if err != nil {
		return err
	}
	if taken {
		return liberr.ValidationCode(fmt.Errorf("group name %q already exists", name), liberr.CodeNameConflict)
	}
	return nil
}

func validateCandidate(c models.AssetCandidate) error {
	switch {
	case strings.TrimSpace(c.Identity) == "":
		return liberr.ValidationCode(fmt.Errorf("candidate %q has no content identity", c.SourceRef), liberr.CodeMissingRequired)
	case strings.TrimSpace(c.SourceRef) == "":
		return liberr.ValidationCode(errors.New("candidate source reference is required"), liberr.CodeMissingRequired)
	case !models.IsValidAssetKind(c.Kind):
		return liberr.ValidationCode(fmt.Errorf("candidate %q has unsupported kind %q", c.SourceRef, c.Kind), liberr.CodeUnsupportedType)
	}
	return nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
