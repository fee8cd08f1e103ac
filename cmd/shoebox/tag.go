package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shoebox/internal/config"
	"shoebox/internal/liberr"
	"shoebox/internal/store"
)

func newTagCmd(cfg *config.Config) *cobra.Command {
	tagCmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
	}

	addCmd := &cobra.Command{
		Use:   "add <asset-id> [<asset-id>...] <tag>[,<tag>...]",
		Short: "Tag assets, creating tags as needed",
		Args:  assetIDsThenTagArgs(requireAtLeastArgs(2, "asset id(s) and tag are required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := splitCommaList(args[len(args)-1])
			ids := args[:len(args)-1]
			return withLibrary(cfg, func(lib *library) error {
				tagIDs, err := await(func(done func([]string, error)) {
					lib.coord.AddAssetsToTags(ids, names, done)
				})
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(tagIDs)
				}
				return writePlain("%s\n", strings.Join(tagIDs, ","))
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <asset-id> [<asset-id>...] <tag>[,<tag>...]",
		Short: "Remove tags from assets",
		Args:  assetIDsThenTagArgs(requireAtLeastArgs(2, "asset id(s) and tag are required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			names := splitCommaList(args[len(args)-1])
			ids := args[:len(args)-1]
			return withLibrary(cfg, func(lib *library) error {
				tagIDs := make([]string, 0, len(names))
				for _, name := range names {
					id, err := lib.tagIDByName(cmd, name)
					if err != nil {
						return err
					}
					tagIDs = append(tagIDs, id)
				}
				return awaitErr(func(done func(error)) {
					lib.coord.RemoveTagsFromAssets(tagIDs, ids, done)
				})
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List tags",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				tags, err := lib.reader.ListTags(cmd.Context())
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(tags)
				}
				for _, t := range tags {
					if err := writePlain("%s %s (%d)\n", t.ID, t.Name, len(t.AssetIDs)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	tagCmd.AddCommand(addCmd, removeCmd, listCmd)
	return tagCmd
}

func (l *library) tagIDByName(cmd *cobra.Command, name string) (string, error) {
	tags, err := l.reader.ListTags(cmd.Context())
	if err != nil {
		return "", err
	}
	key := store.NormalizeTagName(name)
	for _, t := range tags {
		if t.Name == key {
			return t.ID, nil
		}
	}
	return "", liberr.ValidationCode(fmt.Errorf("tag not found: %s", name), liberr.CodeTagNotFound)
}

func splitCommaList(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
