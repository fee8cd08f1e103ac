package main

import (
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"shoebox/internal/config"
)

func newTrashCmd(cfg *config.Config) *cobra.Command {
	trashCmd := &cobra.Command{
		Use:   "trash",
		Short: "Soft-delete assets and empty the trash",
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle <asset-id> [<asset-id>...]",
		Short: "Move assets to or out of the trash",
		Args:  assetIDArgs(requireAtLeastArgs(1, "asset id is required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				return awaitErr(func(done func(error)) {
					lib.coord.ToggleSoftDelete(args, done)
				})
			})
		},
	}

	emptyCmd := &cobra.Command{
		Use:   "empty",
		Short: "Permanently delete trashed assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				deleted, err := await(lib.coord.EmptyTrash)
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(map[string]any{"deleted": deleted})
				}
				return writePlain("deleted: %d\n", len(deleted))
			})
		},
	}

	trashCmd.AddCommand(toggleCmd, emptyCmd)
	return trashCmd
}

func newGCCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "gc",
		Short: "Remove artifact blobs no asset references",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				res, err := await(lib.coord.CollectGarbage)
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(res)
				}
				return writePlain("blobs removed: %d, freed: %s\n", res.BlobsRemoved, humanize.IBytes(uint64(res.BytesFreed)))
			})
		},
	}
}
