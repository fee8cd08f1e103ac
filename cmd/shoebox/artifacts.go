package main

import (
	"github.com/spf13/cobra"

	"shoebox/internal/config"
	"shoebox/internal/models"
	"shoebox/internal/store"
)

func newArtifactsCmd(cfg *config.Config) *cobra.Command {
	var (
		thumbnails bool
		text       bool
	)

	cmd := &cobra.Command{
		Use:   "artifacts [<asset-id>...]",
		Short: "Regenerate thumbnails and extracted text",
		Long:  "Regenerate artifacts for the given assets, or for every live asset when none are given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !thumbnails && !text {
				thumbnails, text = true, true
			}
			return withLibrary(cfg, func(lib *library) error {
				ids := args
				if len(ids) == 0 {
					assets, err := lib.reader.ListAssets(cmd.Context(), store.AssetFilter{})
					if err != nil {
						return err
					}
					for _, a := range assets {
						ids = append(ids, a.ID)
					}
				}
				if thumbnails {
					lib.coord.RequestThumbnails(ids)
				}
				if text {
					lib.coord.RequestTextScan(ids)
				}
				// Generation finishes while the library closes.
				if err := lib.coord.Close(); err != nil {
					return err
				}
				stats := lib.pool.Stats()
				if structuredOutput() {
					return writeStructured(map[string]any{
						"requested": len(ids),
						"attached":  stats.Attached,
						"skipped":   stats.Skipped,
						"failed":    stats.Failed,
						"kinds":     requestedKinds(thumbnails, text),
					})
				}
				return writePlain("attached: %d, skipped: %d, failed: %d\n", stats.Attached, stats.Skipped, stats.Failed)
			})
		},
	}

	cmd.Flags().BoolVar(&thumbnails, "thumbnails", false, "only thumbnails")
	cmd.Flags().BoolVar(&text, "text", false, "only extracted text")
	return cmd
}

func requestedKinds(thumbnails, text bool) []models.ArtifactKind {
	var kinds []models.ArtifactKind
	if thumbnails {
		kinds = append(kinds, models.ArtifactThumbnail)
	}
	if text {
		kinds = append(kinds, models.ArtifactText)
	}
	return kinds
}
