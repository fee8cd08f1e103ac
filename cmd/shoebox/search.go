package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"shoebox/internal/config"
)

func newSearchCmd(cfg *config.Config) *cobra.Command {
	var (
		limit   int
		rebuild bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search asset names and extracted text",
		Args:  requireAtLeastArgs(1, "query is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				if lib.index == nil {
					return errors.New("search index is disabled (search.enabled = false)")
				}
				if rebuild {
					if err := lib.index.Rebuild(cmd.Context()); err != nil {
						return err
					}
				}
				hits, err := lib.index.Search(strings.Join(args, " "), limit)
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(hits)
				}
				for _, h := range hits {
					if err := writePlain("%s %.3f %s\n", h.ID, h.Score, h.Name); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	cmd.Flags().BoolVar(&rebuild, "rebuild", false, "reindex every asset before searching")

	return cmd
}
