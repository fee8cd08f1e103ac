package main

import (
	"github.com/spf13/cobra"

	"shoebox/internal/config"
)

func newFavouriteCmd(cfg *config.Config) *cobra.Command {
	var unset bool

	cmd := &cobra.Command{
		Use:     "favourite <asset-id> [<asset-id>...]",
		Aliases: []string{"fav"},
		Short:   "Mark assets as favourites",
		Args:    assetIDArgs(requireAtLeastArgs(1, "asset id is required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				state, err := await(func(done func(bool, error)) {
					lib.coord.SetFavourite(args, !unset, done)
				})
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(map[string]any{"ids": args, "favourite": state})
				}
				return writePlain("favourite: %t (%d assets)\n", state, len(args))
			})
		},
	}

	cmd.Flags().BoolVar(&unset, "unset", false, "clear the favourite flag instead")
	return cmd
}
