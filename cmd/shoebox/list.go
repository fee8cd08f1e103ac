package main

import (
	"strings"

	"github.com/spf13/cobra"

	"shoebox/internal/config"
	"shoebox/internal/liberr"
	"shoebox/internal/models"
	"shoebox/internal/readview"
	"shoebox/internal/store"
)

func newListCmd(cfg *config.Config) *cobra.Command {
	var (
		groupID    string
		tagName    string
		kind       string
		favourites bool
		trashed    bool
		all        bool
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List assets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				filter := store.AssetFilter{
					GroupID:        strings.TrimSpace(groupID),
					FavouritesOnly: favourites,
					IncludeDeleted: all,
					OnlyDeleted:    trashed,
					Limit:          limit,
				}
				if kind != "" {
					parsed, err := models.ParseAssetKind(kind)
					if err != nil {
						return err
					}
					filter.Kind = parsed
				}
				if tagName != "" {
					tagID, err := lib.tagIDByName(cmd, tagName)
					if err != nil {
						return err
					}
					filter.TagID = tagID
				}

				var (
					assets []models.Asset
					err    error
				)
				if filter.GroupID == "" && filter.TagID == "" && filter.Kind == "" &&
					!favourites && !trashed && !all && limit <= 0 {
					view := readview.New(lib.reader)
					if err := view.Load(cmd.Context()); err != nil {
						return err
					}
					assets = view.Assets()
				} else {
					assets, err = lib.reader.ListAssets(cmd.Context(), filter)
					if err != nil {
						return err
					}
				}

				if structuredOutput() {
					return writeStructured(assets)
				}
				return writeAssetList(assets)
			})
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "only assets in this group id")
	cmd.Flags().StringVar(&tagName, "tag", "", "only assets with this tag name")
	cmd.Flags().StringVar(&kind, "kind", "", "only assets of this kind (image, document, text, audio)")
	cmd.Flags().BoolVar(&favourites, "favourites", false, "only favourites")
	cmd.Flags().BoolVar(&trashed, "trashed", false, "only soft-deleted assets")
	cmd.Flags().BoolVar(&all, "all", false, "include soft-deleted assets")
	cmd.Flags().IntVar(&limit, "limit", 0, "limit results")

	return cmd
}

func newShowCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "show <asset-id>",
		Short: "Show an asset",
		Args:  assetIDArgs(requireExactlyArgs(1, "asset id is required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				asset, err := lib.reader.GetAsset(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asset == nil {
					return liberr.NotFound(args[0], liberr.CodeAssetNotFound)
				}
				if structuredOutput() {
					return writeStructured(asset)
				}
				return writeAssetDetail(*asset)
			})
		},
	}
}
