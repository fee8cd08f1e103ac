package main

import (
	"github.com/spf13/cobra"

	"shoebox/internal/config"
	"shoebox/internal/models"
	"shoebox/internal/readview"
)

func newGroupCmd(cfg *config.Config) *cobra.Command {
	groupCmd := &cobra.Command{
		Use:   "group",
		Short: "Manage groups",
	}

	createCmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a group",
		Args:  requireExactlyArgs(1, "group name is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				id, err := await(func(done func(string, error)) {
					lib.coord.CreateGroup(args[0], done)
				})
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(map[string]string{"id": id, "name": args[0]})
				}
				return writePlain("%s\n", id)
			})
		},
	}

	renameCmd := &cobra.Command{
		Use:   "rename <group-id> <name>",
		Short: "Rename a group",
		Args:  groupIDArgs(requireExactlyArgs(2, "group id and new name are required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				return awaitErr(func(done func(error)) {
					lib.coord.RenameGroup(args[0], args[1], done)
				})
			})
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete a group (its assets are kept)",
		Args:  groupIDArgs(requireExactlyArgs(1, "group id is required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				return awaitErr(func(done func(error)) {
					lib.coord.DeleteGroup(args[0], done)
				})
			})
		},
	}

	addCmd := &cobra.Command{
		Use:   "add <group-id> <asset-id> [<asset-id>...]",
		Short: "Add assets to a group",
		Args:  groupThenAssetIDArgs(requireAtLeastArgs(2, "group id and asset id(s) are required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				return awaitErr(func(done func(error)) {
					lib.coord.AddAssetsToGroup(args[1:], args[0], done)
				})
			})
		},
	}

	removeCmd := &cobra.Command{
		Use:   "remove <group-id> <asset-id> [<asset-id>...]",
		Short: "Remove assets from a group",
		Args:  groupThenAssetIDArgs(requireAtLeastArgs(2, "group id and asset id(s) are required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				return awaitErr(func(done func(error)) {
					lib.coord.RemoveAssetsFromGroup(args[1:], args[0], done)
				})
			})
		},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				view := readview.New(lib.reader)
				if err := view.Load(cmd.Context()); err != nil {
					return err
				}
				groups := view.Groups()
				if structuredOutput() {
					return writeStructured(groups)
				}
				for _, g := range groups {
					visible, _ := view.GroupMembers(g.ID)
					if err := writePlain("%s %s (%d)\n", g.ID, g.Name, len(visible)); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <group-id>",
		Short: "List the visible assets of a group",
		Args:  groupIDArgs(requireExactlyArgs(1, "group id is required")),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cfg, func(lib *library) error {
				view := readview.New(lib.reader)
				if err := view.Load(cmd.Context()); err != nil {
					return err
				}
				members, ok := view.GroupMembers(args[0])
				if !ok {
					members = []models.Asset{}
				}
				if structuredOutput() {
					return writeStructured(members)
				}
				return writeAssetList(members)
			})
		},
	}

	groupCmd.AddCommand(createCmd, renameCmd, deleteCmd, addCmd, removeCmd, listCmd, showCmd)
	return groupCmd
}
