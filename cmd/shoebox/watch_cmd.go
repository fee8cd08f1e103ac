package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"shoebox/internal/config"
	"shoebox/internal/importer"
	"shoebox/internal/readview"
	"shoebox/internal/watch"
)

func newWatchCmd(cfg *config.Config) *cobra.Command {
	var (
		groupID  string
		existing bool
	)

	cmd := &cobra.Command{
		Use:   "watch [<folder>...]",
		Short: "Import files dropped into folders until interrupted",
		Long: `Watch drop folders and import supported files as they appear.
Folders default to watch.folders from the config file. Press Ctrl+C to stop.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			folders := args
			if len(folders) == 0 {
				folders = cfg.Watch.Folders
			}
			if len(folders) == 0 {
				return errors.New("no folders given and watch.folders is not configured")
			}
			for i, f := range folders {
				abs, err := filepath.Abs(f)
				if err != nil {
					return err
				}
				folders[i] = abs
			}
			if groupID == "" {
				groupID = cfg.Watch.Group
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return withLibrary(cfg, func(lib *library) error {
				view := readview.New(lib.reader)
				if err := view.Load(ctx); err != nil {
					return err
				}
				lib.coord.Register(view, lib.observed)

				w := watch.New(lib.importer, watch.Config{
					Folders:        folders,
					GroupID:        groupID,
					Debounce:       time.Duration(cfg.Watch.DebounceMS) * time.Millisecond,
					ImportExisting: existing,
					OnImport: func(res importer.Result, err error) {
						if err != nil {
							for _, line := range formatCLIError(err) {
								fmt.Fprintln(os.Stderr, line)
							}
							return
						}
						if structuredOutput() {
							_ = writeStructured(res)
							return
						}
						_ = writePlain("imported %d (duplicates %d), library now holds %d assets\n",
							len(res.Created), res.Duplicates, len(view.Assets()))
					},
				})
				return w.Run(ctx)
			})
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "add imported assets to this group id")
	cmd.Flags().BoolVar(&existing, "existing", false, "also import files already in the folders")
	return cmd
}
