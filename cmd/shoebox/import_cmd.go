package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"shoebox/internal/config"
	"shoebox/internal/importer"
)

func newImportCmd(cfg *config.Config) *cobra.Command {
	var (
		groupID      string
		manifestPath string
	)

	cmd := &cobra.Command{
		Use:   "import [<path>...]",
		Short: "Import files or directories into the library",
		Long: `Import files into the library. Directories are walked recursively.
Files already in the library (same content) are skipped. Thumbnails and
text are generated before the command exits.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			refs, err := expandImportArgs(args)
			if err != nil {
				return err
			}
			if manifestPath != "" {
				m, err := readManifestFile(manifestPath)
				if err != nil {
					return err
				}
				refs = append(refs, m.Files...)
				if groupID == "" {
					groupID = m.Group
				}
			}
			if len(refs) == 0 {
				return errors.New("at least one path or --manifest is required")
			}

			return withLibrary(cfg, func(lib *library) error {
				res, err := lib.importRefs(cmd.Context(), refs, groupID)
				if err != nil {
					return err
				}
				if structuredOutput() {
					return writeStructured(res)
				}
				for _, ref := range res.Unsupported {
					fmt.Fprintf(os.Stderr, "skipped unsupported: %s\n", ref)
				}
				for _, ref := range res.Unreadable {
					fmt.Fprintf(os.Stderr, "skipped unreadable: %s\n", ref)
				}
				return writePlain("created: %d, duplicates: %d, unsupported: %d, unreadable: %d\n",
					len(res.Created), res.Duplicates, len(res.Unsupported), len(res.Unreadable))
			})
		},
	}

	cmd.Flags().StringVar(&groupID, "group", "", "add imported assets to this group id")
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "YAML manifest listing files to import")

	return cmd
}

func expandImportArgs(args []string) ([]string, error) {
	var refs []string
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		info, err := os.Stat(abs)
		if err != nil || !info.IsDir() {
			// Unreadable files are reported per item by the importer.
			refs = append(refs, abs)
			continue
		}
		files, err := importer.CollectFiles(abs)
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
		refs = append(refs, files...)
	}
	return refs, nil
}

func readManifestFile(path string) (importer.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return importer.Manifest{}, err
	}
	defer f.Close()
	abs, err := filepath.Abs(path)
	if err != nil {
		return importer.Manifest{}, err
	}
	return importer.ReadManifest(f, filepath.Dir(abs))
}
