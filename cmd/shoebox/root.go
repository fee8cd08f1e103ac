package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shoebox/internal/config"
	"shoebox/internal/format"
)

func newRootCmd(cfg *config.Config) *cobra.Command {
	var (
		jsonOutput bool
		yamlOutput bool
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:           "shoebox",
		Short:         "Shoebox is a personal media library",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warning, err := configureLoggerForCLI(logLevel, cfg, jsonOutput)
			if err != nil {
				return err
			}
			if warning != "" {
				fmt.Fprintln(os.Stderr, warning)
			}
			switch {
			case jsonOutput && yamlOutput:
				return fmt.Errorf("--json and --yaml are mutually exclusive")
			case jsonOutput:
				outputFormatter, _ = format.New("json")
			case yamlOutput:
				outputFormatter, _ = format.New("yaml")
			default:
				outputFormatter = nil
			}
			return nil
		},
	}

	cmd.Version = version
	cmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output JSON")
	cmd.PersistentFlags().BoolVar(&yamlOutput, "yaml", false, "output YAML")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	cmd.AddCommand(
		newImportCmd(cfg),
		newListCmd(cfg),
		newShowCmd(cfg),
		newSearchCmd(cfg),
		newGroupCmd(cfg),
		newTagCmd(cfg),
		newFavouriteCmd(cfg),
		newTrashCmd(cfg),
		newGCCmd(cfg),
		newArtifactsCmd(cfg),
		newWatchCmd(cfg),
		newConfigCmd(cfg),
	)

	return cmd
}
