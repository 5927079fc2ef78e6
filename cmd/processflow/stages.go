package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/processflow/internal/config"
	"github.com/nao1215/processflow/internal/stage"
	"github.com/spf13/cobra"
)

// NewStagesCmd creates the stages command.
func NewStagesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stages",
		Short: "List the pipeline stages in execution order",
		Long: `Stages prints every stage in the order it runs, the stage whose output
decides which pages it receives, the command that implements it and the
output patterns the page filter checks.

Examples:
  # Show the stages with the configuration found in the usual places
  processflow stages

  # Show the stages as configured by a specific file
  processflow stages -c myconfig.yaml`,
		Args: cobra.NoArgs,
		RunE: runStagesCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .processflow in current or home directory)")

	return cmd
}

// runStagesCmd executes the stages command.
func runStagesCmd(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return err
	}

	file, err := loadConfigFile(configPath)
	if err != nil {
		return err
	}
	return printStages(cmd.OutOrStdout(), file)
}

// printStages writes one block per stage. file may be nil.
func printStages(w io.Writer, file *config.File) error {
	layout, err := file.PageLayout()
	if err != nil {
		return err
	}

	for i, s := range stage.All() {
		gate := "-"
		if g, ok := stage.Gate(s); ok {
			gate = g.String()
		}
		fmt.Fprintf(w, "%d. %s\n", i+1, s)
		fmt.Fprintf(w, "   gated on: %s\n", gate)
		fmt.Fprintf(w, "   command:  %s\n", strings.Join(file.WorkerCommand(s), " "))
		fmt.Fprintf(w, "   output:   %s\n", strings.Join(layout[s], ", "))
	}
	return nil
}

// loadConfigFile locates and loads the configuration file.
// If the user explicitly specified a path, a missing file is an error.
// Otherwise a missing file yields nil, and every stage uses its defaults.
func loadConfigFile(configPath string) (*config.File, error) {
	path := config.FindConfigFile(configPath)
	if path == "" {
		if configPath != "" {
			return nil, fmt.Errorf("configuration file not found: %s", configPath)
		}
		return nil, nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
	}
	return file, nil
}
