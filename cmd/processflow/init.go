package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nao1215/processflow/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/processflow.yaml
var configTemplate embed.FS

// templatePath is the location of the configuration template inside configTemplate.
const templatePath = "templates/processflow.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new processflow configuration file",
		Long: `Initialize creates a new .processflow configuration file in the current directory.

The generated file includes:
- Default settings for the stages that require them
- Commented examples for custom stage commands
- Documentation for the page layout the filter checks

Examples:
  # Create .processflow in current directory
  processflow init

  # Create config file in the XDG config directory
  processflow init -o ~/.config/processflow/config.yaml

  # Force overwrite existing file
  processflow init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to configure:")
	fmt.Fprintln(out, "  - The command that implements each stage")
	fmt.Fprintln(out, "  - Default settings per stage")
	fmt.Fprintln(out, "  - Where each stage leaves its output")

	return nil
}
