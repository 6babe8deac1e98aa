// ABOUTME: Import command for restoring the cache from a YAML backup
// ABOUTME: Supports importing backup files created by the backup command

package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/storage"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import the cache from a YAML backup",
	Long: `Import cached issues and recorded locations from a YAML backup file.

The cached issue list is replaced by the one in the backup. Locations are
added to the existing history; use 'civic reset' first for a clean import.

Examples:
  civic import civic.yaml
  civic import ~/backups/civic-20250114.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filename := args[0]

		data, err := os.ReadFile(filename) //nolint:gosec // user-supplied backup path
		if err != nil {
			return fmt.Errorf("failed to read file: %w", err)
		}

		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm && !askConfirm(cmd, fmt.Sprintf("Import data from '%s'?", filename)) {
			fmt.Fprintln(cmd.OutOrStdout(), "Canceled.")
			return nil
		}

		if err := storage.ImportBackup(cmd.Context(), store, data); err != nil {
			return fmt.Errorf("failed to import: %w", err)
		}

		issues, fixes := cacheCounts(cmd)
		color.Green("Import complete")
		fmt.Printf("  %d issues, %d locations in cache\n", issues, fixes)

		return nil
	},
}

func init() {
	importCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(importCmd)
}
