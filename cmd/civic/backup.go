// ABOUTME: Backup command for exporting the local cache to YAML
// ABOUTME: Creates portable backup files of cached issues and location history

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/storage"
	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a YAML backup of the local cache",
	Long: `Create a YAML backup file containing the cached issues and your
recorded locations.

Examples:
  civic backup --output civic.yaml
  civic backup -o ~/backups/civic-$(date +%Y%m%d).yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		data, err := storage.ExportBackup(cmd.Context(), store)
		if err != nil {
			return fmt.Errorf("failed to create backup: %w", err)
		}

		if output == "" {
			output = fmt.Sprintf("civic-%s.yaml", time.Now().Format("20060102-150405"))
		}

		if err := os.WriteFile(output, data, 0644); err != nil { //nolint:gosec // 0644 is intentional for backup files
			return fmt.Errorf("failed to write backup: %w", err)
		}

		issues, fixes := cacheCounts(cmd)
		color.Green("Backup created: %s", output)
		fmt.Printf("  %d issues, %d locations\n", issues, fixes)

		return nil
	},
}

// cacheCounts reports how many issues and fixes the cache holds.
func cacheCounts(cmd *cobra.Command) (int, int) {
	issues, _ := store.CachedIssues(cmd.Context())
	fixes, _ := store.ListFixes(cmd.Context(), 0)
	return len(issues), len(fixes)
}

func init() {
	backupCmd.Flags().StringP("output", "o", "", "output file (default: civic-YYYYMMDD-HHMMSS.yaml)")

	rootCmd.AddCommand(backupCmd)
}
