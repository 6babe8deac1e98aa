// ABOUTME: Civic reset command
// ABOUTME: Clears the cached issues and recorded location history

package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear the local cache",
	Long: `Delete every cached issue and recorded location.

Issues on the backend are not touched.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm && !askConfirm(cmd, "Delete all cached issues and location history?") {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		if err := store.Reset(); err != nil {
			return fmt.Errorf("failed to reset cache: %w", err)
		}

		color.Green("✓ Cache cleared")
		return nil
	},
}

// askConfirm prompts on the command's input and reports whether the user
// said yes.
func askConfirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N] ", question)
	reader := bufio.NewReader(cmd.InOrStdin())
	response, _ := reader.ReadString('\n')
	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}

func init() {
	resetCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	rootCmd.AddCommand(resetCmd)
}
