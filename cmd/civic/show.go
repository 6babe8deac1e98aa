// ABOUTME: Civic show command
// ABOUTME: Opens the details sheet for one issue

package main

import (
	"errors"
	"fmt"

	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/storage"
	"github.com/harper/civic/internal/ui"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show the details of an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := models.IssueID(args[0])

		shell, _, err := startShell(cmd.Context())
		if err != nil {
			return err
		}
		defer shell.Close()

		var issue *models.Issue
		if shell.TapMarker(id) {
			issue = shell.State().Selected
		} else {
			// Not on the map; it may still be in an older cached list.
			issue, err = store.GetIssue(cmd.Context(), id)
			if err != nil && !errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("failed to read cache: %w", err)
			}
		}
		if issue == nil {
			return fmt.Errorf("issue '%s' not found", id)
		}

		fmt.Fprint(cmd.OutOrStdout(), ui.FormatIssueDetails(*issue))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
