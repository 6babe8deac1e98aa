// ABOUTME: Civic issues command
// ABOUTME: Fetches and lists reported issues, falling back to the local cache

package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/app"
	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/ui"
	"github.com/spf13/cobra"
)

var issuesCmd = &cobra.Command{
	Use:     "issues",
	Aliases: []string{"ls", "list"},
	Short:   "List reported issues",
	RunE: func(cmd *cobra.Command, args []string) error {
		var filter models.IssueType
		if s, _ := cmd.Flags().GetString("type"); s != "" {
			t, err := models.ParseIssueType(s)
			if err != nil {
				return err
			}
			filter = t
		}
		limit, _ := cmd.Flags().GetInt("limit")

		shell, _, err := startShell(cmd.Context())
		if err != nil {
			return err
		}
		defer shell.Close()

		state := shell.State()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "You are at %s\n", ui.FormatUserLocation(state.UserLocation, state.LocationFallback))
		printFetchStatus(state)

		issues := filterIssues(state.Issues, filter, limit)
		if len(issues) == 0 {
			fmt.Fprintln(out, "No issues reported yet. Use 'civic report' to add one.")
			return nil
		}
		for _, issue := range issues {
			fmt.Fprintln(out, ui.FormatIssue(issue))
		}
		return nil
	},
}

// printFetchStatus warns when the list is stale or missing.
func printFetchStatus(state app.State) {
	switch {
	case state.FetchErr == nil:
	case state.FromCache:
		color.Yellow("⚠ Could not reach the backend, showing cached issues: %v", state.FetchErr)
	default:
		color.Yellow("⚠ Could not load issues: %v", state.FetchErr)
	}
}

func filterIssues(issues []models.Issue, t models.IssueType, limit int) []models.Issue {
	out := make([]models.Issue, 0, len(issues))
	for _, issue := range issues {
		if t != "" && issue.IssueType != t {
			continue
		}
		out = append(out, issue)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func init() {
	issuesCmd.Flags().StringP("type", "t", "", "only show issues of this type (e.g. POTHOLE)")
	issuesCmd.Flags().IntP("limit", "n", 0, "maximum number of issues to show")

	rootCmd.AddCommand(issuesCmd)
}
