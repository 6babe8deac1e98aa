// ABOUTME: Civic search command
// ABOUTME: Looks up places by name for use with 'civic report --place'

package main

import (
	"fmt"
	"strings"

	"github.com/harper/civic/internal/ui"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search for a place",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		search, err := newPlaceSearch()
		if err != nil {
			return err
		}

		query := strings.Join(args, " ")
		places := search.Search(cmd.Context(), query)
		if len(places) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No places found for '%s'.\n", query)
			return nil
		}
		for i, p := range places {
			fmt.Fprintln(cmd.OutOrStdout(), ui.FormatPlace(i+1, p))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)
}
