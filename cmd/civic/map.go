// ABOUTME: Civic map command
// ABOUTME: Draws the issue map around the user as a character grid

package main

import (
	"fmt"

	"github.com/harper/civic/internal/mapview"
	"github.com/harper/civic/internal/ui"
	"github.com/spf13/cobra"
)

var mapCmd = &cobra.Command{
	Use:     "map",
	Aliases: []string{"m"},
	Short:   "Show issues on a map around you",
	RunE: func(cmd *cobra.Command, args []string) error {
		shell, vp, err := startShell(cmd.Context())
		if err != nil {
			return err
		}
		defer shell.Close()

		cols, _ := cmd.Flags().GetInt("cols")
		rows, _ := cmd.Flags().GetInt("rows")
		if cols > 0 && rows > 0 {
			vp.Resize(ui.GridSize(cols, rows))
			vp.InvalidateSize()
		}

		view := shell.View()
		if recenter, _ := cmd.Flags().GetBool("recenter"); recenter {
			view.RequestRecenter()
		}
		if cmd.Flags().Changed("zoom") {
			zoom, _ := cmd.Flags().GetInt("zoom")
			vp.SetView(vp.Center(), zoom)
		}

		state := shell.State()
		printFetchStatus(state)

		out := cmd.OutOrStdout()
		fmt.Fprint(out, ui.RenderMap(vp, view.User(), view.Markers()))
		if legend, _ := cmd.Flags().GetBool("legend"); legend {
			fmt.Fprintln(out, ui.MapLegend())
		}
		if list, _ := cmd.Flags().GetBool("list"); list {
			fmt.Fprintln(out)
			for _, m := range view.Markers() {
				fmt.Fprintln(out, ui.FormatIssue(m.Issue))
			}
		}
		return nil
	},
}

func init() {
	mapCmd.Flags().Bool("recenter", false, "zoom in on your location")
	mapCmd.Flags().IntP("zoom", "z", mapview.MapZoom, "zoom level")
	mapCmd.Flags().Int("cols", mapCols, "map width in characters")
	mapCmd.Flags().Int("rows", mapRows, "map height in characters")
	mapCmd.Flags().BoolP("legend", "l", false, "show the marker legend")
	mapCmd.Flags().Bool("list", false, "list the issues below the map")

	rootCmd.AddCommand(mapCmd)
}
