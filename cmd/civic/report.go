// ABOUTME: Civic report command
// ABOUTME: Fills the report form, places the pin and submits a new issue

package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/report"
	"github.com/harper/civic/internal/ui"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:     "report",
	Aliases: []string{"r"},
	Short:   "Report a new issue",
	Long: `Report a new issue at your location, a coordinate or a searched place.

The pin starts at your last recorded location (see 'civic locate set').
Use --lat/--lng or --place to move it, or --here to keep it on you.

Issue types: POTHOLE, STREET_LIGHT_NOT_WORKING (or STREET_LIGHT),
GARBAGE_DUMP, WATER_LEAKAGE, SEWAGE_OVERFLOW, OTHER.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		flags := cmd.Flags()

		latSet, lngSet := flags.Changed("lat"), flags.Changed("lng")
		if latSet != lngSet {
			return fmt.Errorf("--lat and --lng must be given together")
		}
		place, _ := flags.GetString("place")
		here, _ := flags.GetBool("here")
		if n := countTrue(latSet, place != "", here); n > 1 {
			return fmt.Errorf("use only one of --lat/--lng, --place and --here")
		}

		shell, _, err := startShell(ctx)
		if err != nil {
			return err
		}
		defer shell.Close()

		flow, err := shell.OpenReport()
		if err != nil {
			return err
		}

		typeFlag, _ := flags.GetString("type")
		issueType, err := models.ParseIssueType(typeFlag)
		if err != nil {
			return err
		}
		if err := flow.SetIssueType(issueType); err != nil {
			return err
		}

		description, _ := flags.GetString("description")
		if err := flow.SetDescription(description); err != nil {
			return err
		}
		locality, _ := flags.GetString("locality")
		if err := flow.SetLocality(locality); err != nil {
			return err
		}

		if path, _ := flags.GetString("image"); path != "" {
			img, err := models.LoadImageFile(path)
			if err != nil {
				return fmt.Errorf("failed to read image: %w", err)
			}
			if err := flow.SetImage(img); err != nil {
				if errors.Is(err, report.ErrNotImage) {
					return errors.New(report.MsgNotImage)
				}
				return err
			}
		}

		switch {
		case latSet:
			lat, _ := flags.GetFloat64("lat")
			lng, _ := flags.GetFloat64("lng")
			c, err := models.NewCoordinate(lat, lng)
			if err != nil {
				return err
			}
			if err := flow.SetLocation(c); err != nil {
				return err
			}
		case place != "":
			search, err := newPlaceSearch()
			if err != nil {
				return err
			}
			results := search.Search(ctx, place)
			if len(results) == 0 {
				return fmt.Errorf("no places found for '%s'", place)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Using %s\n", ui.FormatPlace(1, results[0]))
			if err := flow.SetLocation(results[0].Coordinate); err != nil {
				return err
			}
		case here:
			flow.ResetLocation()
		}

		draft := flow.Draft()
		n, warn := flow.DescriptionCount()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s %s\n", ui.FormatIssueType(draft.IssueType), ui.FormatDescriptionCount(n, warn))
		if draft.Coordinate != nil {
			fmt.Fprintf(out, "Location: %s\n", ui.FormatCoordinate(*draft.Coordinate))
		}

		issue, err := flow.Submit(ctx)
		if err != nil {
			var verrs models.ValidationErrors
			if errors.As(err, &verrs) {
				fmt.Fprint(cmd.ErrOrStderr(), ui.FormatValidationErrors(verrs))
				return fmt.Errorf("report not submitted: fix the fields above")
			}
			if msg := flow.FormError(); msg != "" {
				return errors.New(msg)
			}
			return err
		}

		color.Green("✓ Reported issue #%s", issue.ID)
		state := shell.State()
		if state.FetchErr == nil {
			fmt.Fprintf(out, "%d issue(s) on the map\n", len(state.Issues))
		}
		return nil
	},
}

func countTrue(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

func init() {
	reportCmd.Flags().StringP("type", "t", strings.ToLower(string(models.DefaultIssueType)), "issue type")
	reportCmd.Flags().StringP("description", "d", "", "what is wrong (max 500 characters)")
	reportCmd.Flags().StringP("locality", "c", "", "village or city name")
	reportCmd.Flags().StringP("image", "i", "", "photo of the issue (JPEG, PNG or WebP, under 5MB)")
	reportCmd.Flags().Float64("lat", 0, "latitude of the issue")
	reportCmd.Flags().Float64("lng", 0, "longitude of the issue")
	reportCmd.Flags().StringP("place", "p", "", "search for a place and report there")
	reportCmd.Flags().Bool("here", false, "report at your current location")

	rootCmd.AddCommand(reportCmd)
}
