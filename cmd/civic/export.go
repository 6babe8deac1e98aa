// ABOUTME: Civic export command
// ABOUTME: Exports issues or location history to GeoJSON, Markdown or YAML

package main

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/harper/civic/internal/geojson"
	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/storage"
	"github.com/spf13/cobra"
)

var durationRegex = regexp.MustCompile(`^(\d+)([hdwm])$`)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export issues to GeoJSON, Markdown or YAML",
	Long: `Export the issue map or your location history.

Formats:
  geojson   issues as points (default); with --fixes, your location track
  markdown  a table of issues
  yaml      a full backup of the local cache

Examples:
  civic export > issues.geojson
  civic export --with-user -o map.geojson
  civic export --fixes --since 7d
  civic export --format markdown --cached`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")
		fixes, _ := cmd.Flags().GetBool("fixes")

		switch format {
		case "geojson", "markdown", "yaml":
		default:
			return fmt.Errorf("unknown format '%s' (use geojson, markdown or yaml)", format)
		}

		if format == "yaml" {
			data, err := storage.ExportToYAML(cmd.Context(), store)
			if err != nil {
				return fmt.Errorf("failed to generate YAML: %w", err)
			}
			return writeExport(cmd, data, output, "YAML")
		}

		if fixes {
			if format != "geojson" {
				return fmt.Errorf("--fixes only supports the geojson format")
			}
			since, _ := cmd.Flags().GetString("since")
			return exportFixes(cmd, since, output)
		}

		cached, _ := cmd.Flags().GetBool("cached")
		issues, user, fallback, err := loadIssues(cmd, cached)
		if err != nil {
			return err
		}

		if format == "markdown" {
			return writeExport(cmd, storage.ExportToMarkdown(issues, time.Now()), output, "markdown")
		}

		fc := geojson.FromIssues(issues)
		if withUser, _ := cmd.Flags().GetBool("with-user"); withUser {
			fc.WithUser(user, fallback)
		}
		data, err := fc.ToJSONIndent()
		if err != nil {
			return fmt.Errorf("failed to generate GeoJSON: %w", err)
		}
		return writeExport(cmd, data, output, fmt.Sprintf("%d issues", len(issues)))
	},
}

// loadIssues returns the cached list, or mounts the shell and fetches.
func loadIssues(cmd *cobra.Command, cached bool) ([]models.Issue, models.Coordinate, bool, error) {
	if cached {
		issues, err := store.CachedIssues(cmd.Context())
		if err != nil {
			return nil, models.Coordinate{}, false, fmt.Errorf("failed to read cache: %w", err)
		}
		c, fallback := newLocator().CurrentCoordinate(cmd.Context())
		return issues, c, fallback, nil
	}

	shell, _, err := startShell(cmd.Context())
	if err != nil {
		return nil, models.Coordinate{}, false, err
	}
	defer shell.Close()

	state := shell.State()
	printFetchStatus(state)
	return state.Issues, state.UserLocation, state.LocationFallback, nil
}

func exportFixes(cmd *cobra.Command, since, output string) error {
	var (
		fixes []*models.Fix
		err   error
	)
	if since != "" {
		t, perr := parseDuration(since)
		if perr != nil {
			return perr
		}
		fixes, err = store.FixesSince(cmd.Context(), t)
	} else {
		fixes, err = store.ListFixes(cmd.Context(), 0)
	}
	if err != nil {
		return fmt.Errorf("failed to read location history: %w", err)
	}
	if len(fixes) == 0 {
		return fmt.Errorf("no locations found")
	}

	data, err := geojson.FromFixes(fixes).ToJSONIndent()
	if err != nil {
		return fmt.Errorf("failed to generate GeoJSON: %w", err)
	}
	return writeExport(cmd, data, output, fmt.Sprintf("%d locations", len(fixes)))
}

func writeExport(cmd *cobra.Command, data []byte, output, what string) error {
	if output != "" {
		if err := os.WriteFile(output, data, 0644); err != nil { //nolint:gosec // 0644 is intentional for data export files
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s to %s\n", what, output)
		return nil
	}
	_, err := cmd.OutOrStdout().Write(data)
	if err == nil && len(data) > 0 && data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return err
}

// parseDuration parses relative duration strings like "24h", "7d", "1w".
func parseDuration(s string) (time.Time, error) {
	matches := durationRegex.FindStringSubmatch(s)
	if matches == nil {
		return time.Time{}, fmt.Errorf("invalid duration format (use e.g., 24h, 7d, 1w)")
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid number in duration '%s': %w", s, err)
	}

	var duration time.Duration
	switch matches[2] {
	case "h":
		duration = time.Duration(num) * time.Hour
	case "d":
		duration = time.Duration(num) * 24 * time.Hour
	case "w":
		duration = time.Duration(num) * 7 * 24 * time.Hour
	case "m":
		duration = time.Duration(num) * 30 * 24 * time.Hour
	}

	return time.Now().Add(-duration), nil
}

// parseDate parses date strings in RFC3339 or YYYY-MM-DD format.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date format (use YYYY-MM-DD or RFC3339)")
}

func init() {
	exportCmd.Flags().StringP("format", "f", "geojson", "output format (geojson, markdown, yaml)")
	exportCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	exportCmd.Flags().Bool("fixes", false, "export your location history instead of issues")
	exportCmd.Flags().String("since", "", "with --fixes, relative time filter (e.g., 24h, 7d, 1w)")
	exportCmd.Flags().Bool("cached", false, "export the cached list without contacting the backend")
	exportCmd.Flags().Bool("with-user", false, "include your location as a GeoJSON point")

	rootCmd.AddCommand(exportCmd)
}
