// ABOUTME: Civic locate commands
// ABOUTME: Records, lists, watches and removes the location fixes the CLI uses

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/harper/civic/internal/config"
	"github.com/harper/civic/internal/location"
	"github.com/harper/civic/internal/models"
	"github.com/harper/civic/internal/storage"
	"github.com/harper/civic/internal/ui"
	"github.com/spf13/cobra"
)

var locateCmd = &cobra.Command{
	Use:     "locate",
	Aliases: []string{"loc"},
	Short:   "Show or record your location",
	Long: `Show your current location.

civic has no GPS of its own: your location is the latest fix recorded
with 'civic locate set'. Without one, the configured fallback is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, fallback := newLocator().CurrentCoordinate(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "You are at %s\n", ui.FormatUserLocation(c, fallback))

		if fallback {
			return nil
		}
		fix, err := store.LatestFix(cmd.Context())
		if err != nil {
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s\n", ui.FormatRelativeTime(fix.RecordedAt))
		return nil
	},
}

var locateSetCmd = &cobra.Command{
	Use:   "set <lat,lng>",
	Short: "Record your current location",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.ParseCoordinate(args[0])
		if err != nil {
			return err
		}

		var label *string
		if l, _ := cmd.Flags().GetString("label"); l != "" {
			label = &l
		}

		fix := models.NewFix(c, label)
		if at, _ := cmd.Flags().GetString("at"); at != "" {
			t, err := parseDate(at)
			if err != nil {
				return err
			}
			fix = models.NewFixWithRecordedAt(c, label, t)
		}
		if acc, _ := cmd.Flags().GetFloat64("accuracy"); acc > 0 {
			fix.Accuracy = acc
		}

		if err := store.CreateFix(cmd.Context(), fix); err != nil {
			return fmt.Errorf("failed to record location: %w", err)
		}

		color.Green("✓ Location set to %s", ui.FormatCoordinate(c))
		return nil
	},
}

var locateHistoryCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"h"},
	Short:   "Show recorded locations, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var (
			fixes []*models.Fix
			err   error
		)
		if since, _ := cmd.Flags().GetString("since"); since != "" {
			t, perr := parseDuration(since)
			if perr != nil {
				return perr
			}
			fixes, err = store.FixesSince(ctx, t)
		} else {
			limit, _ := cmd.Flags().GetInt("limit")
			fixes, err = store.ListFixes(ctx, limit)
		}
		if err != nil {
			return fmt.Errorf("failed to read location history: %w", err)
		}

		if len(fixes) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No locations recorded yet. Use 'civic locate set' to add one.")
			return nil
		}
		showIDs, _ := cmd.Flags().GetBool("ids")
		for _, fix := range fixes {
			line := ui.FormatFix(fix)
			if showIDs {
				line += " " + color.New(color.Faint).Sprint(fix.ID.String())
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		return nil
	},
}

var locateWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow location updates until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		interval, _ := cmd.Flags().GetDuration("interval")
		maxAge, _ := cmd.Flags().GetDuration("max-age")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()

		locator := newLocator()
		locator.SetPollInterval(interval)

		opts := location.WatchOptions
		opts.MaxAge = maxAge

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Watching for location updates (Ctrl+C to stop)...")
		sub := locator.Watch(ctx, opts, func(c models.Coordinate) {
			fmt.Fprintf(out, "%s %s\n", time.Now().Format("15:04:05"), ui.FormatUserLocation(c, false))
		})
		<-sub.Done()
		return nil
	},
}

var locateRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a recorded location",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid location ID '%s'", args[0])
		}

		fix, err := store.GetFix(cmd.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("location '%s' not found", id)
			}
			return err
		}

		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm && !askConfirm(cmd, fmt.Sprintf("Remove location %s?", ui.FormatCoordinate(fix.Coordinate))) {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil
		}

		if err := store.DeleteFix(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to remove location: %w", err)
		}

		color.Green("✓ Removed location %s", ui.FormatCoordinate(fix.Coordinate))
		return nil
	},
}

func init() {
	locateSetCmd.Flags().StringP("label", "l", "", "optional label (e.g. home, office)")
	locateSetCmd.Flags().String("at", "", "when the location was recorded (YYYY-MM-DD or RFC3339)")
	locateSetCmd.Flags().Float64("accuracy", 0, "accuracy radius in meters")

	locateHistoryCmd.Flags().IntP("limit", "n", 20, "maximum number of entries (0 for all)")
	locateHistoryCmd.Flags().String("since", "", "relative time filter (e.g., 24h, 7d, 1w)")
	locateHistoryCmd.Flags().Bool("ids", false, "show location IDs")

	locateWatchCmd.Flags().Duration("interval", location.DefaultPollInterval, "how often to check for a new location")
	locateWatchCmd.Flags().Duration("max-age", 0, "ignore locations older than this (0 accepts any)")

	locateRemoveCmd.Flags().Bool("confirm", false, "skip confirmation prompt")

	locateCmd.AddCommand(locateSetCmd, locateHistoryCmd, locateWatchCmd, locateRemoveCmd)
	rootCmd.AddCommand(locateCmd)
}
