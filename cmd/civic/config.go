// ABOUTME: Civic config commands
// ABOUTME: Shows the effective configuration and edits the config file

package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/harper/civic/internal/config"
	"github.com/spf13/cobra"
)

// configKeys maps config file keys to setters.
var configKeys = map[string]func(c *config.Config, v string) error{
	"api_base_url": func(c *config.Config, v string) error {
		c.APIBaseURL = config.NormalizeBaseURL(v)
		return nil
	},
	"environment": func(c *config.Config, v string) error {
		c.Environment = v
		return nil
	},
	"geocoder": func(c *config.Config, v string) error {
		v = strings.ToLower(v)
		if v != "" && v != config.GeocoderNominatim && v != config.GeocoderGoogle {
			return fmt.Errorf("unknown geocoder '%s' (use %s or %s)", v, config.GeocoderNominatim, config.GeocoderGoogle)
		}
		c.Geocoder = v
		return nil
	},
	"google_maps_key": func(c *config.Config, v string) error {
		c.GoogleMapsKey = v
		return nil
	},
	"nominatim_url": func(c *config.Config, v string) error {
		c.NominatimURL = v
		return nil
	},
	"fallback": func(c *config.Config, v string) error {
		if v == "" {
			c.Fallback = nil
			return nil
		}
		coord, err := config.ParseCoordinate(v)
		if err != nil {
			return err
		}
		c.Fallback = &coord
		return nil
	},
	"data_dir": func(c *config.Config, v string) error {
		c.DataDir = v
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		bold := color.New(color.Bold)

		fmt.Fprintf(out, "%s %s\n", bold.Sprint("Config file:"), config.GetConfigPath())

		base, err := cfg.BaseURL()
		switch {
		case err == nil:
			fmt.Fprintf(out, "%s %s\n", bold.Sprint("Backend:"), base)
		case base != "":
			fmt.Fprintf(out, "%s %s %s\n", bold.Sprint("Backend:"), base, color.YellowString("(looks like a placeholder)"))
		default:
			fmt.Fprintf(out, "%s %s\n", bold.Sprint("Backend:"), color.YellowString("not configured"))
		}

		env := "development"
		if cfg.IsProduction() {
			env = "production"
		}
		fmt.Fprintf(out, "%s %s\n", bold.Sprint("Environment:"), env)

		geocoder := cfg.GetGeocoder()
		if geocoder == config.GeocoderNominatim {
			geocoder += " (" + cfg.GetNominatimURL() + ")"
		} else if cfg.GoogleMapsKey == "" {
			geocoder += color.YellowString(" (no API key)")
		}
		fmt.Fprintf(out, "%s %s\n", bold.Sprint("Place search:"), geocoder)

		fb := cfg.GetFallback()
		fmt.Fprintf(out, "%s %.4f,%.4f\n", bold.Sprint("Fallback:"), fb.Latitude, fb.Longitude)
		fmt.Fprintf(out, "%s %s\n", bold.Sprint("Cache:"), store.Path())
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config file value",
	Long: fmt.Sprintf(`Set a value in the config file. An empty value clears it.

Keys: %s`, strings.Join(sortedConfigKeys(), ", ")),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], strings.TrimSpace(args[1])
		set, ok := configKeys[key]
		if !ok {
			return fmt.Errorf("unknown config key '%s'", key)
		}

		// Edit the file alone so environment overrides are not persisted.
		fileCfg, err := config.LoadFile()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := set(fileCfg, value); err != nil {
			return err
		}
		if err := fileCfg.Save(); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}

		color.Green("✓ Set %s", key)
		return nil
	},
}

func sortedConfigKeys() []string {
	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	configCmd.AddCommand(configSetCmd)
	rootCmd.AddCommand(configCmd)
}
