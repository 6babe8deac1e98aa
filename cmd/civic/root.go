// ABOUTME: Root Cobra command and global flags
// ABOUTME: Loads config, sets up the logger and opens the local SQLite cache

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/harper/civic/internal/config"
	"github.com/harper/civic/internal/storage"
	"github.com/spf13/cobra"
)

var (
	cfg    *config.Config
	store  *storage.SQLiteDB
	logger = log.New(io.Discard)

	dbPath  string
	apiURL  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "civic",
	Short: "Report and browse civic issues on a map",
	Long: `
 ██████╗██╗██╗   ██╗██╗ ██████╗
██╔════╝██║██║   ██║██║██╔════╝
██║     ██║██║   ██║██║██║
██║     ██║╚██╗ ██╔╝██║██║
╚██████╗██║ ╚████╔╝ ██║╚██████╗
 ╚═════╝╚═╝  ╚═══╝  ╚═╝ ╚═════╝

   Report potholes, broken lights and other local issues

Examples:
  civic issues
  civic map --legend
  civic show 42
  civic report --type GARBAGE_DUMP -d "Overflowing bins" -c Pune -i bins.jpg
  civic locate set 18.5204,73.8567 --label home`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = newLogger(cmd.ErrOrStderr(), verbose)

		if err := config.LoadDotEnv(); err != nil {
			logger.Warn("could not load .env", "err", err)
		}

		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if apiURL != "" {
			cfg.APIBaseURL = apiURL
		}

		path := dbPath
		if path == "" {
			path = cfg.DBPath()
		}
		store, err = storage.NewSQLiteDB(path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		logger.Debug("opened cache", "path", store.Path())
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if store != nil {
			err := store.Close()
			store = nil
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "path to the local cache (default: data dir/civic.db)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", "", "backend API base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// newLogger builds the stderr logger shared by every service.
func newLogger(w io.Writer, debug bool) *log.Logger {
	l := log.NewWithOptions(w, log.Options{
		Prefix:          "civic",
		ReportTimestamp: debug,
	})
	if debug {
		l.SetLevel(log.DebugLevel)
	} else {
		l.SetLevel(log.WarnLevel)
	}
	return l
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
