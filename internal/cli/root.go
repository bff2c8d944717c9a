// Package cli implements monitorctl, the operator command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"activity-monitor/internal/config"
	"activity-monitor/internal/logging"
	"activity-monitor/internal/store"
)

var dbPath string

var rootCmd = &cobra.Command{
	Use:   "monitorctl",
	Short: "Operate an activity monitor database",
	Long: `monitorctl works directly on the server's SQLite database: retention
cleanup, purges and a live status listing. It reads the same .env and
environment variables as the server.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "database file (default: DB_NAME)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openStore loads the server configuration and opens its database.
func openStore() (*store.Store, config.Server, error) {
	config.LoadDotEnv()
	cfg, err := config.LoadServer()
	if err != nil {
		return nil, cfg, err
	}
	if err := logging.Initialize(cfg.LogLevel, cfg.LogFormat); err != nil {
		return nil, cfg, err
	}
	if dbPath != "" {
		cfg.DBName = dbPath
	}
	st, err := store.Open(cfg.DBName, store.Options{Location: cfg.Location, Debug: cfg.DBDebug})
	if err != nil {
		return nil, cfg, err
	}
	return st, cfg, nil
}

func printDeleted(cmd *cobra.Command, deleted store.Deleted) {
	out := cmd.OutOrStdout()
	for _, table := range []string{"activity_events", "activity_periods", "daily_activity_summary", "last_input_activity", "windows_snapshot"} {
		fmt.Fprintf(out, "%-24s %d\n", table, deleted[table])
	}
	fmt.Fprintf(out, "%-24s %d\n", "total", deleted.Total())
}
