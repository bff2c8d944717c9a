package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	cleanupDays int
	confirmAll  bool
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete activity data",
}

var cleanupOldCmd = &cobra.Command{
	Use:   "old",
	Short: "Delete rows older than --days (default RETENTION_DAYS)",
	Args:  cobra.NoArgs,
	RunE:  runCleanupOld,
}

var cleanupAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete every activity row; the ignore list is kept",
	Args:  cobra.NoArgs,
	RunE:  runCleanupAll,
}

func init() {
	cleanupOldCmd.Flags().IntVar(&cleanupDays, "days", 0, "retention horizon in days")
	cleanupAllCmd.Flags().BoolVar(&confirmAll, "yes", false, "confirm deleting everything")
	cleanupCmd.AddCommand(cleanupOldCmd, cleanupAllCmd)
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanupOld(cmd *cobra.Command, args []string) error {
	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	days := cleanupDays
	if days == 0 {
		days = cfg.RetentionDays
	}
	if days < 0 {
		return fmt.Errorf("--days must be positive, got %d", days)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleting rows before %s\n", st.RetentionCutoff(days).In(cfg.Location).Format("2006-01-02 15:04:05"))
	deleted, err := st.CleanupOlderThan(cmd.Context(), days)
	if err != nil {
		return err
	}
	printDeleted(cmd, deleted)
	return nil
}

func runCleanupAll(cmd *cobra.Command, args []string) error {
	if !confirmAll {
		return errors.New("refusing to delete all data without --yes")
	}
	st, _, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	deleted, err := st.CleanupAll(cmd.Context())
	if err != nil {
		return err
	}
	printDeleted(cmd, deleted)
	return nil
}
