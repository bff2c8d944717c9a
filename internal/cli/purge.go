package cli

import (
	"github.com/spf13/cobra"
)

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all data of a user or a computer",
}

var purgeUserCmd = &cobra.Command{
	Use:   "user <username>",
	Short: "Delete every row of a user across all computers",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := st.PurgeUser(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printDeleted(cmd, deleted)
		return nil
	},
}

var purgeComputerCmd = &cobra.Command{
	Use:   "computer <hostname> <username>",
	Short: "Delete every row of one user on one computer",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, _, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		deleted, err := st.PurgeComputer(cmd.Context(), args[0], args[1])
		if err != nil {
			return err
		}
		printDeleted(cmd, deleted)
		return nil
	},
}

func init() {
	purgeCmd.AddCommand(purgeUserCmd, purgeComputerCmd)
	rootCmd.AddCommand(purgeCmd)
}
