package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "List every known computer/user with its live status",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	st, cfg, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	presence, err := st.ListPresence(cmd.Context())
	if err != nil {
		return err
	}
	if len(presence) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No computers have reported yet.")
		return nil
	}

	now := st.Now()
	stamp := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.In(cfg.Location).Format("2006-01-02 15:04:05")
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HOSTNAME\tUSERNAME\tSTATUS\tLAST INPUT\tLAST SNAPSHOT")
	for _, p := range presence {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", p.Hostname, p.Username, p.Status(now), stamp(p.LastInput), stamp(p.LastSnapshot))
	}
	return w.Flush()
}
