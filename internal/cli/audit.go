package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"zentari/internal/repository"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)

	auditListCmd.Flags().String("user", "", "Only entries for this account")
	auditListCmd.Flags().String("category", "", "Only entries in this category (auth, account, payment, referral, invariant)")
	auditListCmd.Flags().String("action", "", "Only entries with this action")
	auditListCmd.Flags().Duration("since", 0, "Only entries newer than this (e.g. 24h)")
	auditListCmd.Flags().Int("limit", 50, "Maximum entries")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Read the audit trail",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent audit entries, newest first",
	Args:  cobra.NoArgs,
	RunE:  runAuditList,
}

func runAuditList(cmd *cobra.Command, args []string) error {
	var f repository.AuditFilter
	f.UserID, _ = cmd.Flags().GetString("user")
	f.Category, _ = cmd.Flags().GetString("category")
	f.Action, _ = cmd.Flags().GetString("action")
	f.Limit, _ = cmd.Flags().GetInt("limit")
	if since, _ := cmd.Flags().GetDuration("since"); since > 0 {
		f.Since = time.Now().Add(-since)
	}

	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	logs, err := repository.NewAuditRepository(pool).List(cmd.Context(), f)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tUSER\tCATEGORY\tACTION\tDETAILS")
	for _, l := range logs {
		details, _ := json.Marshal(l.Details)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", l.CreatedAt.Format(time.RFC3339), l.UserID, l.Category, l.Action, details)
	}
	return w.Flush()
}
