package cli

import (
	"fmt"
	"text/tabwriter"

	"zentari/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statsCmd)
	accountCmd.AddCommand(accountLedgerCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show platform totals",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	s, err := service.NewAdminService(pool).GetStats(cmd.Context())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Accounts\t%d (+%d today)\n", s.TotalAccounts, s.NewAccountsToday)
	fmt.Fprintf(w, "Active\t%d today, %d this week\n", s.ActiveAccountsDay, s.ActiveAccountsWeek)
	fmt.Fprintf(w, "Power\t%d (+%d today)\n", s.TotalPower, s.PowerMintedToday)
	fmt.Fprintf(w, "Referrals\t%d\n", s.TotalReferrals)
	fmt.Fprintf(w, "Stars spent\t%d (%d today)\n", s.StarsSpent, s.StarsSpentToday)
	fmt.Fprintf(w, "Pending tasks\t%d\n", s.PendingTasks)
	fmt.Fprintf(w, "Violations\t%d\n", s.Violations)
	return w.Flush()
}

var accountLedgerCmd = &cobra.Command{
	Use:   "ledger USER_ID",
	Short: "Sum an account's ledger per currency",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountLedger,
}

func runAccountLedger(cmd *cobra.Command, args []string) error {
	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	totals, err := service.NewAdminService(pool).LedgerTotals(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(totals) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No ledger entries.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CURRENCY\tCREDITED\tDEBITED\tNET\tENTRIES")
	for _, t := range totals {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", t.Currency, t.Credited, t.Debited, t.Credited-t.Debited, t.Entries)
	}
	return w.Flush()
}
