package cli

import (
	"fmt"

	"zentari/internal/migrations"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateListCmd)
	migrateCmd.AddCommand(migrateApplyCmd)
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Inspect and apply the embedded schema",
}

var migrateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List migrations in apply order",
	Args:  cobra.NoArgs,
	RunE:  runMigrateList,
}

func runMigrateList(cmd *cobra.Command, args []string) error {
	names, err := migrations.List()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

var migrateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply every migration to DATABASE_URL",
	Long:  `Apply every embedded migration in order. Statements are idempotent, so re-running is safe.`,
	Args:  cobra.NoArgs,
	RunE:  runMigrateApply,
}

func runMigrateApply(cmd *cobra.Command, args []string) error {
	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	out := cmd.OutOrStdout()
	return migrations.Apply(cmd.Context(), pool, func(name string) {
		fmt.Fprintf(out, "applied %s\n", name)
	})
}
