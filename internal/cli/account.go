package cli

import (
	"encoding/json"
	"fmt"

	"zentari/internal/clock"
	"zentari/internal/config"
	"zentari/internal/entitlement"
	"zentari/internal/repository"
	"zentari/internal/service"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(accountCmd)
	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountShowCmd)
	accountCmd.AddCommand(accountTokenCmd)

	accountCreateCmd.Flags().String("inviter", "", "Username of the inviting player")
	accountCreateCmd.Flags().Bool("token", false, "Also print an API token for the new account")
}

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Create and inspect player accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create USER_ID USERNAME",
	Short: "Register an account as if the player had signed up",
	Long: `Register an account through the engine: inviter credits and the audit
trail are written exactly as for a sign-up from the web app.`,
	Args: cobra.ExactArgs(2),
	RunE: runAccountCreate,
}

func runAccountCreate(cmd *cobra.Command, args []string) error {
	inviter, _ := cmd.Flags().GetString("inviter")
	withToken, _ := cmd.Flags().GetBool("token")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rules, err := entitlement.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	engine := service.NewEngine(repository.NewAccountRepository(pool), rules, clock.Real{},
		service.WithAudit(service.NewAuditService(repository.NewAuditRepository(pool))))
	acc, err := engine.Register(cmd.Context(), service.RegisterInput{
		UserID:   args[0],
		Username: args[1],
		Inviter:  inviter,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "account %s (%s) registered\n", acc.UserID, acc.Username)

	if withToken {
		return printToken(cmd, cfg, acc.UserID)
	}
	return nil
}

var accountShowCmd = &cobra.Command{
	Use:   "show USER_ID",
	Short: "Print an account's computed status as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountShow,
}

func runAccountShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rules, err := entitlement.Load(cfg.RulesFile)
	if err != nil {
		return err
	}
	pool, err := openPool(cmd.Context())
	if err != nil {
		return err
	}
	defer pool.Close()

	engine := service.NewEngine(repository.NewAccountRepository(pool), rules, clock.Real{})
	status, err := engine.GetStatus(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(status)
}

var accountTokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Issue an API token for an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runAccountToken,
}

func runAccountToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	return printToken(cmd, cfg, args[0])
}

func printToken(cmd *cobra.Command, cfg *config.Config, userID string) error {
	if cfg.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET not set")
	}
	service.InitJWT(cfg.JWTSecret, cfg.JWTTTL)
	token, err := service.GenerateJWT(userID)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
