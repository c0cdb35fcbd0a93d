// Command accounts provisions pool accounts without going through the HTTP API.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"lifekline-api/internal/adapters/events"
	"lifekline-api/internal/adapters/persistence"
	"lifekline-api/internal/config"
	"lifekline-api/internal/core/services"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "accounts",
	Short:        "Manage the prepaid account pool",
	SilenceUsage: true,
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Create unused accounts and print their credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		uses, _ := cmd.Flags().GetInt("uses")

		return withAdmin(func(admin *services.AdminService) error {
			result, err := admin.GenerateAccounts(cmd.Context(), &services.GenerateAccountsInput{
				Count:          &count,
				UsesPerAccount: &uses,
			})
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	},
}

var poolCmd = &cobra.Command{
	Use:   "pool",
	Short: "Show account counts by status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withAdmin(func(admin *services.AdminService) error {
			status, err := admin.PoolStatus(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(status)
		})
	},
}

func init() {
	generateCmd.Flags().Int("count", services.DefaultGenerateCount, "number of accounts to create (max 1000)")
	generateCmd.Flags().Int("uses", services.DefaultUsesPerAccount, "generation uses per account")

	rootCmd.AddCommand(generateCmd, poolCmd)
}

func withAdmin(fn func(admin *services.AdminService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config failed: %w", err)
	}

	store, closeStore, err := persistence.Open(cfg)
	if err != nil {
		return fmt.Errorf("open store failed: %w", err)
	}
	defer closeStore()

	credentials := services.NewCredentialService(cfg.Password.BcryptCost, cfg.Location())
	ledger := services.NewLedgerService(store, events.NoopPublisher{}, credentials)
	return fn(services.NewAdminService(ledger))
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("❌ %v", err)
		os.Exit(1)
	}
}
