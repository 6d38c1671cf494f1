package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"ledger-reconciliation-service/cmd/reconciler/config"
	"ledger-reconciliation-service/internal/ledger"
	"ledger-reconciliation-service/internal/models"

	"github.com/spf13/cobra"
)

// accountsCmd lists the accounts available for reconciliation.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List budgeting accounts available for reconciliation",
	Long: `Accounts lists the open accounts in the configured budget with their
ids and current balances. Use either the id or the name as the --account
argument of the reconcile command.`,
	RunE: runAccounts,
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}

func runAccounts(cmd *cobra.Command, args []string) error {
	ledgerConfig, err := config.CreateLedgerConfig()
	if err != nil {
		return err
	}

	client, err := ledger.NewHTTPClient(ledgerConfig)
	if err != nil {
		return err
	}

	accounts, err := client.GetAccounts(context.Background())
	if err != nil {
		return err
	}

	if len(accounts) == 0 {
		fmt.Println("No open accounts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tBALANCE")
	for _, account := range accounts {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			account.ID, account.Name, models.MilliunitsToDecimal(account.Balance).StringFixed(2))
	}
	return w.Flush()
}
