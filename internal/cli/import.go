package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/portfolio"
)

var importCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Import leases, debts and assignments from a portfolio file",
	Long: `Import a YAML portfolio file. Every record is validated before anything
is written. Records with an existing ID replace the stored ones.

Example file:

  leases:
    - id: lease-1
      tenant: Acme Corp
      end_date: "2026-06-30"
      monthly_rent: "12500.00"
  debts:
    - id: debt-1
      lender: First Bank
      amount: "2500000"
      maturity_date: "2027-03-15"
  assignments:
    - entity_kind: lease
      entity_id: lease-1
      user_id: alice`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	doc, err := portfolio.Load(args[0])
	if err != nil {
		return err
	}

	return withApp(func(a *app) error {
		res, err := portfolio.Import(cmd.Context(), a.store, doc)
		if err != nil {
			return err
		}

		fmt.Printf("Imported %s:\n", args[0])
		fmt.Printf("  Leases:       %d\n", res.Leases)
		fmt.Printf("  Debts:        %d\n", res.Debts)
		fmt.Printf("  Assignments:  %d\n", res.Assignments)
		return nil
	})
}
