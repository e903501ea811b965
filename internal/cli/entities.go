package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/Expiry-Guardian/pkg/window"
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "Inspect monitored leases and debts",
}

var entitiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List active leases and debts with their next notice",
	RunE:  runEntitiesList,
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
	entitiesCmd.AddCommand(entitiesListCmd)
}

func runEntitiesList(cmd *cobra.Command, _ []string) error {
	return withApp(func(a *app) error {
		entities, err := a.store.ListMonitored(cmd.Context())
		if err != nil {
			return err
		}

		if len(entities) == 0 {
			fmt.Println("No monitored entities. Use 'eg import' to load a portfolio.")
			return nil
		}

		now := time.Now()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "ENTITY\tNAME\tDATE\tDAYS\tWINDOW\n")
		for _, e := range entities {
			inside := "-"
			if th, ok := window.Nearest(now, e.TargetDate); ok {
				inside = string(th)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				e.Ref.String(), e.Label, e.TargetDate.Format("2006-01-02"),
				window.DaysRemaining(now, e.TargetDate), inside)
		}
		w.Flush()
		return nil
	})
}
